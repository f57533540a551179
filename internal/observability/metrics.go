package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jma_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL runs.
type Metrics struct {
	Runs               *prometheus.CounterVec // labels: kind={master,forecast,warning}, outcome={success,error}
	RunDuration        *prometheus.HistogramVec
	PrefectureOutcomes *prometheus.CounterVec // labels: outcome={success,error}
	RowsWritten        *prometheus.CounterVec // labels: table
	SubRegionSkips     *prometheus.CounterVec // labels: metric
	MetricDrops        *prometheus.CounterVec // labels: metric
	StationsExcluded   prometheus.Gauge
	PipelineRunning    prometheus.Gauge
	LastSuccess        *prometheus.GaugeVec // labels: kind

	// Source fetch metrics.
	FetchDuration *prometheus.HistogramVec // labels: document
	FetchFailures *prometheus.CounterVec   // labels: document
	FetchCache    *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.RunDuration,
		m.PrefectureOutcomes,
		m.RowsWritten,
		m.SubRegionSkips,
		m.MetricDrops,
		m.StationsExcluded,
		m.PipelineRunning,
		m.LastSuccess,
		m.FetchDuration,
		m.FetchFailures,
		m.FetchCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		PrefectureOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefectures_total",
			Help:      "Prefectures processed by outcome.",
		}, []string{"outcome"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written per table.",
		}, []string{"table"}),
		SubRegionSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sub_region_skips_total",
			Help:      "Sub-regions left out of a metric's output.",
		}, []string{"metric"}),
		MetricDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_drops_total",
			Help:      "Metrics left out for a whole prefecture because the target date or slot layout did not match.",
		}, []string{"metric"}),
		StationsExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_excluded",
			Help:      "Stations excluded by the last master run because their city is unknown.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a scheduler cycle is in progress.",
		}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by kind.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "JMA document fetch duration in seconds, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"document"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "JMA document fetches that failed after retries.",
		}, []string{"document"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Conditional fetch cache results.",
		}, []string{"result"}),
	}
}
