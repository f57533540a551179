package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/google/uuid"
)

const (
	kindForecast = "forecast"
	kindWarning  = "warning"
)

// RunOptions selects which record tables a run rebuilds.
type RunOptions struct {
	Forecasts bool
	Warnings  bool
}

// RunResult summarizes one orchestrator run.
type RunResult struct {
	Target    domain.Date
	Forecasts int
	Warnings  int
	// Failed lists prefecture IDs skipped per kind.
	Failed map[string][]string
}

// Orchestrator aggregates the per-prefecture documents into forecast and
// warning records for the target date. Prefectures are processed one at a time.
type Orchestrator struct {
	source      Source
	store       Store
	publisher   Publisher
	prefectures []string
	whitelist   domain.Whitelist
	target      domain.Date
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// OrchestratorOption configures optional Orchestrator collaborators.
type OrchestratorOption func(*Orchestrator)

// WithPublisher forwards finalized records after they are stored.
func WithPublisher(p Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithWhitelist replaces the default warning whitelist.
func WithWhitelist(w domain.Whitelist) OrchestratorOption {
	return func(o *Orchestrator) { o.whitelist = w }
}

// WithTargetDate pins the target date instead of deriving tomorrow from the clock.
func WithTargetDate(d domain.Date) OrchestratorOption {
	return func(o *Orchestrator) { o.target = d }
}

// NewOrchestrator creates an Orchestrator over the given prefecture codes.
func NewOrchestrator(source Source, store Store, prefectures []string, logger *slog.Logger, metrics *observability.Metrics, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:      source,
		store:       store,
		prefectures: prefectures,
		whitelist:   domain.DefaultWhitelist(),
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run rebuilds the selected record tables. A prefecture whose documents cannot
// be fetched or decoded is logged and skipped. When every prefecture fails for
// a kind, that kind's table is left untouched and the returned error wraps
// ErrAllPrefecturesFailed.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	target := o.target
	if target.IsZero() {
		target = domain.TargetDate()
	}
	res := RunResult{Target: target, Failed: make(map[string][]string)}
	if len(o.prefectures) == 0 {
		return res, ErrNoPrefectures
	}

	logger := o.logger.With("run_id", uuid.NewString(), "target_date", target.String())
	logger.Info("run started", "prefectures", len(o.prefectures), "forecasts", opts.Forecasts, "warnings", opts.Warnings)
	if opts.Warnings {
		logger.Debug("warning whitelist", "codes", o.whitelist.Codes())
	}

	var errs []error
	if opts.Forecasts {
		n, failed, err := o.runForecasts(ctx, target, logger.With("kind", kindForecast))
		res.Forecasts, res.Failed[kindForecast] = n, failed
		errs = append(errs, err)
	}
	if opts.Warnings {
		n, failed, err := o.runWarnings(ctx, target, logger.With("kind", kindWarning))
		res.Warnings, res.Failed[kindWarning] = n, failed
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

func (o *Orchestrator) runForecasts(ctx context.Context, target domain.Date, logger *slog.Logger) (int, []string, error) {
	start := time.Now()
	n, failed, err := o.forecasts(ctx, target, logger)
	recordRun(o.metrics, kindForecast, start, err)
	if err != nil {
		logger.Error("forecast run failed", "error", err)
		return n, failed, err
	}
	logger.Info("forecast run finished", "records", n, "failed_prefectures", len(failed), "duration", time.Since(start))
	return n, failed, nil
}

func (o *Orchestrator) forecasts(ctx context.Context, target domain.Date, logger *slog.Logger) (int, []string, error) {
	subRegions, err := o.store.SubRegions(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load sub-regions: %w", err)
	}
	stations, err := o.store.Stations(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load stations: %w", err)
	}
	index := domain.NewStationIndex(subRegions, stations)
	if index.Empty() {
		logger.Warn("station table is empty, temperatures will be skipped; run master first")
	}

	var (
		parts  []domain.ForecastPartials
		failed []string
	)
	for _, pref := range o.prefectures {
		if err := ctx.Err(); err != nil {
			return 0, failed, err
		}
		plog := logger.With("prefecture", pref)
		p, err := o.forecastPrefecture(ctx, pref, target, index, plog)
		if err != nil {
			plog.Error("prefecture skipped", "error", err)
			o.metrics.PrefectureOutcomes.WithLabelValues("error").Inc()
			failed = append(failed, pref)
			continue
		}
		o.metrics.PrefectureOutcomes.WithLabelValues("success").Inc()
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return 0, failed, fmt.Errorf("forecasts: %w", ErrAllPrefecturesFailed)
	}

	records := domain.MergeForecasts(parts...)
	if err := o.store.ReplaceForecasts(ctx, records); err != nil {
		return 0, failed, fmt.Errorf("replace forecasts: %w", err)
	}
	o.metrics.RowsWritten.WithLabelValues("forecasts").Add(float64(len(records)))

	if o.publisher != nil {
		if err := o.publisher.PublishForecasts(ctx, target, records); err != nil {
			logger.Error("publish forecasts failed", "error", err)
		}
	}
	return len(records), failed, nil
}

// forecastPrefecture computes one prefecture's partial results. Fetch and
// schema failures fail the prefecture; a missing target date or an unexpected
// temperature slot count only drops the affected metric.
func (o *Orchestrator) forecastPrefecture(ctx context.Context, pref string, target domain.Date, index *domain.StationIndex, logger *slog.Logger) (domain.ForecastPartials, error) {
	var p domain.ForecastPartials

	forecast, err := o.source.Forecast(ctx, pref)
	if err != nil {
		return p, fmt.Errorf("fetch forecast: %w", err)
	}
	probability, err := o.source.Probability(ctx, pref)
	if err != nil {
		return p, fmt.Errorf("fetch probability: %w", err)
	}

	codes, err := domain.ExtractWeatherCodes(forecast, target)
	switch {
	case err == nil:
		p.WeatherCodes = codes
	case errors.Is(err, domain.ErrTargetDateMissing):
		o.dropMetric(logger, domain.MetricWeatherCode, err)
	default:
		return p, fmt.Errorf("extract weather codes: %w", err)
	}

	temps, issues, err := domain.AggregateTemperatures(forecast, target, pref, index)
	switch {
	case err == nil:
		p.Temperatures = temps
		o.reportIssues(logger, issues)
	case errors.Is(err, domain.ErrTemperatureSlots):
		o.dropMetric(logger, domain.MetricTemperature, err)
	default:
		return p, fmt.Errorf("aggregate temperatures: %w", err)
	}

	winds, issues, err := domain.AggregateWindSpeeds(probability, target)
	switch {
	case err == nil:
		p.WindSpeeds = winds
		o.reportIssues(logger, issues)
	case errors.Is(err, domain.ErrTargetDateMissing):
		o.dropMetric(logger, domain.MetricWindSpeed, err)
	default:
		return p, fmt.Errorf("aggregate wind speeds: %w", err)
	}
	return p, nil
}

// dropMetric records a metric left out for a whole prefecture. A temperature
// slot mismatch means the series layout changed and is logged as an error.
func (o *Orchestrator) dropMetric(logger *slog.Logger, metric string, err error) {
	if errors.Is(err, domain.ErrTemperatureSlots) {
		logger.Error("metric skipped", "metric", metric, "error", err)
	} else {
		logger.Warn("metric skipped", "metric", metric, "error", err)
	}
	o.metrics.MetricDrops.WithLabelValues(metric).Inc()
}

func (o *Orchestrator) reportIssues(logger *slog.Logger, issues []domain.SubRegionIssue) {
	for _, is := range issues {
		logger.Warn("sub-region skipped", "sub_region", is.SubRegionID, "metric", is.Metric, "error", is.Err)
		o.metrics.SubRegionSkips.WithLabelValues(is.Metric).Inc()
	}
}

func (o *Orchestrator) runWarnings(ctx context.Context, target domain.Date, logger *slog.Logger) (int, []string, error) {
	start := time.Now()
	n, failed, err := o.warnings(ctx, target, logger)
	recordRun(o.metrics, kindWarning, start, err)
	if err != nil {
		logger.Error("warning run failed", "error", err)
		return n, failed, err
	}
	logger.Info("warning run finished", "records", n, "failed_prefectures", len(failed), "duration", time.Since(start))
	return n, failed, nil
}

func (o *Orchestrator) warnings(ctx context.Context, target domain.Date, logger *slog.Logger) (int, []string, error) {
	var (
		parts  [][]domain.WarningRecord
		failed []string
	)
	for _, pref := range o.prefectures {
		if err := ctx.Err(); err != nil {
			return 0, failed, err
		}
		recs, err := o.warningPrefecture(ctx, pref)
		if err != nil {
			logger.Error("prefecture skipped", "prefecture", pref, "error", err)
			o.metrics.PrefectureOutcomes.WithLabelValues("error").Inc()
			failed = append(failed, pref)
			continue
		}
		o.metrics.PrefectureOutcomes.WithLabelValues("success").Inc()
		parts = append(parts, recs)
	}
	if len(parts) == 0 {
		return 0, failed, fmt.Errorf("warnings: %w", ErrAllPrefecturesFailed)
	}

	records := domain.MergeWarnings(parts...)
	if err := o.store.ReplaceWarnings(ctx, records); err != nil {
		return 0, failed, fmt.Errorf("replace warnings: %w", err)
	}
	o.metrics.RowsWritten.WithLabelValues("warnings").Add(float64(len(records)))

	if o.publisher != nil {
		if err := o.publisher.PublishWarnings(ctx, target, records); err != nil {
			logger.Error("publish warnings failed", "error", err)
		}
	}
	return len(records), failed, nil
}

func (o *Orchestrator) warningPrefecture(ctx context.Context, pref string) ([]domain.WarningRecord, error) {
	doc, err := o.source.Warning(ctx, pref)
	if err != nil {
		return nil, fmt.Errorf("fetch warning: %w", err)
	}
	recs, err := domain.FilterWarnings(doc, o.whitelist)
	if err != nil {
		return nil, fmt.Errorf("filter warnings: %w", err)
	}
	return recs, nil
}
