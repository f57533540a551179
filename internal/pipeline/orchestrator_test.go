package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bothKinds = pipeline.RunOptions{Forecasts: true, Warnings: true}

	wantForecasts = []domain.ForecastRecord{
		{SubRegionID: "280010", WeatherCode: "200", MinTemperature: ptr(11), MaxTemperature: ptr(21), WindSpeed: ptr(4.7)},
		{SubRegionID: "280020", WeatherCode: "201"},
	}
	wantWarnings = []domain.WarningRecord{
		{SubRegionID: "280010", Warnings: []string{"大雨警報", "大雨注意報"}},
	}
)

func TestOrchestrator_Run(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	ctx := context.Background()

	res, err := f.orchestrator([]string{"280000", "270000"}).Run(ctx, bothKinds)
	require.NoError(t, err, "a failed prefecture does not fail the run")

	assert.Equal(t, may11, res.Target)
	assert.Equal(t, 2, res.Forecasts)
	assert.Equal(t, 1, res.Warnings)
	assert.Equal(t, []string{"270000"}, res.Failed["forecast"])
	assert.Equal(t, []string{"270000"}, res.Failed["warning"])

	forecasts, err := f.store.Forecasts(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(wantForecasts, forecasts); diff != "" {
		t.Errorf("forecasts mismatch (-want +got):\n%s", diff)
	}

	warnings, err := f.store.Warnings(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantWarnings, warnings)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SubRegionSkips.WithLabelValues(domain.MetricTemperature)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SubRegionSkips.WithLabelValues(domain.MetricWindSpeed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PrefectureOutcomes.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PrefectureOutcomes.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RowsWritten.WithLabelValues("forecasts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("forecast", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("warning", "success")))
}

func TestOrchestrator_Run_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	ctx := context.Background()
	o := f.orchestrator([]string{"280000"})

	_, err := o.Run(ctx, bothKinds)
	require.NoError(t, err)
	first, err := f.store.Forecasts(ctx)
	require.NoError(t, err)

	_, err = o.Run(ctx, bothKinds)
	require.NoError(t, err)
	second, err := f.store.Forecasts(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "rerunning over the same documents yields the same rows")
}

func TestOrchestrator_Run_NoPrefectures(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator(nil).Run(context.Background(), bothKinds)
	require.ErrorIs(t, err, pipeline.ErrNoPrefectures)
}

func TestOrchestrator_Run_AllPrefecturesFailedKeepsRows(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	ctx := context.Background()

	_, err := f.orchestrator([]string{"280000"}).Run(ctx, bothKinds)
	require.NoError(t, err)

	for _, p := range []string{
		"forecast/data/forecast/280000.json",
		"warning/data/warning/280000.json",
	} {
		f.fetcher.setFailure(p, errors.New("503 service unavailable"))
	}

	_, err = f.orchestrator([]string{"280000"}).Run(ctx, bothKinds)
	require.ErrorIs(t, err, pipeline.ErrAllPrefecturesFailed)

	forecasts, err := f.store.Forecasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantForecasts, forecasts)

	warnings, err := f.store.Warnings(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantWarnings, warnings)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Runs.WithLabelValues("forecast", "error")))
}

func TestOrchestrator_Run_ProbabilityFailureSkipsPrefecture(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	f.fetcher.setFailure("probability/data/probability/280000.json", errors.New("timeout"))

	res, err := f.orchestrator([]string{"280000"}).Run(context.Background(), pipeline.RunOptions{Forecasts: true})
	require.ErrorIs(t, err, pipeline.ErrAllPrefecturesFailed)
	assert.Equal(t, []string{"280000"}, res.Failed["forecast"])
}

func TestOrchestrator_Run_WithoutStations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orchestrator([]string{"280000"}).Run(ctx, pipeline.RunOptions{Forecasts: true})
	require.NoError(t, err)

	forecasts, err := f.store.Forecasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ForecastRecord{
		{SubRegionID: "280010", WeatherCode: "200", WindSpeed: ptr(4.7)},
		{SubRegionID: "280020", WeatherCode: "201"},
	}, forecasts, "temperatures need the station table")
}

func TestOrchestrator_Run_TargetDateAbsent(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	domain.SetClock(clockwork.NewFakeClockAt(jst10May.AddDate(0, 0, 10)))
	ctx := context.Background()

	res, err := f.orchestrator([]string{"280000"}).Run(ctx, pipeline.RunOptions{Forecasts: true})
	require.NoError(t, err)
	assert.Empty(t, res.Failed["forecast"])
	assert.Zero(t, res.Forecasts)

	forecasts, err := f.store.Forecasts(ctx)
	require.NoError(t, err)
	assert.Empty(t, forecasts)

	for _, metric := range []string{domain.MetricWeatherCode, domain.MetricTemperature, domain.MetricWindSpeed} {
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.MetricDrops.WithLabelValues(metric)), 0, metric)
	}
}

func TestOrchestrator_Run_WithTargetDate(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	domain.SetClock(clockwork.NewFakeClockAt(jst10May.AddDate(0, 1, 0)))
	ctx := context.Background()

	res, err := f.orchestrator([]string{"280000"}, pipeline.WithTargetDate(may11)).Run(ctx, bothKinds)
	require.NoError(t, err)
	assert.Equal(t, may11, res.Target)

	forecasts, err := f.store.Forecasts(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(wantForecasts, forecasts); diff != "" {
		t.Errorf("forecasts mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, testutil.ToFloat64(f.metrics.MetricDrops.WithLabelValues(domain.MetricWeatherCode)))
}

func TestOrchestrator_Run_MalformedDocument(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	f.fetcher.dir = t.TempDir()
	writeFile(t, f.fetcher.dir, "forecast/data/forecast/280000.json", `[{"timeSeries": []}]`)
	writeFile(t, f.fetcher.dir, "probability/data/probability/280000.json", `[]`)
	writeFile(t, f.fetcher.dir, "warning/data/warning/280000.json", `{"areaTypes": "none"}`)

	res, err := f.orchestrator([]string{"280000"}).Run(context.Background(), bothKinds)
	require.ErrorIs(t, err, pipeline.ErrAllPrefecturesFailed)
	assert.Equal(t, []string{"280000"}, res.Failed["forecast"])
	assert.Equal(t, []string{"280000"}, res.Failed["warning"])
}

func TestOrchestrator_Run_WarningsOnly(t *testing.T) {
	f := newFixture(t)

	res, err := f.orchestrator([]string{"280000"}).Run(context.Background(), pipeline.RunOptions{Warnings: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Warnings)
	assert.Zero(t, f.fetcher.count("forecast/data/forecast/280000.json"))
	assert.Zero(t, f.fetcher.count("probability/data/probability/280000.json"))
}

func TestOrchestrator_Run_CustomWhitelist(t *testing.T) {
	f := newFixture(t)
	whitelist := domain.NewWhitelist(map[string]string{"99": "その他"})

	_, err := f.orchestrator([]string{"280000"}, pipeline.WithWhitelist(whitelist)).
		Run(context.Background(), pipeline.RunOptions{Warnings: true})
	require.NoError(t, err)

	warnings, err := f.store.Warnings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.WarningRecord{{SubRegionID: "280020", Warnings: []string{"その他"}}}, warnings)
}

func TestOrchestrator_Run_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.loadMaster(t)
	f.store.Fail = errors.New("database is locked")

	_, err := f.orchestrator([]string{"280000"}).Run(context.Background(), bothKinds)
	require.Error(t, err)
	assert.ErrorContains(t, err, "replace forecasts")
	assert.ErrorContains(t, err, "replace warnings")
}

func TestOrchestrator_Run_Publisher(t *testing.T) {
	t.Run("publishes after storing", func(t *testing.T) {
		f := newFixture(t)
		f.loadMaster(t)
		pub := &recordingPublisher{}

		_, err := f.orchestrator([]string{"280000"}, pipeline.WithPublisher(pub)).Run(context.Background(), bothKinds)
		require.NoError(t, err)
		assert.Equal(t, wantForecasts, pub.forecasts)
		assert.Equal(t, wantWarnings, pub.warnings)
		assert.Equal(t, []domain.Date{may11, may11}, pub.targets)
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		f := newFixture(t)
		pub := &recordingPublisher{err: errors.New("broker down")}

		_, err := f.orchestrator([]string{"280000"}, pipeline.WithPublisher(pub)).Run(context.Background(), bothKinds)
		require.NoError(t, err)

		warnings, err := f.store.Warnings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, wantWarnings, warnings)
	})
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := f.orchestrator([]string{"280000"}).Run(ctx, bothKinds)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
