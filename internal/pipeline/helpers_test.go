package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/adapter/jma"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/memory"
	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/couchcryptid/jma-weather-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// jst10May is the afternoon before the fixtures' target date.
var jst10May = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))

var may11 = domain.Date{Year: 2024, Month: time.May, Day: 11}

// dirFetcher serves feed paths from testdata and records every request.
type dirFetcher struct {
	dir string

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

func newDirFetcher() *dirFetcher {
	return &dirFetcher{dir: "testdata", fail: map[string]error{}, calls: map[string]int{}}
}

func (f *dirFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls[path]++
	err := f.fail[path]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return data, nil
}

func (f *dirFetcher) setFailure(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, path)
		return
	}
	f.fail[path] = err
}

func (f *dirFetcher) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// freezeTargetDate pins domain.TargetDate to 2024-05-11 for the test.
func freezeTargetDate(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(jst10May))
	t.Cleanup(func() { domain.SetClock(nil) })
}

type fixture struct {
	fetcher *dirFetcher
	source  *jma.Client
	store   *memory.Store
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	freezeTargetDate(t)
	metrics := newTestMetrics()
	fetcher := newDirFetcher()
	return &fixture{
		fetcher: fetcher,
		source:  jma.NewClient(fetcher, metrics),
		store:   memory.New(),
		metrics: metrics,
	}
}

func (f *fixture) master() *pipeline.MasterPipeline {
	return pipeline.NewMasterPipeline(f.source, f.store, discardLogger(), f.metrics)
}

func (f *fixture) orchestrator(prefectures []string, opts ...pipeline.OrchestratorOption) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(f.source, f.store, prefectures, discardLogger(), f.metrics, opts...)
}

func (f *fixture) loadMaster(t *testing.T) {
	t.Helper()
	_, err := f.master().Run(context.Background())
	require.NoError(t, err)
}

type recordingPublisher struct {
	err       error
	forecasts []domain.ForecastRecord
	warnings  []domain.WarningRecord
	targets   []domain.Date
}

func (p *recordingPublisher) PublishForecasts(_ context.Context, target domain.Date, records []domain.ForecastRecord) error {
	p.targets = append(p.targets, target)
	p.forecasts = append(p.forecasts, records...)
	return p.err
}

func (p *recordingPublisher) PublishWarnings(_ context.Context, target domain.Date, records []domain.WarningRecord) error {
	p.targets = append(p.targets, target)
	p.warnings = append(p.warnings, records...)
	return p.err
}

func ptr(v float64) *float64 { return &v }

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}
