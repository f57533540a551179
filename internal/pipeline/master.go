package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/google/uuid"
)

const kindMaster = "master"

// MasterResult summarizes one rebuild of the area hierarchy.
type MasterResult struct {
	Regions     int
	Prefectures int
	SubRegions  int
	Cities      int
	Stations    int
	Excluded    []domain.UnmatchedStation
	Conflicts   []domain.StationConflict
}

// MasterPipeline rebuilds the hierarchy and station tables from the area master
// and forecast-area documents.
type MasterPipeline struct {
	source  Source
	store   HierarchyStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMasterPipeline creates a MasterPipeline.
func NewMasterPipeline(source Source, store HierarchyStore, logger *slog.Logger, metrics *observability.Metrics) *MasterPipeline {
	return &MasterPipeline{source: source, store: store, logger: logger, metrics: metrics}
}

// Run fetches both master documents before touching the store, so a failed
// fetch or an inconsistent hierarchy leaves the previous tables in place.
// Tables are then replaced one at a time in parent-first order.
func (m *MasterPipeline) Run(ctx context.Context) (MasterResult, error) {
	start := time.Now()
	logger := m.logger.With("run_id", uuid.NewString(), "kind", kindMaster)
	logger.Info("master run started")

	res, err := m.run(ctx, logger)
	recordRun(m.metrics, kindMaster, start, err)
	if err != nil {
		logger.Error("master run failed", "error", err)
		return res, err
	}

	logger.Info("master run finished",
		"regions", res.Regions,
		"prefectures", res.Prefectures,
		"sub_regions", res.SubRegions,
		"cities", res.Cities,
		"stations", res.Stations,
		"excluded_stations", len(res.Excluded),
		"duration", time.Since(start),
	)
	return res, nil
}

func (m *MasterPipeline) run(ctx context.Context, logger *slog.Logger) (MasterResult, error) {
	areas, err := m.source.AreaMaster(ctx)
	if err != nil {
		return MasterResult{}, fmt.Errorf("fetch area master: %w", err)
	}
	forecastAreas, err := m.source.ForecastAreas(ctx)
	if err != nil {
		return MasterResult{}, fmt.Errorf("fetch forecast areas: %w", err)
	}

	h, err := domain.BuildHierarchy(areas)
	if err != nil {
		return MasterResult{}, fmt.Errorf("build hierarchy: %w", err)
	}

	assoc := domain.AssociateStations(forecastAreas, h.CityIndex())
	for _, u := range assoc.Excluded {
		logger.Warn("station excluded, city not in hierarchy", "station", u.StationID, "city", u.CityID)
	}
	for _, c := range assoc.Conflicts {
		logger.Warn("station listed under several sub-regions, keeping first",
			"station", c.StationID, "kept", c.Kept, "dropped", c.Dropped)
	}
	m.metrics.StationsExcluded.Set(float64(len(assoc.Excluded)))

	res := MasterResult{
		Regions:     len(h.Regions),
		Prefectures: len(h.Prefectures),
		SubRegions:  len(h.SubRegions),
		Cities:      len(h.Cities),
		Stations:    len(assoc.Stations),
		Excluded:    assoc.Excluded,
		Conflicts:   assoc.Conflicts,
	}

	steps := []struct {
		table   string
		rows    int
		replace func() error
	}{
		{"regions", len(h.Regions), func() error { return m.store.ReplaceRegions(ctx, h.Regions) }},
		{"prefectures", len(h.Prefectures), func() error { return m.store.ReplacePrefectures(ctx, h.Prefectures) }},
		{"sub_regions", len(h.SubRegions), func() error { return m.store.ReplaceSubRegions(ctx, h.SubRegions) }},
		{"cities", len(h.Cities), func() error { return m.store.ReplaceCities(ctx, h.Cities) }},
		{"stations", len(assoc.Stations), func() error { return m.store.ReplaceStations(ctx, assoc.Stations) }},
	}
	for _, s := range steps {
		if err := s.replace(); err != nil {
			return res, fmt.Errorf("replace %s: %w", s.table, err)
		}
		m.metrics.RowsWritten.WithLabelValues(s.table).Add(float64(s.rows))
	}
	return res, nil
}

// recordRun updates the per-kind run counters shared by every pipeline.
func recordRun(metrics *observability.Metrics, kind string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.Runs.WithLabelValues(kind, outcome).Inc()
	metrics.RunDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.LastSuccess.WithLabelValues(kind).SetToCurrentTime()
	}
}
