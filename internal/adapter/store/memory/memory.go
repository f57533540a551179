// Package memory is an in-process store for tests and dry runs. Each table is
// swapped whole under a lock, so readers see either the old or the new set.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

// Store keeps every table as a slice. Readers get copies.
type Store struct {
	mu          sync.RWMutex
	regions     []domain.Region
	prefectures []domain.Prefecture
	subRegions  []domain.SubRegion
	cities      []domain.City
	stations    []domain.Station
	forecasts   []domain.ForecastRecord
	warnings    []domain.WarningRecord

	// Fail, when set, is returned by every Replace call. Tests use it to
	// simulate a failed write.
	Fail error
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func replace[T any](s *Store, dst *[]T, rows []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	*dst = slices.Clone(rows)
	return nil
}

func read[T any](s *Store, src *[]T) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(*src)
}

func (s *Store) ReplaceRegions(_ context.Context, rows []domain.Region) error {
	return replace(s, &s.regions, rows)
}

func (s *Store) ReplacePrefectures(_ context.Context, rows []domain.Prefecture) error {
	return replace(s, &s.prefectures, rows)
}

func (s *Store) ReplaceSubRegions(_ context.Context, rows []domain.SubRegion) error {
	return replace(s, &s.subRegions, rows)
}

func (s *Store) ReplaceCities(_ context.Context, rows []domain.City) error {
	return replace(s, &s.cities, rows)
}

func (s *Store) ReplaceStations(_ context.Context, rows []domain.Station) error {
	return replace(s, &s.stations, rows)
}

func (s *Store) ReplaceForecasts(_ context.Context, rows []domain.ForecastRecord) error {
	return replace(s, &s.forecasts, rows)
}

// ReplaceWarnings deep-copies the label slices.
func (s *Store) ReplaceWarnings(_ context.Context, rows []domain.WarningRecord) error {
	cp := make([]domain.WarningRecord, len(rows))
	for i, r := range rows {
		cp[i] = domain.WarningRecord{SubRegionID: r.SubRegionID, Warnings: slices.Clone(r.Warnings)}
	}
	return replace(s, &s.warnings, cp)
}

func (s *Store) Regions(context.Context) ([]domain.Region, error) {
	return read(s, &s.regions), nil
}

func (s *Store) Prefectures(context.Context) ([]domain.Prefecture, error) {
	return read(s, &s.prefectures), nil
}

func (s *Store) SubRegions(context.Context) ([]domain.SubRegion, error) {
	return read(s, &s.subRegions), nil
}

func (s *Store) Cities(context.Context) ([]domain.City, error) {
	return read(s, &s.cities), nil
}

func (s *Store) Stations(context.Context) ([]domain.Station, error) {
	return read(s, &s.stations), nil
}

func (s *Store) Forecasts(context.Context) ([]domain.ForecastRecord, error) {
	return read(s, &s.forecasts), nil
}

func (s *Store) Warnings(context.Context) ([]domain.WarningRecord, error) {
	return read(s, &s.warnings), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
