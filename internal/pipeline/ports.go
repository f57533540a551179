package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

var (
	// ErrNoPrefectures reports a forecast or warning run with no prefectures configured.
	ErrNoPrefectures = errors.New("no prefectures configured")

	// ErrAllPrefecturesFailed reports a run in which no prefecture produced a
	// usable document. Stored rows are left untouched.
	ErrAllPrefecturesFailed = errors.New("every prefecture failed")
)

// Source retrieves decoded JMA documents.
type Source interface {
	AreaMaster(ctx context.Context) (domain.AreaDocument, error)
	ForecastAreas(ctx context.Context) (domain.ForecastAreaDocument, error)
	Forecast(ctx context.Context, prefectureID string) (domain.ForecastDocument, error)
	Probability(ctx context.Context, prefectureID string) (domain.ProbabilityDocument, error)
	Warning(ctx context.Context, prefectureID string) (domain.WarningDocument, error)
}

// HierarchyStore persists the master tables. Each Replace call swaps the whole
// table atomically.
type HierarchyStore interface {
	ReplaceRegions(ctx context.Context, rows []domain.Region) error
	ReplacePrefectures(ctx context.Context, rows []domain.Prefecture) error
	ReplaceSubRegions(ctx context.Context, rows []domain.SubRegion) error
	ReplaceCities(ctx context.Context, rows []domain.City) error
	ReplaceStations(ctx context.Context, rows []domain.Station) error

	Regions(ctx context.Context) ([]domain.Region, error)
	Prefectures(ctx context.Context) ([]domain.Prefecture, error)
	SubRegions(ctx context.Context) ([]domain.SubRegion, error)
	Cities(ctx context.Context) ([]domain.City, error)
	Stations(ctx context.Context) ([]domain.Station, error)
}

// RecordStore persists the derived forecast and warning tables.
type RecordStore interface {
	ReplaceForecasts(ctx context.Context, rows []domain.ForecastRecord) error
	ReplaceWarnings(ctx context.Context, rows []domain.WarningRecord) error

	Forecasts(ctx context.Context) ([]domain.ForecastRecord, error)
	Warnings(ctx context.Context) ([]domain.WarningRecord, error)
}

// Store is the full persistence surface implemented by every store adapter.
type Store interface {
	HierarchyStore
	RecordStore
}

// Publisher forwards finalized records downstream. It is optional.
type Publisher interface {
	PublishForecasts(ctx context.Context, target domain.Date, records []domain.ForecastRecord) error
	PublishWarnings(ctx context.Context, target domain.Date, records []domain.WarningRecord) error
}
