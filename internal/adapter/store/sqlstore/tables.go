package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

type regionRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type prefectureRow struct {
	ID       string `db:"id"`
	RegionID string `db:"region_id"`
	Name     string `db:"name"`
}

type subRegionRow struct {
	ID           string `db:"id"`
	PrefectureID string `db:"prefecture_id"`
	Name         string `db:"name"`
}

type cityRow struct {
	ID           string `db:"id"`
	PrefectureID string `db:"prefecture_id"`
	SubRegionID  string `db:"sub_region_id"`
	Name         string `db:"name"`
}

type stationRow struct {
	ID          string `db:"id"`
	SubRegionID string `db:"sub_region_id"`
}

type forecastRow struct {
	SubRegionID    string         `db:"sub_region_id"`
	WeatherCode    sql.NullString `db:"weather_code"`
	MinTemperature *float64       `db:"min_temperature"`
	MaxTemperature *float64       `db:"max_temperature"`
	WindSpeed      *float64       `db:"wind_speed"`
}

type warningRow struct {
	SubRegionID string `db:"sub_region_id"`
	Warnings    string `db:"warnings"` // JSON array of labels
}

func convert[S, D any](src []S, fn func(S) D) []D {
	out := make([]D, len(src))
	for i, s := range src {
		out[i] = fn(s)
	}
	return out
}

func (s *Store) ReplaceRegions(ctx context.Context, rows []domain.Region) error {
	return replaceTable(ctx, s.db, "jma_regions",
		`INSERT INTO jma_regions (id, name) VALUES (:id, :name)`,
		convert(rows, func(r domain.Region) regionRow { return regionRow(r) }))
}

func (s *Store) ReplacePrefectures(ctx context.Context, rows []domain.Prefecture) error {
	return replaceTable(ctx, s.db, "jma_prefectures",
		`INSERT INTO jma_prefectures (id, region_id, name) VALUES (:id, :region_id, :name)`,
		convert(rows, func(p domain.Prefecture) prefectureRow { return prefectureRow(p) }))
}

func (s *Store) ReplaceSubRegions(ctx context.Context, rows []domain.SubRegion) error {
	return replaceTable(ctx, s.db, "jma_sub_regions",
		`INSERT INTO jma_sub_regions (id, prefecture_id, name) VALUES (:id, :prefecture_id, :name)`,
		convert(rows, func(r domain.SubRegion) subRegionRow { return subRegionRow(r) }))
}

func (s *Store) ReplaceCities(ctx context.Context, rows []domain.City) error {
	return replaceTable(ctx, s.db, "jma_cities",
		`INSERT INTO jma_cities (id, prefecture_id, sub_region_id, name) VALUES (:id, :prefecture_id, :sub_region_id, :name)`,
		convert(rows, func(c domain.City) cityRow { return cityRow(c) }))
}

func (s *Store) ReplaceStations(ctx context.Context, rows []domain.Station) error {
	return replaceTable(ctx, s.db, "jma_stations",
		`INSERT INTO jma_stations (id, sub_region_id) VALUES (:id, :sub_region_id)`,
		convert(rows, func(st domain.Station) stationRow { return stationRow(st) }))
}

func (s *Store) ReplaceForecasts(ctx context.Context, rows []domain.ForecastRecord) error {
	return replaceTable(ctx, s.db, "jma_forecasts",
		`INSERT INTO jma_forecasts (sub_region_id, weather_code, min_temperature, max_temperature, wind_speed)
		 VALUES (:sub_region_id, :weather_code, :min_temperature, :max_temperature, :wind_speed)`,
		convert(rows, func(r domain.ForecastRecord) forecastRow {
			return forecastRow{
				SubRegionID:    r.SubRegionID,
				WeatherCode:    sql.NullString{String: r.WeatherCode, Valid: r.WeatherCode != ""},
				MinTemperature: r.MinTemperature,
				MaxTemperature: r.MaxTemperature,
				WindSpeed:      r.WindSpeed,
			}
		}))
}

func (s *Store) ReplaceWarnings(ctx context.Context, rows []domain.WarningRecord) error {
	out := make([]warningRow, len(rows))
	for i, r := range rows {
		labels, err := json.Marshal(r.Warnings)
		if err != nil {
			return fmt.Errorf("encode warnings for %s: %w", r.SubRegionID, err)
		}
		out[i] = warningRow{SubRegionID: r.SubRegionID, Warnings: string(labels)}
	}
	return replaceTable(ctx, s.db, "jma_warnings",
		`INSERT INTO jma_warnings (sub_region_id, warnings) VALUES (:sub_region_id, :warnings)`, out)
}

func (s *Store) Regions(ctx context.Context) ([]domain.Region, error) {
	rows, err := selectAll[regionRow](ctx, s.db, `SELECT id, name FROM jma_regions ORDER BY id`)
	return convert(rows, func(r regionRow) domain.Region { return domain.Region(r) }), err
}

func (s *Store) Prefectures(ctx context.Context) ([]domain.Prefecture, error) {
	rows, err := selectAll[prefectureRow](ctx, s.db, `SELECT id, region_id, name FROM jma_prefectures ORDER BY id`)
	return convert(rows, func(r prefectureRow) domain.Prefecture { return domain.Prefecture(r) }), err
}

func (s *Store) SubRegions(ctx context.Context) ([]domain.SubRegion, error) {
	rows, err := selectAll[subRegionRow](ctx, s.db, `SELECT id, prefecture_id, name FROM jma_sub_regions ORDER BY id`)
	return convert(rows, func(r subRegionRow) domain.SubRegion { return domain.SubRegion(r) }), err
}

func (s *Store) Cities(ctx context.Context) ([]domain.City, error) {
	rows, err := selectAll[cityRow](ctx, s.db, `SELECT id, prefecture_id, sub_region_id, name FROM jma_cities ORDER BY id`)
	return convert(rows, func(r cityRow) domain.City { return domain.City(r) }), err
}

func (s *Store) Stations(ctx context.Context) ([]domain.Station, error) {
	rows, err := selectAll[stationRow](ctx, s.db, `SELECT id, sub_region_id FROM jma_stations ORDER BY id`)
	return convert(rows, func(r stationRow) domain.Station { return domain.Station(r) }), err
}

func (s *Store) Forecasts(ctx context.Context) ([]domain.ForecastRecord, error) {
	rows, err := selectAll[forecastRow](ctx, s.db,
		`SELECT sub_region_id, weather_code, min_temperature, max_temperature, wind_speed FROM jma_forecasts ORDER BY sub_region_id`)
	return convert(rows, func(r forecastRow) domain.ForecastRecord {
		return domain.ForecastRecord{
			SubRegionID:    r.SubRegionID,
			WeatherCode:    r.WeatherCode.String,
			MinTemperature: r.MinTemperature,
			MaxTemperature: r.MaxTemperature,
			WindSpeed:      r.WindSpeed,
		}
	}), err
}

func (s *Store) Warnings(ctx context.Context) ([]domain.WarningRecord, error) {
	rows, err := selectAll[warningRow](ctx, s.db, `SELECT sub_region_id, warnings FROM jma_warnings ORDER BY sub_region_id`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WarningRecord, len(rows))
	for i, r := range rows {
		out[i].SubRegionID = r.SubRegionID
		if err := json.Unmarshal([]byte(r.Warnings), &out[i].Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings for %s: %w", r.SubRegionID, err)
		}
	}
	return out, nil
}
