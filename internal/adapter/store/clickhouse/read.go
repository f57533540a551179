package clickhouse

import (
	"context"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

type regionRow struct {
	ID   string `ch:"id"`
	Name string `ch:"name"`
}

type prefectureRow struct {
	ID       string `ch:"id"`
	RegionID string `ch:"region_id"`
	Name     string `ch:"name"`
}

type subRegionRow struct {
	ID           string `ch:"id"`
	PrefectureID string `ch:"prefecture_id"`
	Name         string `ch:"name"`
}

type cityRow struct {
	ID           string `ch:"id"`
	PrefectureID string `ch:"prefecture_id"`
	SubRegionID  string `ch:"sub_region_id"`
	Name         string `ch:"name"`
}

type stationRow struct {
	ID          string `ch:"id"`
	SubRegionID string `ch:"sub_region_id"`
}

type forecastRow struct {
	SubRegionID    string   `ch:"sub_region_id"`
	WeatherCode    *string  `ch:"weather_code"`
	MinTemperature *float64 `ch:"min_temperature"`
	MaxTemperature *float64 `ch:"max_temperature"`
	WindSpeed      *float64 `ch:"wind_speed"`
}

type warningRow struct {
	SubRegionID string   `ch:"sub_region_id"`
	Warnings    []string `ch:"warnings"`
}

func selectRows[R, D any](ctx context.Context, s *Store, query string, conv func(R) D) ([]D, error) {
	var rows []R
	if err := s.conn.Select(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]D, len(rows))
	for i, r := range rows {
		out[i] = conv(r)
	}
	return out, nil
}

func (s *Store) Regions(ctx context.Context) ([]domain.Region, error) {
	return selectRows(ctx, s, "SELECT id, name FROM jma_regions ORDER BY id",
		func(r regionRow) domain.Region { return domain.Region(r) })
}

func (s *Store) Prefectures(ctx context.Context) ([]domain.Prefecture, error) {
	return selectRows(ctx, s, "SELECT id, region_id, name FROM jma_prefectures ORDER BY id",
		func(r prefectureRow) domain.Prefecture { return domain.Prefecture(r) })
}

func (s *Store) SubRegions(ctx context.Context) ([]domain.SubRegion, error) {
	return selectRows(ctx, s, "SELECT id, prefecture_id, name FROM jma_sub_regions ORDER BY id",
		func(r subRegionRow) domain.SubRegion { return domain.SubRegion(r) })
}

func (s *Store) Cities(ctx context.Context) ([]domain.City, error) {
	return selectRows(ctx, s, "SELECT id, prefecture_id, sub_region_id, name FROM jma_cities ORDER BY id",
		func(r cityRow) domain.City { return domain.City(r) })
}

func (s *Store) Stations(ctx context.Context) ([]domain.Station, error) {
	return selectRows(ctx, s, "SELECT id, sub_region_id FROM jma_stations ORDER BY id",
		func(r stationRow) domain.Station { return domain.Station(r) })
}

func (s *Store) Forecasts(ctx context.Context) ([]domain.ForecastRecord, error) {
	return selectRows(ctx, s,
		"SELECT sub_region_id, weather_code, min_temperature, max_temperature, wind_speed FROM jma_forecasts ORDER BY sub_region_id",
		func(r forecastRow) domain.ForecastRecord {
			rec := domain.ForecastRecord{
				SubRegionID:    r.SubRegionID,
				MinTemperature: r.MinTemperature,
				MaxTemperature: r.MaxTemperature,
				WindSpeed:      r.WindSpeed,
			}
			if r.WeatherCode != nil {
				rec.WeatherCode = *r.WeatherCode
			}
			return rec
		})
}

func (s *Store) Warnings(ctx context.Context) ([]domain.WarningRecord, error) {
	return selectRows(ctx, s, "SELECT sub_region_id, warnings FROM jma_warnings ORDER BY sub_region_id",
		func(r warningRow) domain.WarningRecord { return domain.WarningRecord(r) })
}
