// Package clickhouse persists the tables in ClickHouse. A replace fills a
// staging table and swaps it in with EXCHANGE TABLES, so readers never see a
// partially written table.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

type table struct {
	name    string
	columns string
	orderBy string
}

var (
	regions     = table{"jma_regions", "id String, name String", "id"}
	prefectures = table{"jma_prefectures", "id String, region_id String, name String", "id"}
	subRegions  = table{"jma_sub_regions", "id String, prefecture_id String, name String", "id"}
	cities      = table{"jma_cities", "id String, prefecture_id String, sub_region_id String, name String", "id"}
	stations    = table{"jma_stations", "id String, sub_region_id String", "id"}
	forecasts   = table{"jma_forecasts", "sub_region_id String, weather_code Nullable(String), min_temperature Nullable(Float64), max_temperature Nullable(Float64), wind_speed Nullable(Float64)", "sub_region_id"}
	warnings    = table{"jma_warnings", "sub_region_id String, warnings Array(String)", "sub_region_id"}

	allTables = []table{regions, prefectures, subRegions, cities, stations, forecasts, warnings}
)

// Store is a ClickHouse-backed store.
type Store struct {
	conn driver.Conn
}

// Open connects using a clickhouse:// DSN and creates missing tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	opts.MaxOpenConns = 2
	opts.MaxIdleConns = 1
	opts.ConnMaxLifetime = time.Hour
	opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	for _, t := range allTables {
		if err := conn.Exec(ctx, t.createStmt(t.name)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("create %s: %w", t.name, err)
		}
	}
	return &Store{conn: conn}, nil
}

func (t table) createStmt(name string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree ORDER BY %s", name, t.columns, t.orderBy)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// replace writes n rows into a fresh staging table and exchanges it with the
// live one. appendRow appends row i to the batch.
func (s *Store) replace(ctx context.Context, t table, n int, appendRow func(b driver.Batch, i int) error) error {
	staging := t.name + "_staging"
	if err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
		return fmt.Errorf("drop %s: %w", staging, err)
	}
	if err := s.conn.Exec(ctx, t.createStmt(staging)); err != nil {
		return fmt.Errorf("create %s: %w", staging, err)
	}

	if n > 0 {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+staging)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", staging, err)
		}
		for i := range n {
			if err := appendRow(batch, i); err != nil {
				_ = batch.Abort()
				return fmt.Errorf("append %s: %w", staging, err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send %s: %w", staging, err)
		}
	}

	if err := s.conn.Exec(ctx, fmt.Sprintf("EXCHANGE TABLES %s AND %s", staging, t.name)); err != nil {
		return fmt.Errorf("exchange %s: %w", t.name, err)
	}
	if err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
		return fmt.Errorf("drop %s: %w", staging, err)
	}
	return nil
}

func (s *Store) ReplaceRegions(ctx context.Context, rows []domain.Region) error {
	return s.replace(ctx, regions, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].ID, rows[i].Name)
	})
}

func (s *Store) ReplacePrefectures(ctx context.Context, rows []domain.Prefecture) error {
	return s.replace(ctx, prefectures, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].ID, rows[i].RegionID, rows[i].Name)
	})
}

func (s *Store) ReplaceSubRegions(ctx context.Context, rows []domain.SubRegion) error {
	return s.replace(ctx, subRegions, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].ID, rows[i].PrefectureID, rows[i].Name)
	})
}

func (s *Store) ReplaceCities(ctx context.Context, rows []domain.City) error {
	return s.replace(ctx, cities, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].ID, rows[i].PrefectureID, rows[i].SubRegionID, rows[i].Name)
	})
}

func (s *Store) ReplaceStations(ctx context.Context, rows []domain.Station) error {
	return s.replace(ctx, stations, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].ID, rows[i].SubRegionID)
	})
}

func (s *Store) ReplaceForecasts(ctx context.Context, rows []domain.ForecastRecord) error {
	return s.replace(ctx, forecasts, len(rows), func(b driver.Batch, i int) error {
		r := rows[i]
		var code *string
		if r.WeatherCode != "" {
			code = &r.WeatherCode
		}
		return b.Append(r.SubRegionID, code, r.MinTemperature, r.MaxTemperature, r.WindSpeed)
	})
}

func (s *Store) ReplaceWarnings(ctx context.Context, rows []domain.WarningRecord) error {
	return s.replace(ctx, warnings, len(rows), func(b driver.Batch, i int) error {
		return b.Append(rows[i].SubRegionID, rows[i].Warnings)
	})
}
