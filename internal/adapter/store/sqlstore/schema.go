package sqlstore

// schema is valid in both SQLite and PostgreSQL. Tables carry no foreign keys
// because each one is replaced on its own.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jma_regions (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jma_prefectures (
		id        TEXT PRIMARY KEY,
		region_id TEXT NOT NULL,
		name      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jma_sub_regions (
		id            TEXT PRIMARY KEY,
		prefecture_id TEXT NOT NULL,
		name          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jma_cities (
		id            TEXT PRIMARY KEY,
		prefecture_id TEXT NOT NULL,
		sub_region_id TEXT NOT NULL,
		name          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jma_stations (
		id            TEXT PRIMARY KEY,
		sub_region_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jma_forecasts (
		sub_region_id   TEXT PRIMARY KEY,
		weather_code    TEXT,
		min_temperature DOUBLE PRECISION,
		max_temperature DOUBLE PRECISION,
		wind_speed      DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS jma_warnings (
		sub_region_id TEXT PRIMARY KEY,
		warnings      TEXT NOT NULL
	)`,
}
