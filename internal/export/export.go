// Package export writes the stored forecast and warning tables as one flat
// table per sub-region, in Parquet or Excel form.
package export

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

// Formats accepted by Write.
const (
	FormatParquet = "parquet"
	FormatXLSX    = "xlsx"
)

const sheetName = "forecasts"

// Row joins a sub-region's forecast and warnings.
type Row struct {
	SubRegionID    string   `parquet:"sub_region_id"`
	PrefectureID   string   `parquet:"prefecture_id"`
	SubRegionName  string   `parquet:"sub_region_name"`
	WeatherCode    string   `parquet:"weather_code"`
	MinTemperature *float64 `parquet:"min_temperature"`
	MaxTemperature *float64 `parquet:"max_temperature"`
	WindSpeed      *float64 `parquet:"wind_speed"`
	Warnings       []string `parquet:"warnings,list"`
}

// Rows joins forecasts and warnings on sub-region ID and labels each row with
// its prefecture and name when the sub-region is known. Rows are sorted by ID.
func Rows(subRegions []domain.SubRegion, forecasts []domain.ForecastRecord, warnings []domain.WarningRecord) []Row {
	known := make(map[string]domain.SubRegion, len(subRegions))
	for _, sr := range subRegions {
		known[sr.ID] = sr
	}

	byID := make(map[string]*Row)
	get := func(id string) *Row {
		r, ok := byID[id]
		if !ok {
			sr := known[id]
			r = &Row{SubRegionID: id, PrefectureID: sr.PrefectureID, SubRegionName: sr.Name}
			byID[id] = r
		}
		return r
	}
	for _, f := range forecasts {
		r := get(f.SubRegionID)
		r.WeatherCode = f.WeatherCode
		r.MinTemperature = f.MinTemperature
		r.MaxTemperature = f.MaxTemperature
		r.WindSpeed = f.WindSpeed
	}
	for _, w := range warnings {
		get(w.SubRegionID).Warnings = slices.Clone(w.Warnings)
	}

	out := make([]Row, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, *byID[id])
	}
	return out
}

// Write encodes rows in the given format.
func Write(w io.Writer, format string, rows []Row) error {
	switch format {
	case FormatParquet:
		return WriteParquet(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteParquet writes rows as a single Parquet file.
func WriteParquet(w io.Writer, rows []Row) error {
	if err := parquet.Write(w, rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

var xlsxHeader = []any{
	"sub_region_id", "prefecture_id", "sub_region_name", "weather_code",
	"min_temperature", "max_temperature", "wind_speed", "warnings",
}

// WriteXLSX writes rows to a workbook with one sheet. Missing metrics are left
// as empty cells and warning labels are joined with "、".
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.SubRegionID, r.PrefectureID, r.SubRegionName, r.WeatherCode,
			cellValue(r.MinTemperature), cellValue(r.MaxTemperature), cellValue(r.WindSpeed),
			strings.Join(r.Warnings, "、"),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
