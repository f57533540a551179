package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Metric names used in SubRegionIssue and metrics labels.
const (
	MetricWeatherCode = "weather_code"
	MetricTemperature = "temperature"
	MetricWindSpeed   = "wind_speed"
)

// SubRegionIssue is a sub-region left out of one metric's output.
type SubRegionIssue struct {
	SubRegionID string
	Metric      string
	Err         error
}

// TemperatureRange is the averaged morning minimum and daytime maximum of a sub-region.
type TemperatureRange struct {
	Min float64
	Max float64
}

// ExtractWeatherCodes returns the target-date weather code of each sub-region in
// the short-term weather series. If the date is absent the error wraps
// ErrTargetDateMissing. The series carries one slot per day, so when more than
// one slot matches the first is used.
func ExtractWeatherCodes(doc ForecastDocument, target Date) (map[string]string, error) {
	series, err := doc.WeatherSeries()
	if err != nil {
		return nil, err
	}
	indices, err := ResolveDateIndices(series.TimeDefines, target)
	if err != nil {
		return nil, fmt.Errorf("weather series: %w", err)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("weather series: %w: %s", ErrTargetDateMissing, target)
	}
	idx := indices[0]

	codes := make(map[string]string, len(series.Areas))
	for _, area := range series.Areas {
		if len(area.WeatherCodes) <= idx || area.WeatherCodes[idx] == "" {
			continue
		}
		codes[area.Area.Code] = area.WeatherCodes[idx]
	}
	return codes, nil
}

// AggregateTemperatures averages the target-date station temperatures of every
// sub-region of prefectureID known to index.
//
// The temperature series reports two slots per day: the first is the morning
// minimum and the second the daytime maximum. Any other number of slots for the
// target date wraps ErrTemperatureSlots and fails the whole document. A
// sub-region with no usable station value in either column is reported as an
// issue and left out.
func AggregateTemperatures(doc ForecastDocument, target Date, prefectureID string, index *StationIndex) (map[string]TemperatureRange, []SubRegionIssue, error) {
	series, err := doc.TemperatureSeries()
	if err != nil {
		return nil, nil, err
	}
	indices, err := ResolveDateIndices(series.TimeDefines, target)
	if err != nil {
		return nil, nil, fmt.Errorf("temperature series: %w", err)
	}
	if len(indices) != 2 {
		return nil, nil, fmt.Errorf("temperature series: %w: %d slots on %s", ErrTemperatureSlots, len(indices), target)
	}
	minIdx, maxIdx := indices[0], indices[1]

	temps := make(map[string][]Reading, len(series.Areas))
	for _, area := range series.Areas {
		temps[area.Area.Code] = area.Temps
	}

	ranges := make(map[string]TemperatureRange)
	var issues []SubRegionIssue
	for _, subRegionID := range index.SubRegions(prefectureID) {
		var mins, maxs []decimal.Decimal
		for _, stationID := range index.Stations(subRegionID) {
			readings, ok := temps[stationID]
			if !ok {
				continue
			}
			if v, ok := readingAt(readings, minIdx); ok {
				mins = append(mins, v)
			}
			if v, ok := readingAt(readings, maxIdx); ok {
				maxs = append(maxs, v)
			}
		}
		lo, errLo := Mean(mins)
		hi, errHi := Mean(maxs)
		if errLo != nil || errHi != nil {
			issues = append(issues, SubRegionIssue{
				SubRegionID: subRegionID,
				Metric:      MetricTemperature,
				Err:         fmt.Errorf("%d minimum and %d maximum readings: %w", len(mins), len(maxs), ErrEmptySample),
			})
			continue
		}
		ranges[subRegionID] = TemperatureRange{Min: lo, Max: hi}
	}
	return ranges, issues, nil
}

func readingAt(readings []Reading, i int) (decimal.Decimal, bool) {
	if i >= len(readings) {
		return decimal.Decimal{}, false
	}
	return readings[i].Decimal()
}
