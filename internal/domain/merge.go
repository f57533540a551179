package domain

import (
	"maps"
	"slices"
)

// ForecastPartials holds one prefecture's per-metric results keyed by sub-region.
// Any map may be nil when its source series was unavailable.
type ForecastPartials struct {
	WeatherCodes map[string]string
	Temperatures map[string]TemperatureRange
	WindSpeeds   map[string]float64
}

// MergeForecasts joins partial results on sub-region ID. Every sub-region present
// in any partial yields exactly one record; metrics absent from a partial stay
// nil. The result is sorted by sub-region ID.
func MergeForecasts(parts ...ForecastPartials) []ForecastRecord {
	byID := make(map[string]*ForecastRecord)
	get := func(id string) *ForecastRecord {
		r, ok := byID[id]
		if !ok {
			r = &ForecastRecord{SubRegionID: id}
			byID[id] = r
		}
		return r
	}

	for _, p := range parts {
		for id, code := range p.WeatherCodes {
			get(id).WeatherCode = code
		}
		for id, t := range p.Temperatures {
			r := get(id)
			r.MinTemperature = ptr(t.Min)
			r.MaxTemperature = ptr(t.Max)
		}
		for id, speed := range p.WindSpeeds {
			get(id).WindSpeed = ptr(speed)
		}
	}

	out := make([]ForecastRecord, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, *byID[id])
	}
	return out
}

func ptr[T any](v T) *T { return &v }
