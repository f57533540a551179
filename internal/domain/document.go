package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Positions inside the JMA bosai documents. The feed has no published schema;
// these follow the layout served at https://www.jma.go.jp/bosai/ and are checked
// by the accessors below before use.
const (
	shortTermReport            = 0 // forecast[0]: three-day forecast
	shortTermWeatherSeries     = 0 // forecast[0].timeSeries[0]: weatherCodes by sub-region
	shortTermTemperatureSeries = 2 // forecast[0].timeSeries[2]: temps by station

	probabilityReport     = 0 // probability[0]
	probabilityWindSeries = 1 // probability[0].timeSeries[1]: wind by sub-region
	windPropertyMaxSpeed  = 3 // properties[3]: maximum wind speed
	windLocalLand         = 0 // timeCells[i].locals[0]: value over land

	warningSubRegionAreaType = 0 // areaTypes[0]: areas keyed by sub-region
)

// AreaEntry is one code's record in the area master.
type AreaEntry struct {
	Name     string   `json:"name"`
	EnName   string   `json:"enName,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// AreaDocument is common/const/area.json.
type AreaDocument struct {
	Centers  map[string]AreaEntry `json:"centers"`
	Offices  map[string]AreaEntry `json:"offices"`
	Class10s map[string]AreaEntry `json:"class10s"`
	Class15s map[string]AreaEntry `json:"class15s"`
	Class20s map[string]AreaEntry `json:"class20s"`
}

// ForecastAreaEntry maps one city to its sub-region and stations.
type ForecastAreaEntry struct {
	Class10 string   `json:"class10"`
	Class20 string   `json:"class20"`
	Amedas  []string `json:"amedas"`
}

// ForecastAreaDocument is forecast/const/forecast_area.json, keyed by office code.
type ForecastAreaDocument map[string][]ForecastAreaEntry

// ForecastDocument is forecast/data/forecast/<office>.json.
type ForecastDocument []ForecastReport

type ForecastReport struct {
	PublishingOffice string           `json:"publishingOffice"`
	ReportDatetime   string           `json:"reportDatetime"`
	TimeSeries       []ForecastSeries `json:"timeSeries"`
}

type ForecastSeries struct {
	TimeDefines []string       `json:"timeDefines"`
	Areas       []ForecastArea `json:"areas"`
}

type ForecastArea struct {
	Area         AreaRef   `json:"area"`
	WeatherCodes []string  `json:"weatherCodes,omitempty"`
	Temps        []Reading `json:"temps,omitempty"`
}

type AreaRef struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ProbabilityDocument is probability/data/probability/<office>.json.
type ProbabilityDocument []ProbabilityReport

type ProbabilityReport struct {
	PublishingOffice string              `json:"publishingOffice"`
	ReportDatetime   string              `json:"reportDatetime"`
	TimeSeries       []ProbabilitySeries `json:"timeSeries"`
}

type ProbabilitySeries struct {
	TimeDefines []string          `json:"timeDefines"`
	Areas       []ProbabilityArea `json:"areas"`
}

type ProbabilityArea struct {
	Code       string                `json:"code"`
	Properties []ProbabilityProperty `json:"properties"`
}

type ProbabilityProperty struct {
	Type      string     `json:"type"`
	TimeCells []TimeCell `json:"timeCells"`
}

type TimeCell struct {
	Locals []LocalValue `json:"locals"`
}

type LocalValue struct {
	Value Reading `json:"value"`
}

// WarningDocument is warning/data/warning/<office>.json.
type WarningDocument struct {
	ReportDatetime string            `json:"reportDatetime"`
	AreaTypes      []WarningAreaType `json:"areaTypes"`
}

type WarningAreaType struct {
	Areas []WarningArea `json:"areas"`
}

type WarningArea struct {
	Code     string         `json:"code"`
	Warnings []WarningEntry `json:"warnings,omitempty"`
}

type WarningEntry struct {
	Code   string `json:"code"`
	Status string `json:"status,omitempty"`
}

// Reading is a numeric cell that JMA serializes as a string, a number, or an
// empty string when no value is published for the slot.
type Reading string

// UnmarshalJSON accepts strings, numbers and null.
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Reading(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("reading: %w", err)
		}
		*r = Reading(n.String())
	}
	return nil
}

// Decimal parses the reading. ok is false for blank or non-numeric cells.
func (r Reading) Decimal() (decimal.Decimal, bool) {
	if r == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(string(r))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (d ForecastDocument) series(index int) (ForecastSeries, error) {
	if len(d) <= shortTermReport {
		return ForecastSeries{}, schemaErrorf("forecast: %d reports, want report [%d]", len(d), shortTermReport)
	}
	ts := d[shortTermReport].TimeSeries
	if len(ts) <= index {
		return ForecastSeries{}, schemaErrorf("forecast[%d].timeSeries: %d series, want series [%d]",
			shortTermReport, len(ts), index)
	}
	return ts[index], nil
}

// WeatherSeries returns the short-term weather code series.
func (d ForecastDocument) WeatherSeries() (ForecastSeries, error) {
	return d.series(shortTermWeatherSeries)
}

// TemperatureSeries returns the short-term per-station temperature series.
func (d ForecastDocument) TemperatureSeries() (ForecastSeries, error) {
	return d.series(shortTermTemperatureSeries)
}

// WindSeries returns the wind probability series.
func (d ProbabilityDocument) WindSeries() (ProbabilitySeries, error) {
	if len(d) <= probabilityReport {
		return ProbabilitySeries{}, schemaErrorf("probability: %d reports, want report [%d]", len(d), probabilityReport)
	}
	ts := d[probabilityReport].TimeSeries
	if len(ts) <= probabilityWindSeries {
		return ProbabilitySeries{}, schemaErrorf("probability[%d].timeSeries: %d series, want series [%d]",
			probabilityReport, len(ts), probabilityWindSeries)
	}
	return ts[probabilityWindSeries], nil
}

// MaxWindOverLand returns the land value of the maximum wind speed property at
// time cell i.
func (a ProbabilityArea) MaxWindOverLand(i int) (Reading, error) {
	if len(a.Properties) <= windPropertyMaxSpeed {
		return "", schemaErrorf("area %s: %d properties, want property [%d]", a.Code, len(a.Properties), windPropertyMaxSpeed)
	}
	cells := a.Properties[windPropertyMaxSpeed].TimeCells
	if len(cells) <= i {
		return "", schemaErrorf("area %s: properties[%d] has %d time cells, want cell [%d]",
			a.Code, windPropertyMaxSpeed, len(cells), i)
	}
	locals := cells[i].Locals
	if len(locals) <= windLocalLand {
		return "", schemaErrorf("area %s: properties[%d].timeCells[%d] has no locals",
			a.Code, windPropertyMaxSpeed, i)
	}
	return locals[windLocalLand].Value, nil
}

// SubRegionAreas returns the warning areas keyed by sub-region.
func (d WarningDocument) SubRegionAreas() ([]WarningArea, error) {
	if len(d.AreaTypes) <= warningSubRegionAreaType {
		return nil, schemaErrorf("warning.areaTypes: %d groups, want group [%d]", len(d.AreaTypes), warningSubRegionAreaType)
	}
	return d.AreaTypes[warningSubRegionAreaType].Areas, nil
}
