// Package jma reads the Japan Meteorological Agency bosai JSON feed.
package jma

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
)

// Document kinds, used as metric labels.
const (
	DocArea         = "area"
	DocForecastArea = "forecast_area"
	DocForecast     = "forecast"
	DocProbability  = "probability"
	DocWarning      = "warning"
)

const (
	areaPath         = "common/const/area.json"
	forecastAreaPath = "forecast/const/forecast_area.json"
)

var prefectureCode = regexp.MustCompile(`^[0-9]{6}$`)

// Path returns the feed path of a document kind. Prefecture-scoped kinds need
// a six-digit office code.
func Path(kind, prefectureID string) (string, error) {
	switch kind {
	case DocArea:
		return areaPath, nil
	case DocForecastArea:
		return forecastAreaPath, nil
	}
	if !prefectureCode.MatchString(prefectureID) {
		return "", fmt.Errorf("invalid prefecture code %q", prefectureID)
	}
	switch kind {
	case DocForecast:
		return "forecast/data/forecast/" + prefectureID + ".json", nil
	case DocProbability:
		return "probability/data/probability/" + prefectureID + ".json", nil
	case DocWarning:
		return "warning/data/warning/" + prefectureID + ".json", nil
	}
	return "", fmt.Errorf("unknown document kind %q", kind)
}

// Client decodes feed documents into domain types.
type Client struct {
	fetcher Fetcher
	metrics *observability.Metrics
}

// NewClient creates a client over any Fetcher.
func NewClient(fetcher Fetcher, metrics *observability.Metrics) *Client {
	return &Client{fetcher: fetcher, metrics: metrics}
}

func (c *Client) get(ctx context.Context, kind, prefectureID string, v any) error {
	path, err := Path(kind, prefectureID)
	if err != nil {
		return err
	}
	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, path)
	c.metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchFailures.WithLabelValues(kind).Inc()
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.metrics.FetchFailures.WithLabelValues(kind).Inc()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// AreaMaster fetches the area master.
func (c *Client) AreaMaster(ctx context.Context) (domain.AreaDocument, error) {
	var doc domain.AreaDocument
	err := c.get(ctx, DocArea, "", &doc)
	return doc, err
}

// ForecastAreas fetches the forecast-area station mapping.
func (c *Client) ForecastAreas(ctx context.Context) (domain.ForecastAreaDocument, error) {
	var doc domain.ForecastAreaDocument
	err := c.get(ctx, DocForecastArea, "", &doc)
	return doc, err
}

// Forecast fetches one prefecture's forecast.
func (c *Client) Forecast(ctx context.Context, prefectureID string) (domain.ForecastDocument, error) {
	var doc domain.ForecastDocument
	err := c.get(ctx, DocForecast, prefectureID, &doc)
	return doc, err
}

// Probability fetches one prefecture's probability forecast.
func (c *Client) Probability(ctx context.Context, prefectureID string) (domain.ProbabilityDocument, error) {
	var doc domain.ProbabilityDocument
	err := c.get(ctx, DocProbability, prefectureID, &doc)
	return doc, err
}

// Warning fetches one prefecture's warnings.
func (c *Client) Warning(ctx context.Context, prefectureID string) (domain.WarningDocument, error) {
	var doc domain.WarningDocument
	err := c.get(ctx, DocWarning, prefectureID, &doc)
	return doc, err
}
