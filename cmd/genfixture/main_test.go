package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

func loadDoc(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile("../../internal/pipeline/testdata/" + path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestExpectedPartials(t *testing.T) {
	var (
		fdoc domain.ForecastDocument
		pdoc domain.ProbabilityDocument
	)
	loadDoc(t, "forecast/data/forecast/280000.json", &fdoc)
	loadDoc(t, "probability/data/probability/280000.json", &pdoc)
	index := domain.NewStationIndex(nil, nil)

	t.Run("target date present", func(t *testing.T) {
		p, err := expectedPartials("280000", fdoc, pdoc, domain.Date{Year: 2024, Month: time.May, Day: 11}, index)
		require.NoError(t, err)
		assert.Equal(t, "200", p.WeatherCodes["280010"])
		assert.NotEmpty(t, p.WindSpeeds)
	})

	t.Run("target date absent leaves metrics out", func(t *testing.T) {
		p, err := expectedPartials("280000", fdoc, pdoc, domain.Date{Year: 2024, Month: time.June, Day: 1}, index)
		require.NoError(t, err)
		assert.Empty(t, p.WeatherCodes)
		assert.Empty(t, p.Temperatures)
		assert.Empty(t, p.WindSpeeds)
	})

	t.Run("malformed document fails", func(t *testing.T) {
		_, err := expectedPartials("280000", domain.ForecastDocument{}, pdoc, domain.Date{Year: 2024, Month: time.May, Day: 11}, index)
		require.ErrorIs(t, err, domain.ErrSchema)
		assert.ErrorContains(t, err, "280000 weather_code")
	})
}
