package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/jma-weather-etl/internal/adapter/http"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/memory"
	"github.com/couchcryptid/jma-weather-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type failingReader struct{ memory.Store }

func (failingReader) Forecasts(context.Context) ([]domain.ForecastRecord, error) {
	return nil, errors.New("connection refused")
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.ReplacePrefectures(ctx, []domain.Prefecture{
		{ID: "270000", RegionID: "010600", Name: "大阪府"},
		{ID: "280000", RegionID: "010600", Name: "兵庫県"},
	}))
	require.NoError(t, s.ReplaceSubRegions(ctx, []domain.SubRegion{
		{ID: "270000", PrefectureID: "270000", Name: "大阪府"},
		{ID: "280010", PrefectureID: "280000", Name: "南部"},
		{ID: "280020", PrefectureID: "280000", Name: "北部"},
	}))
	wind := 4.7
	require.NoError(t, s.ReplaceForecasts(ctx, []domain.ForecastRecord{
		{SubRegionID: "270000", WeatherCode: "101"},
		{SubRegionID: "280010", WeatherCode: "200", WindSpeed: &wind},
	}))
	require.NoError(t, s.ReplaceWarnings(ctx, []domain.WarningRecord{
		{SubRegionID: "280010", Warnings: []string{"大雨警報"}},
	}))
	return s
}

func newTestServer(t *testing.T, readyErr error, origins ...string) *httpadapter.Server {
	t.Helper()
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, seededStore(t), origins, slog.Default())
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

type listBody[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(t, newTestServer(t, nil), "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, newTestServer(t, fmt.Errorf("no successful run yet")), "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListForecasts(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("all", func(t *testing.T) {
		rec := get(t, srv, "/v1/forecasts")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[listBody[domain.ForecastRecord]](t, rec)
		assert.Equal(t, 2, body.Count)
	})

	t.Run("by prefecture", func(t *testing.T) {
		rec := get(t, srv, "/v1/forecasts?prefecture=280000")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[listBody[domain.ForecastRecord]](t, rec)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "280010", body.Data[0].SubRegionID)
		require.NotNil(t, body.Data[0].WindSpeed)
		assert.InDelta(t, 4.7, *body.Data[0].WindSpeed, 1e-9)
	})

	t.Run("unknown prefecture is empty", func(t *testing.T) {
		rec := get(t, srv, "/v1/forecasts?prefecture=470000")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data": [], "count": 0}`, rec.Body.String())
	})
}

func TestGetForecast(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/v1/forecasts/270000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sub_region_id": "270000", "weather_code": "101"}`, rec.Body.String(),
		"missing metrics are omitted")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/v1/forecasts/999999").Code)
}

func TestWarnings(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/v1/warnings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": [{"sub_region_id": "280010", "warnings": ["大雨警報"]}], "count": 1}`, rec.Body.String())

	rec = get(t, srv, "/v1/warnings/280020")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sub_region_id": "280020", "warnings": []}`, rec.Body.String(),
		"known sub-region without active warnings")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/v1/warnings/999999").Code)
}

func TestPrefectureSubRegions(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := get(t, srv, "/v1/prefectures/280000/sub-regions")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[listBody[domain.SubRegion]](t, rec)
	assert.Equal(t, []domain.SubRegion{
		{ID: "280010", PrefectureID: "280000", Name: "南部"},
		{ID: "280020", PrefectureID: "280000", Name: "北部"},
	}, body.Data)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/v1/prefectures/999999/sub-regions").Code)

	rec = get(t, srv, "/v1/prefectures")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[listBody[domain.Prefecture]](t, rec).Count)
}

func TestStoreFailure(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, &failingReader{}, nil, slog.Default())

	rec := get(t, srv, "/v1/forecasts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCORS(t *testing.T) {
	t.Run("configured origin", func(t *testing.T) {
		srv := newTestServer(t, nil, "https://example.jp")
		req := httptest.NewRequest(http.MethodGet, "/v1/forecasts", nil)
		req.Header.Set("Origin", "https://example.jp")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, "https://example.jp", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/v1/forecasts", nil)
		req.Header.Set("Origin", "https://example.jp")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
