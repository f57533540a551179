package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

func respondList[T any](c *gin.Context, rows []T) {
	if rows == nil {
		rows = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("read store failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// subRegionFilter returns a predicate over sub-region IDs for the optional
// ?prefecture= query parameter.
func (s *Server) subRegionFilter(ctx context.Context, prefectureID string) (func(string) bool, error) {
	if prefectureID == "" {
		return func(string) bool { return true }, nil
	}
	subRegions, err := s.reader.SubRegions(ctx)
	if err != nil {
		return nil, err
	}
	in := make(map[string]bool)
	for _, sr := range subRegions {
		if sr.PrefectureID == prefectureID {
			in[sr.ID] = true
		}
	}
	return func(id string) bool { return in[id] }, nil
}

func (s *Server) listForecasts(c *gin.Context) {
	ctx := c.Request.Context()
	keep, err := s.subRegionFilter(ctx, c.Query("prefecture"))
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := s.reader.Forecasts(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	var out []domain.ForecastRecord
	for _, r := range rows {
		if keep(r.SubRegionID) {
			out = append(out, r)
		}
	}
	respondList(c, out)
}

func (s *Server) getForecast(c *gin.Context) {
	rows, err := s.reader.Forecasts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, r := range rows {
		if r.SubRegionID == c.Param("id") {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	notFound(c, "forecast")
}

func (s *Server) listWarnings(c *gin.Context) {
	ctx := c.Request.Context()
	keep, err := s.subRegionFilter(ctx, c.Query("prefecture"))
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := s.reader.Warnings(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	var out []domain.WarningRecord
	for _, r := range rows {
		if keep(r.SubRegionID) {
			out = append(out, r)
		}
	}
	respondList(c, out)
}

// getWarning answers an empty list for a known sub-region without active
// warnings, since no row is stored for it.
func (s *Server) getWarning(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	rows, err := s.reader.Warnings(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, r := range rows {
		if r.SubRegionID == id {
			c.JSON(http.StatusOK, r)
			return
		}
	}

	subRegions, err := s.reader.SubRegions(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, sr := range subRegions {
		if sr.ID == id {
			c.JSON(http.StatusOK, domain.WarningRecord{SubRegionID: id, Warnings: []string{}})
			return
		}
	}
	notFound(c, "sub-region")
}

func (s *Server) listPrefectures(c *gin.Context) {
	rows, err := s.reader.Prefectures(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondList(c, rows)
}

func (s *Server) listSubRegions(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	prefectures, err := s.reader.Prefectures(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !slices.ContainsFunc(prefectures, func(p domain.Prefecture) bool { return p.ID == id }) {
		notFound(c, "prefecture")
		return
	}

	rows, err := s.reader.SubRegions(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	var out []domain.SubRegion
	for _, sr := range rows {
		if sr.PrefectureID == id {
			out = append(out, sr)
		}
	}
	respondList(c, out)
}
