// Package http serves the ops endpoints and a read-only JSON API over the
// stored hierarchy and records.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/jma-weather-etl/internal/domain"
)

// Reader is the store surface the API reads from.
type Reader interface {
	Prefectures(ctx context.Context) ([]domain.Prefecture, error)
	SubRegions(ctx context.Context) ([]domain.SubRegion, error)
	Forecasts(ctx context.Context) ([]domain.ForecastRecord, error)
	Warnings(ctx context.Context) ([]domain.WarningRecord, error)
}

// Server exposes health, readiness, metrics, and the /v1 read API.
type Server struct {
	httpServer *http.Server
	reader     Reader
	logger     *slog.Logger
}

// NewServer creates the HTTP server. CORS is enabled when corsOrigins is
// non-empty; "*" allows any origin.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reader Reader, corsOrigins []string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	if len(corsOrigins) > 0 {
		r.Use(corsMiddleware(corsOrigins))
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		reader: reader,
		logger: logger,
	}

	r.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	r.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(ready)))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/forecasts", s.listForecasts)
	v1.GET("/forecasts/:id", s.getForecast)
	v1.GET("/warnings", s.listWarnings)
	v1.GET("/warnings/:id", s.getWarning)
	v1.GET("/prefectures", s.listPrefectures)
	v1.GET("/prefectures/:id/sub-regions", s.listSubRegions)

	return s
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
