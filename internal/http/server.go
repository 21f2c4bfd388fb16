// Package http provides the HTTP API for intaketriage.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/telemetry"
	"github.com/fyrsmithlabs/intaketriage/internal/triage"
)

// Triager is the engine surface the handlers use.
type Triager interface {
	BuildFeatures(ctx context.Context, req triage.BuildRequest) features.CaseFeatures
	ScoreCase(ctx context.Context, req triage.ScoreRequest) scoring.Result
	LLMAvailable() bool
}

// Server provides HTTP endpoints for intaketriage.
type Server struct {
	echo   *echo.Echo
	engine Triager
	logger *logging.Logger
	config *Config
	tel    *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
	// BodyLimit caps request bodies, in echo size notation ("1M").
	BodyLimit string
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry reports telemetry health on /health and records HTTP
// metrics through tel's meter provider.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Server) { s.tel = tel }
}

// NewServer creates a new HTTP server.
func NewServer(engine Triager, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		engine: engine,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	var (
		httpMetrics *HTTPMetrics
		err         error
	)
	if s.tel != nil {
		httpMetrics, err = newHTTPMetrics(s.tel.Meter(httpInstrumentationName))
	} else {
		httpMetrics, err = NewHTTPMetrics()
	}
	if err != nil {
		logger.Warn(context.Background(), "some http metrics are unavailable", zap.Error(err))
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})
	e.Use(httpMetrics.MetricsMiddleware())

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/features", s.handleFeatures)
	v1.POST("/score", s.handleScore)
}

// handleHealth returns service health, including telemetry state when
// telemetry is configured.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.config.Version,
		LLM:     s.engine.LLMAvailable(),
	}
	if s.tel != nil {
		h := s.tel.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleFeatures extracts and merges features for a transcript.
func (s *Server) handleFeatures(c echo.Context) error {
	var req FeaturesRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid features request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	now, err := parseNow(req.Now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	f := s.engine.BuildFeatures(c.Request().Context(), triage.BuildRequest{
		Transcript:   req.Transcript,
		IncidentDate: req.IncidentDate,
		Now:          now,
	})
	return c.JSON(http.StatusOK, f)
}

// handleScore scores a case. With ?validate=true the intake must pass
// submit validation first.
func (s *Server) handleScore(c echo.Context) error {
	ctx := c.Request().Context()

	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid score request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	now, err := parseNow(req.Now)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.CaseID != "" {
		if err := logging.ValidateID(req.CaseID, "case_id"); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	if c.QueryParam("validate") == "true" {
		if err := intake.ValidateForSubmit(intake.Normalize(req.Intake)); err != nil {
			var ve *intake.ValidationError
			if errors.As(err, &ve) {
				return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
					Message: "intake failed validation",
					Fields:  ve.Fields,
				})
			}
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}

	result := s.engine.ScoreCase(ctx, triage.ScoreRequest{
		CaseID:          req.CaseID,
		Intake:          req.Intake,
		Transcript:      req.Transcript,
		IncidentDate:    req.IncidentDate,
		Now:             now,
		IncludeFeatures: req.IncludeFeatures,
	})
	return c.JSON(http.StatusOK, result)
}

// parseNow parses an optional reference time. Empty means "use the engine
// clock".
func parseNow(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, ok := dates.ParseMaybeISO(s)
	if !ok {
		return time.Time{}, fmt.Errorf("now: unrecognised date %q", s)
	}
	return t, nil
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
