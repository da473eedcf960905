// Package httpapi provides the HTTP API for caselink.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/casestore"
	"github.com/fyrsmithlabs/caselink/internal/mail"
	"github.com/fyrsmithlabs/caselink/internal/matcher"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
	"github.com/fyrsmithlabs/caselink/internal/report"
)

// maxImportSize caps the accepted Outlook export upload at 64MB.
const maxImportSize = 64 << 20

// Server provides HTTP endpoints for caselink.
type Server struct {
	echo     *echo.Echo
	store    casestore.Store
	matcher  *matcher.Matcher
	reporter *report.Reporter
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(store casestore.Store, m *matcher.Matcher, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8480,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		store:    store,
		matcher:  m,
		reporter: report.New(store),
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/import", s.handleImport)
	v1.GET("/cases", s.handleListCases)
	v1.GET("/cases/:id", s.handleGetCase)
	v1.GET("/stats", s.handleStats)
	v1.GET("/report", s.handleReport)
	v1.GET("/export", s.handleExport)
	v1.POST("/duplicates/merge", s.handleMergeDuplicates)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleImport reconciles a posted Outlook export against the case
// collection and returns the full run report.
func (s *Server) handleImport(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(body) > maxImportSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "export exceeds size limit")
	}

	export, err := mail.ParseExport(body)
	if err != nil {
		s.logger.Warn("invalid import payload", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	start := time.Now()
	reconcileReport, err := s.matcher.Reconcile(c.Request().Context(), export)
	if err != nil {
		metrics.Get().ImportErrors.Inc()
		s.logger.Error("import failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "import failed")
	}
	metrics.Get().ImportDuration.Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, reconcileReport)
}

// handleListCases returns every case, optionally filtered by status.
func (s *Server) handleListCases(c echo.Context) error {
	cases, err := s.store.List(c.Request().Context())
	if err != nil {
		s.logger.Error("list cases failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list cases failed")
	}

	if status := c.QueryParam("status"); status != "" {
		if !casestore.Status(status).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		}
		filtered := cases[:0]
		for _, cs := range cases {
			if cs.Status == casestore.Status(status) {
				filtered = append(filtered, cs)
			}
		}
		cases = filtered
	}

	return c.JSON(http.StatusOK, cases)
}

// handleGetCase returns one case by id.
func (s *Server) handleGetCase(c echo.Context) error {
	cs, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, casestore.ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "case not found")
		}
		s.logger.Error("get case failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "get case failed")
	}
	return c.JSON(http.StatusOK, cs)
}

// handleStats returns the aggregate case counts.
func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.reporter.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "stats failed")
	}
	return c.JSON(http.StatusOK, stats)
}

// handleReport returns the plain-text summary report.
func (s *Server) handleReport(c echo.Context) error {
	text, err := s.reporter.Text(c.Request().Context())
	if err != nil {
		s.logger.Error("report failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "report failed")
	}
	return c.String(http.StatusOK, text)
}

// handleExport streams the case collection as CSV or JSON, selected by
// the format query parameter (default csv).
func (s *Server) handleExport(c echo.Context) error {
	ctx := c.Request().Context()

	switch format := c.QueryParam("format"); format {
	case "", "csv":
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="cases.csv"`)
		c.Response().WriteHeader(http.StatusOK)
		return s.reporter.WriteCSV(ctx, c.Response())
	case "json":
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c.Response().WriteHeader(http.StatusOK)
		return s.reporter.WriteJSON(ctx, c.Response())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown export format %q", format))
	}
}

// handleMergeDuplicates runs the duplicate sweep and returns the merge
// report.
func (s *Server) handleMergeDuplicates(c echo.Context) error {
	mergeReport, err := s.matcher.MergeDuplicates(c.Request().Context())
	if err != nil {
		s.logger.Error("merge duplicates failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "merge duplicates failed")
	}
	return c.JSON(http.StatusOK, mergeReport)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
