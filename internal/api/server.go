// Package api serves station queries over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	mw "github.com/sharksmhi/ctdstations/internal/api/middleware"
	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/export"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

const (
	// APIPrefix is the route group for station endpoints.
	APIPrefix = "/api/v1"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	// rateLimiterExpiry drops idle per-client limiters
	rateLimiterExpiry = 3 * time.Minute
)

// Server is the HTTP query API.
type Server struct {
	echo       *echo.Echo
	controller *Controller
	metrics    *observability.Metrics
	log        logger.Logger
	startTime  time.Time

	rateLimit rate.Limit
	rateBurst int
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics exposes /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimit limits each client, keyed by its real IP, to limit position
// queries per second on /nearest and /distance, allowing burst at once.
// A zero limit disables it.
func WithRateLimit(limit rate.Limit, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateBurst = burst
	}
}

// New creates a server answering queries with resolver.
func New(resolver *stations.Resolver, opts ...ServerOption) *Server {
	s := &Server{
		log:       logger.Global().Module("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	exportOpts := []export.Option{export.WithLogger(s.log.Module("export"))}
	if s.metrics != nil {
		exportOpts = append(exportOpts, export.WithRecorder(s.metrics.Stations))
	}
	s.controller = &Controller{
		Resolver: resolver,
		Exporter: export.New(exportOpts...),
		log:      s.log,
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.RequestID())
	s.echo.Use(mw.NewRequestLogger(s.log))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// Position queries scan the whole table and share one per-client budget
	var limited []echo.MiddlewareFunc
	if s.rateLimit > 0 {
		limited = append(limited, s.newRateLimiter())
	}

	g := s.echo.Group(APIPrefix)
	g.GET("/stations", s.controller.ListStations)
	g.GET("/stations/:name", s.controller.GetStation)
	g.GET("/nearest", s.controller.Nearest, limited...)
	g.GET("/distance", s.controller.Distance, limited...)
}

func (s *Server) newRateLimiter() echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      s.rateLimit,
		Burst:     s.rateBurst,
		ExpiresIn: rateLimiterExpiry,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, err error) error {
			c.Response().Header().Set("Retry-After", "1")
			return s.controller.HandleError(c, err, "Too many position queries", http.StatusTooManyRequests)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return s.controller.HandleError(c, err, "Could not identify client", http.StatusForbidden)
		},
	})
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status   string  `json:"status"`
	Source   string  `json:"source"`
	Stations int     `json:"stations"`
	Uptime   float64 `json:"uptime_seconds"`
}

func (s *Server) handleHealth(c echo.Context) error {
	store := s.controller.Resolver.Store()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Source:   string(store.Source()),
		Stations: store.Len(),
		Uptime:   time.Since(s.startTime).Seconds(),
	})
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component("api").
			Category(errors.CategoryHTTP).
			Context("address", addr).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryHTTP).
			Build()
	}
	<-errCh
	return nil
}
