package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/customers"
	"github.com/Ramsey-B/fern/pkg/routes/flags"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/transfers"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type ServerConfig struct {
	ServiceName       string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	AllowOrigins      []string
	AllowMethods      []string
	// Auth guards the /api/v1 data routes when set. Health and metrics stay open.
	Auth echo.MiddlewareFunc
}

// Handlers are the route groups mounted by NewServer. Nil groups are skipped.
type Handlers struct {
	Health    *health.Checker
	Customers *customers.Handler
	Flags     *flags.Handler
	Transfers *transfers.Handler
	Metrics   http.Handler
}

type Server struct {
	Echo   *echo.Echo
	http   *http.Server
	logger ectologger.Logger
}

func NewServer(cfg ServerConfig, handlers Handlers, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	if len(cfg.AllowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: cfg.AllowMethods,
		}))
	}

	if handlers.Health != nil {
		handlers.Health.RegisterRoutes(e)
	}
	var guard []echo.MiddlewareFunc
	if cfg.Auth != nil {
		guard = append(guard, cfg.Auth)
	}
	api := e.Group("/api/v1")
	if handlers.Customers != nil {
		handlers.Customers.Register(api.Group("/customers", guard...))
	}
	if handlers.Flags != nil {
		handlers.Flags.Register(api.Group("/flags", guard...))
	}
	if handlers.Transfers != nil {
		handlers.Transfers.Register(api.Group("/transfers", guard...))
	}
	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	return &Server{
		Echo: e,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		logger: logger,
	}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.http.Addr).Info("Starting HTTP server")
	if err := s.Echo.StartServer(s.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
