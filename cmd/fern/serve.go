package main

import (
	"context"
	"time"

	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes"
	"github.com/Ramsey-B/fern/pkg/routes/customers"
	flagroutes "github.com/Ramsey-B/fern/pkg/routes/flags"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	transferroutes "github.com/Ramsey-B/fern/pkg/routes/transfers"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			checker := health.NewChecker(health.PingFunc(a.db.PingContext), Version)
			if a.redis != nil {
				checker.AddCheck("redis", a.redis)
			}
			if a.graph != nil {
				checker.AddCheck("graph", health.PingFunc(a.graph.VerifyConnectivity))
			}

			cfg := a.cfg
			var auth echo.MiddlewareFunc
			if cfg.AuthEnabled {
				verifier, err := middleware.NewOIDCVerifier(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
				if err != nil {
					return err
				}
				auth = middleware.Authentication(a.logger, verifier)
			}

			srv := routes.NewServer(routes.ServerConfig{
				ServiceName:       cfg.AppName,
				Port:              cfg.Port,
				ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
				WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
				AllowOrigins:      cfg.AllowOrigins,
				AllowMethods:      cfg.AllowMethods,
				Auth:              auth,
			}, routes.Handlers{
				Health:    checker,
				Customers: customers.NewHandler(a.repos.customers, a.repos.connections, a.repos.family, a.repos.flags),
				Flags:     flagroutes.NewHandler(a.repos.flags),
				Transfers: transferroutes.NewHandler(a.repos.transfers),
				Metrics:   a.metrics.Handler(),
			}, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			checker.SetReady(true)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			checker.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			a.logger.Info("Shutting down HTTP server")
			return srv.Shutdown(shutdownCtx)
		},
	}
}
