// Package server assembles the HTTP surface of moss serve.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/moss/config"
	"github.com/Ramsey-B/moss/pkg/health"
	"github.com/Ramsey-B/moss/pkg/middleware"
	"github.com/Ramsey-B/moss/pkg/routes/runs"
)

const shutdownTimeout = 30 * time.Second

type Options struct {
	Config *config.Config
	Runner runs.Runner
	Health *health.Checker
	// Verify checks bearer tokens; nil leaves the api unauthenticated.
	Verify middleware.Verifier
	Logger ectologger.Logger
}

type Server struct {
	echo   *echo.Echo
	srv    *http.Server
	health *health.Checker
	logger ectologger.Logger
}

func New(opts Options) *Server {
	cfg := opts.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(opts.Logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(opts.Logger))

	opts.Health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if opts.Verify != nil {
		api.Use(middleware.Authentication(opts.Logger, opts.Verify))
	}
	runs.NewHandler(opts.Runner, filepath.Join(cfg.LogDir, "uploads"), cfg.MaxUploadBytes).Register(api)

	return &Server{
		echo: e,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      e,
			ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		},
		health: opts.Health,
		logger: opts.Logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.srv.ListenAndServe()
	}()

	s.health.SetReady(true)
	s.logger.WithContext(ctx).Infof("listening on %s", s.srv.Addr)

	var err error
	select {
	case <-ctx.Done():
		s.health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err = s.srv.Shutdown(shutdownCtx)
	case err = <-serverErr:
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
