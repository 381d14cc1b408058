// Package server wires the HTTP API: router, middleware stack, routes and
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/giygas/drugcompat/config"
	"github.com/giygas/drugcompat/data"
	"github.com/giygas/drugcompat/handlers"
	"github.com/giygas/drugcompat/health"
	"github.com/giygas/drugcompat/interfaces"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/metrics"
	"github.com/giygas/drugcompat/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataContainer *data.DataContainer
	handler       interfaces.HTTPHandler
	limiter       *RateLimiter
	config        *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataContainer *data.DataContainer) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              net.JoinHostPort(cfg.Address, cfg.Port),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		router:        router,
		dataContainer: dataContainer,
		handler: handlers.NewHTTPHandler(
			dataContainer,
			validation.NewDataValidator(),
			health.NewHealthChecker(dataContainer, cfg.RefreshTimes),
		),
		limiter: NewRateLimiter(),
		config:  cfg,
	}

	server.router.Use(server.middlewareStack()...)
	server.setupRoutes()

	return server
}

func requestLogger() *slog.Logger {
	if logging.DefaultLoggingService != nil {
		return logging.DefaultLoggingService.Logger
	}
	return slog.Default()
}

// middlewareStack lists the router middleware, outermost first. Request
// ids and client ips must be resolved before anything logs or limits.
func (s *Server) middlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		RealIPMiddleware,
		logging.LoggingMiddleware(requestLogger()),
		metrics.Metrics,
		middleware.RedirectSlashes,
		middleware.Recoverer,
		RequestSizeMiddleware(s.config),
		s.limiter.Handler,
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/drugs", s.handler.ListDrugs)
		r.Get("/drugs/{id}", s.handler.GetDrug)
		r.Get("/compatibility", s.handler.ListCompatibility)
		r.Get("/compatibility/{drug1}/{drug2}", s.handler.GetPairCompatibility)
		r.Get("/analysis", s.handler.AnalyzeCombination)
		r.Get("/diagnostics", s.handler.ServeDiagnostics)
	})

	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.config.Env == config.EnvDevelopment {
		s.router.Mount("/debug", middleware.Profiler())
	}
}

// Start blocks serving HTTP until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	logging.Info("Starting server", "addr", s.server.Addr, "env", s.config.Env.String())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	defer s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed, closing connections", "error", err)
		if closeErr := s.server.Close(); closeErr != nil {
			return fmt.Errorf("closing server: %w", errors.Join(err, closeErr))
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// Router exposes the configured routes, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}
