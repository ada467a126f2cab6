// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package octopi assembles the octopus capture/tag server.
//
// This package owns the lifecycle: it builds telemetry, the Prometheus
// registry, the event hub, the octopus registry and the gin router from a
// config.Config, then serves until the context is cancelled.
//
// # Usage
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	svc, err := octopi.New(cfg, octopi.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx)
//
// # Shutdown
//
// Cancelling the context passed to Run or Serve closes the event hub first,
// which ends every /v1/watch stream with a going-away frame (hijacked
// websocket connections are invisible to http.Server.Shutdown), then drains
// in-flight requests for up to Config.ShutdownTimeout, then flushes
// telemetry.
package octopi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/OctoJourney/services/octopi/config"
	"github.com/AleutianAI/OctoJourney/services/octopi/events"
	"github.com/AleutianAI/OctoJourney/services/octopi/middleware"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/AleutianAI/OctoJourney/services/octopi/registry"
	"github.com/AleutianAI/OctoJourney/services/octopi/routes"
	"github.com/AleutianAI/OctoJourney/services/octopi/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

// ServiceName identifies the server in logs, spans and metrics.
const ServiceName = "octo-journey"

// readHeaderTimeout bounds slow-header clients.
const readHeaderTimeout = 10 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the octopus server lifecycle.
//
// # Thread Safety
//
// Router and Registry are safe to call at any time. Run and Serve block and
// may be called at most once per Service; telemetry is shut down when they
// return.
type Service interface {
	// Run listens on Config.Addr() and serves until ctx is cancelled.
	//
	// # Outputs
	//
	//   - error: Listen failure, serve failure or shutdown timeout. A clean
	//     shutdown after cancellation returns nil.
	Run(ctx context.Context) error

	// Serve is Run on a caller-provided listener, which it takes ownership of.
	Serve(ctx context.Context, ln net.Listener) error

	// Router returns the configured gin engine, mainly for tests.
	Router() *gin.Engine

	// Registry returns the octopus store behind the handlers.
	Registry() *registry.Registry
}

// =============================================================================
// Options
// =============================================================================

// Option customises New.
type Option func(*service)

// WithLogger sets the base logger for access logs and lifecycle messages.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported by telemetry and the OpenAPI
// document. Default: "dev".
func WithVersion(version string) Option {
	return func(s *service) {
		if version != "" {
			s.version = version
		}
	}
}

// WithRegistryOptions passes extra options to registry.New, after the ones
// derived from the config. Tests use it to seed randomness.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(s *service) {
		s.registryOpts = append(s.registryOpts, opts...)
	}
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service.
//
// All fields are set in New and read-only afterwards, except the cleanup
// once.
type service struct {
	config       *config.Config
	logger       *slog.Logger
	version      string
	registryOpts []registry.Option

	telemetry *telemetry.Telemetry
	promReg   *prometheus.Registry
	metrics   *observability.OctopiMetrics
	hub       *events.Hub
	registry  *registry.Registry
	router    *gin.Engine

	cleanupOnce sync.Once
	cleanupErr  error
}

var _ Service = (*service)(nil)

// New builds a Service from cfg.
//
// # Description
//
// New validates cfg, then initialises in order:
//  1. Gin mode
//  2. A private Prometheus registry with Go and process collectors
//  3. OpenTelemetry (traces per cfg.TraceExporter, metrics bridged onto the
//     Prometheus registry when cfg.MetricsEnabled)
//  4. Domain metrics, the event hub and the octopus registry
//  5. The router and its middleware chain
//
// Using a private Prometheus registry rather than the global one lets tests
// build many services in one process.
//
// # Inputs
//
//   - cfg: Server configuration. Nil uses config.DefaultConfig().
//   - opts: Optional overrides.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Invalid config or telemetry initialisation failure.
func New(cfg *config.Config, opts ...Option) (Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{
		config:  cfg,
		logger:  slog.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(cfg.GinMode)

	s.promReg = prometheus.NewRegistry()
	s.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := s.initTelemetry(); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	s.metrics = observability.NewMetrics(s.promReg)
	s.metrics.ObservePopulation(0, 0)

	s.hub = events.NewHub(cfg.WatchBuffer)

	regOpts := []registry.Option{
		registry.WithTagDelay(cfg.TagDelay),
		registry.WithPublisher(s.hub),
		registry.WithTracerProvider(s.telemetry.TracerProvider()),
	}
	s.registry = registry.New(append(regOpts, s.registryOpts...)...)

	if err := s.initRouter(); err != nil {
		_ = s.cleanup(context.Background())
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	s.logger.Debug("Octopus service initialized",
		"gin_mode", cfg.GinMode,
		"trace_exporter", cfg.TraceExporter,
		"metrics_enabled", cfg.MetricsEnabled,
		"tag_delay", cfg.TagDelay,
	)
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

func (s *service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		_ = s.cleanup(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server and a shutdown watcher in one errgroup. The
// watcher fires on ctx cancellation or on a serve failure.
func (s *service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting octopus server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()

		s.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		s.logger.Info("Octopus server stopped")
		return nil
	})

	serveErr := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, s.cleanup(flushCtx))
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) Registry() *registry.Registry {
	return s.registry
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func (s *service) initTelemetry() error {
	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceName = ServiceName
	tcfg.ServiceVersion = s.version
	tcfg.TraceExporter = s.config.TraceExporter
	tcfg.OTLPEndpoint = s.config.OTLPEndpoint
	tcfg.OTLPInsecure = true
	tcfg.Registerer = s.promReg
	if s.config.MetricsEnabled {
		tcfg.MetricExporter = telemetry.ExporterPrometheus
	} else {
		tcfg.MetricExporter = telemetry.ExporterNone
	}

	tel, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		return err
	}
	s.telemetry = tel
	return nil
}

// initRouter builds the middleware chain:
//
//	Recovery ─► otelgin ─► RequestID ─► AccessLog ─► [HTTP metrics] ─► handler
//
// RequestID runs after otelgin so the id lands on the server span.
func (s *service) initRouter() error {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName,
		otelgin.WithTracerProvider(s.telemetry.TracerProvider())))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(s.logger))

	deps := routes.Deps{
		Registry: s.registry,
		Hub:      s.hub,
		Metrics:  s.metrics,
		Version:  s.version,
	}

	if s.config.MetricsEnabled {
		httpMetrics, err := telemetry.NewHTTPMetrics(s.telemetry.Meter(ServiceName))
		if err != nil {
			return fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		router.Use(telemetry.MetricsMiddleware(httpMetrics))
		deps.MetricsHandler = promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})
	}

	routes.SetupRoutes(router, deps)
	s.router = router
	return nil
}

// cleanup closes the hub and flushes telemetry exactly once.
func (s *service) cleanup(ctx context.Context) error {
	s.cleanupOnce.Do(func() {
		if s.hub != nil {
			s.hub.Close()
		}
		if s.telemetry != nil {
			if err := s.telemetry.Shutdown(ctx); err != nil {
				s.logger.Error("Failed to shut down telemetry", "error", err)
				s.cleanupErr = err
			}
		}
	})
	return s.cleanupErr
}
