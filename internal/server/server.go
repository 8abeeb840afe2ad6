// Package server provides the HTTP server for the netrunner backend.
//
// The server wires the route table, authentication middleware, and
// graceful shutdown around the handler package. Three auth planes:
// device credential headers for probe ingest, dashboard bearer tokens
// bound to tenants, and a shared secret for the archival trigger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/credential"
	"github.com/MDValleLogic/netrunner-dashboard/internal/handler"
	"github.com/MDValleLogic/netrunner-dashboard/internal/loader"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
)

var log = logging.Component("server")

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds server configuration.
type Config struct {
	// Listen is the address to listen on (e.g., "0.0.0.0:8090").
	Listen string

	// Tokens are the dashboard bearer token bindings.
	Tokens []loader.TokenConfig

	// ArchiveSecret authorizes POST /archive. Empty disables the endpoint.
	ArchiveSecret string

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64

	// RateLimitPerMinute is the failed device auth limit per IP.
	RateLimitPerMinute int

	// ReadTimeout/WriteTimeout bound request and response transfer.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds the in-flight request drain on shutdown.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = config.DefaultListenAddress
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = config.DefaultAuthRateLimitPerMinute
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = config.DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = config.DefaultWriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = config.DefaultShutdownTimeout
	}
}

// =============================================================================
// Server
// =============================================================================

// Server is the netrunner HTTP server.
type Server struct {
	cfg      *Config
	handlers *handler.Handler
	verifier *credential.Verifier

	authRateLimiter *RateLimiter

	httpServer *http.Server
}

// New creates a server around the given handler set.
func New(cfg *Config, h *handler.Handler, verifier *credential.Verifier) *Server {
	cfg.applyDefaults()

	s := &Server{
		cfg:      cfg,
		handlers: h,
		verifier: verifier,
		authRateLimiter: NewRateLimiter(
			cfg.RateLimitPerMinute,
			time.Minute,
		),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.withRequestLog(s.routes()),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// routes builds the route table.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Device plane: credential headers, authenticated device id in context.
	device := func(h http.HandlerFunc) http.Handler { return s.withDeviceAuth(h) }
	mux.Handle("POST /heartbeat", device(s.handlers.Heartbeat))
	mux.Handle("POST /measurements/ingest", device(s.handlers.IngestMeasurement))
	mux.Handle("POST /routes/ingest", device(s.handlers.IngestRoute))
	mux.Handle("POST /speed/ingest", device(s.handlers.IngestSpeed))
	mux.Handle("GET /device/config", device(s.handlers.DeviceConfig))

	// Dashboard plane: bearer token resolved to a tenant binding.
	session := func(h http.HandlerFunc) http.Handler { return s.withSessionAuth(h) }
	mux.Handle("GET /devices", session(s.handlers.ListDevices))
	mux.Handle("POST /devices/register", session(s.handlers.RegisterDevice))
	mux.Handle("POST /devices/claim", session(s.handlers.ClaimDevice))
	mux.Handle("POST /device-config", session(s.handlers.SaveDeviceConfig))
	mux.Handle("GET /measurements/recent", session(s.handlers.RecentMeasurements))
	mux.Handle("GET /measurements/timeseries", session(s.handlers.Timeseries))
	mux.Handle("GET /routes/recent", session(s.handlers.RecentRoutes))
	mux.Handle("GET /speed/recent", session(s.handlers.RecentSpeed))

	// Operational plane.
	mux.Handle("POST /archive", s.withArchiveAuth(http.HandlerFunc(s.handlers.Archive)))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handlers.Healthz))

	return mux
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails. On cancellation, in-flight requests are drained for
// up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", "address", s.cfg.Listen)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	})

	return g.Wait()
}
