// netrunnerd is the probe telemetry backend daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/aggregate"
	"github.com/MDValleLogic/netrunner-dashboard/internal/archive"
	"github.com/MDValleLogic/netrunner-dashboard/internal/credential"
	"github.com/MDValleLogic/netrunner-dashboard/internal/device"
	"github.com/MDValleLogic/netrunner-dashboard/internal/handler"
	"github.com/MDValleLogic/netrunner-dashboard/internal/loader"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
	"github.com/MDValleLogic/netrunner-dashboard/internal/scheduler"
	"github.com/MDValleLogic/netrunner-dashboard/internal/server"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "database path (overrides config)")
	token := flag.String("token", "", "admin dashboard token (or NETRUNNER_TOKEN env)")
	archiveSecret := flag.String("archive-secret", "", "archive trigger secret (or NETRUNNER_ARCHIVE_SECRET env)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Printf("netrunnerd %s starting...", Version)

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("No config file found, using defaults")
			cfg = loader.DefaultConfig()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	// Admin token from flag or env
	adminToken := *token
	if adminToken == "" {
		adminToken = os.Getenv("NETRUNNER_TOKEN")
	}
	if adminToken != "" {
		cfg.Auth.Tokens = append(cfg.Auth.Tokens, loader.TokenConfig{
			ID: "cli", Token: adminToken, Admin: true,
		})
	}

	// Archive secret from flag or env
	if *archiveSecret != "" {
		cfg.Archive.Secret = *archiveSecret
	}
	if cfg.Archive.Secret == "" {
		cfg.Archive.Secret = os.Getenv("NETRUNNER_ARCHIVE_SECRET")
	}

	// Validate
	if len(cfg.Auth.Tokens) == 0 {
		log.Fatal("At least one dashboard token required (use -token or config)")
	}

	logging.Init(cfg.LogLevel(), cfg.Log.JSON)

	// =========================================================================
	// Initialize Store (DuckDB - devices, tenants, measurements)
	// =========================================================================

	log.Printf("Initializing store: %s", cfg.Store.Path)

	storeCfg := store.DefaultConfig()
	storeCfg.DSN = cfg.Store.Path
	if cfg.Store.MaxOpenConns > 0 {
		storeCfg.MaxOpenConns = cfg.Store.MaxOpenConns
	}
	if cfg.Store.QueryTimeoutSec > 0 {
		storeCfg.QueryTimeout = time.Duration(cfg.Store.QueryTimeoutSec) * time.Second
	}

	st, err := store.New(storeCfg)
	if err != nil {
		log.Fatalf("Open store: %v", err)
	}
	defer st.Close()

	// =========================================================================
	// Apply Configuration (tenants)
	// =========================================================================

	ctx := context.Background()
	if len(cfg.Tenants) > 0 {
		result, err := loader.Apply(ctx, cfg, st)
		if err != nil {
			log.Printf("Warning: Apply config: %v", err)
		} else {
			log.Printf("Config applied: %d tenants ensured", result.TenantsEnsured)
			for _, e := range result.Errors {
				log.Printf("Warning: %s", e)
			}
		}
	}

	// =========================================================================
	// Create and Start Server
	// =========================================================================

	devices := device.New(st, cfg.Device.DefaultIntervalSec)
	engine := aggregate.New(st)
	archiver := archive.New(st, archive.Options{
		CutoffAge: cfg.Archive.CutoffAge(),
		ExportDir: cfg.Archive.ExportDir,
	})

	h := &handler.Handler{
		Store:        st,
		Devices:      devices,
		Engine:       engine,
		Archiver:     archiver,
		OfflineAfter: int64(config.OfflineAfter / time.Second),
	}

	srv := server.New(&server.Config{
		Listen:             cfg.Listen,
		Tokens:             cfg.Auth.Tokens,
		ArchiveSecret:      cfg.Archive.Secret,
		RateLimitPerMinute: cfg.Auth.RateLimitPerMinute,
	}, h, credential.NewVerifier(st))

	// =========================================================================
	// Background Jobs
	// =========================================================================

	if interval := cfg.Archive.Interval(); interval > 0 {
		runner := scheduler.New(scheduler.DefaultConfig())
		runner.Add(scheduler.Job{
			Name:     "archive",
			Interval: interval,
			Run: func(ctx context.Context) error {
				_, err := archiver.Run(ctx)
				return err
			},
		})
		runner.Start()
		defer runner.Stop()
		log.Printf("Archive schedule enabled: every %s", interval)
	}

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
