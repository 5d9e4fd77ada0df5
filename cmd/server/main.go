package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/charge-telemetry/backend/internal/api"
	"github.com/charge-telemetry/backend/internal/config"
	"github.com/charge-telemetry/backend/internal/replay"
	"github.com/charge-telemetry/backend/internal/session"
	"github.com/charge-telemetry/backend/internal/signaldb"
	"github.com/charge-telemetry/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := flag.String("config", filepath.Join(filepath.Dir(exePath), "ChargeTelemetry.config"), "path to the XML configuration")
	flag.Parse()

	// Load XML configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	api.ShowErrorDetails = logger.IsLevelEnabled(logrus.DebugLevel)

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		logger.WithError(err).Fatal("failed to create directories")
	}

	catalog, err := cfg.Catalog(afero.NewOsFs())
	if err != nil {
		logger.WithError(err).Fatal("failed to build log catalog")
	}
	for name, status := range catalog.LogStatuses() {
		if !status.Exists {
			logger.WithFields(logrus.Fields{"log": name, "path": status.Path}).Warn("log file missing")
		}
	}

	loader, err := signaldb.NewLoader(catalog.Fs(), cfg.Replay.SignalDBCacheSize)
	if err != nil {
		logger.WithError(err).Fatal("failed to create signal database loader")
	}
	if !loader.Exists(catalog.SignalDBPath()) {
		logger.WithField("path", catalog.SignalDBPath()).Warn("signal database missing")
	}

	metrics := replay.NewMetrics(prometheus.DefaultRegisterer)
	engine := replay.NewEngine(catalog, loader, cfg.EngineOptions(), logger, metrics)
	registry := session.NewManager(cfg.Replay.MaxConcurrentReplays, logger)

	ledger, err := storage.OpenLedger(cfg.Ledger.Driver, cfg.Ledger.DSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to open carbon ledger")
	}
	defer ledger.Close()

	deps := &api.Dependencies{
		Engine:    engine,
		Catalog:   catalog,
		Registry:  registry,
		Ledger:    ledger,
		Calc:      cfg.Calculator(),
		Gatherer:  prometheus.DefaultGatherer,
		Logger:    logger,
		Version:   Version,
		RateLimit: cfg.Replay.RateLimitPerSecond,
		RateBurst: cfg.Replay.RateLimitBurst,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:         logger,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
	})
	api.RegisterRoutes(e, api.NewHandlers(deps), deps)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Charge Telemetry Server                         ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Ledger:     %-45s║\n", cfg.Ledger.Driver)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", *configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", catalog.DataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Streams still open when the timeout expires are cut off with the process
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown incomplete")
	}
}

func newLogger(cfg *config.AppConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Advanced.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Advanced.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
