package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/cricket-analytics/internal/app"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/observability"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "", "sqlite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.DBPath = strings.TrimSpace(*dbPath)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("service", cfg.ServiceName)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	telemetry, err := observability.Start(cfg, "query", logger)
	if err != nil {
		logger.Error("init telemetry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.NewQueryServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("build query server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("query server starting", "addr", cfg.QueryHTTPAddr)
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("query server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}

	logger.Info("query server stopped")
}
