package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/cricket-analytics/internal/app"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/observability"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	_ = godotenv.Load()

	flags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	dbPath := flags.String("db", "", "sqlite database path (overrides DB_PATH)")
	flags.Usage = printUsage(flags)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*dbPath) != "" {
		cfg.DBPath = strings.TrimSpace(*dbPath)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("service", cfg.ServiceName)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	command := "run"
	rest := flags.Args()
	if len(rest) > 0 {
		command = strings.ToLower(strings.TrimSpace(rest[0]))
		rest = rest[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Start(cfg, "ingest", logger)
	if err != nil {
		logger.Error("init telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if command != "replay" {
		if err := cfg.RequireAPIKey(); err != nil {
			logger.Error("missing provider credentials", "error", err)
			return 1
		}
	}

	ingestor, err := app.NewIngestor(ctx, cfg, logger)
	if err != nil {
		logger.Error("open ingestion job", "error", err, "fatal", usecase.IsFatal(err))
		return 1
	}
	defer func() {
		if err := ingestor.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	runID := uuid.NewString()
	switch command {
	case "run":
		result, err := ingestor.Run(ctx, runID)
		return report(logger, result, err)
	case "replay":
		result, err := ingestor.Replay(ctx, runID)
		return report(logger, result, err)
	case "reingest":
		if len(rest) == 0 {
			logger.Error("reingest requires a match id")
			return 2
		}
		matchID, err := strconv.ParseInt(strings.TrimSpace(rest[0]), 10, 64)
		if err != nil {
			logger.Error("invalid match id", "value", rest[0], "error", err)
			return 2
		}
		if err := ingestor.Reingest(ctx, matchID); err != nil {
			logger.Error("reingest failed", "match_id", matchID, "error", err)
			if usecase.IsFatal(err) {
				return 1
			}
		}
		return 0
	default:
		flags.Usage()
		return 2
	}
}

// report logs the run summary. Only fatal errors or cancellation fail the process.
func report(logger *logging.Logger, result usecase.RunResult, err error) int {
	logger.Info("run summary",
		"run_id", result.RunID,
		"total", result.Total,
		"ingested", result.Ingested,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("run interrupted", "run_id", result.RunID)
		return 130
	}
	logger.Error("run aborted", "run_id", result.RunID, "error", err)
	return 1
}

func printUsage(flags *flag.FlagSet) func() {
	return func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "usage: %s [-db path] [run|reingest <match_id>|replay]\n", name)
		fmt.Fprintln(os.Stderr, "examples:")
		fmt.Fprintf(os.Stderr, "  %s\n", name)
		fmt.Fprintf(os.Stderr, "  %s -db cricket_matches.db reingest 112395\n", name)
		fmt.Fprintf(os.Stderr, "  %s replay\n", name)
		flags.PrintDefaults()
	}
}
