package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/cricket-analytics/internal/app"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/infrastructure/store"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
)

type command func(ctx context.Context, m *migrate.Migrate, args []string, logger *logging.Logger) error

var commands = map[string]command{
	"up":      migrateUp,
	"down":    migrateDown,
	"version": printVersion,
	"force":   forceVersion,
	"goto":    gotoVersion,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	_ = godotenv.Load()

	flags := flag.NewFlagSet("migration", flag.ContinueOnError)
	dbPath := flags.String("db", "", "sqlite database path (overrides DB_PATH)")
	flags.Usage = printUsage(flags)
	if err := flags.Parse(args); err != nil {
		return 2
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
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

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("service", cfg.ServiceName, "driver", cfg.DBDriver)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	name := strings.ToLower(strings.TrimSpace(rest[0]))

	// check goes through the store so the live columns are verified too.
	if name == "check" {
		db, err := app.OpenStore(ctx, cfg, logger.Named("store"))
		if err != nil {
			logger.Error("schema check failed", "error", err)
			return 1
		}
		_ = db.Close()
		logger.Info("schema is current and matches the row models")
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		flags.Usage()
		return 2
	}

	dbURL, err := store.MigrateURL(cfg.DBDriver, cfg.DBPath, cfg.DBURL)
	if err != nil {
		logger.Error("resolve database url", "error", err)
		return 1
	}
	m, err := store.NewMigrator(cfg.DBDriver, dbURL)
	if err != nil {
		logger.Error("create migrator", "error", err)
		return 1
	}
	defer closeMigrator(m, logger)

	if err := cmd(ctx, m, rest[1:], logger); err != nil {
		logger.Error("migration command failed", "command", name, "error", err)
		return 1
	}
	return 0
}

func migrateUp(_ context.Context, m *migrate.Migrate, _ []string, logger *logging.Logger) error {
	if err := ignoreNoChange(m.Up(), logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied")
	return nil
}

func migrateDown(_ context.Context, m *migrate.Migrate, args []string, logger *logging.Logger) error {
	steps, err := parseSteps(args)
	if err != nil {
		return err
	}
	if err := ignoreNoChange(m.Steps(-steps), logger); err != nil {
		return fmt.Errorf("roll back %d migration(s): %w", steps, err)
	}
	logger.Info("migrations rolled back", "steps", steps)
	return nil
}

func printVersion(_ context.Context, m *migrate.Migrate, _ []string, _ *logging.Logger) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("version: none")
		fmt.Println("dirty: false")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Printf("version: %d\n", version)
	fmt.Printf("dirty: %t\n", dirty)
	return nil
}

func forceVersion(_ context.Context, m *migrate.Migrate, args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("force requires a version argument")
	}
	version, err := parseVersion(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	logger.Info("migration version forced", "version", version)
	return nil
}

func gotoVersion(_ context.Context, m *migrate.Migrate, args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("goto requires a target version argument")
	}
	target, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	if err := ignoreNoChange(m.Migrate(target), logger); err != nil {
		return fmt.Errorf("migrate to version %d: %w", target, err)
	}
	logger.Info("migrated", "version", target)
	return nil
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < -1 {
		return 0, fmt.Errorf("version must be >= -1")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func ignoreNoChange(err error, logger *logging.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	return err
}

func closeMigrator(m *migrate.Migrate, logger *logging.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("close migration db", "error", dbErr)
	}
}

func printUsage(flags *flag.FlagSet) func() {
	return func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "usage: %s [-db path] <up|down [n]|version|force <v>|goto <v>|check>\n", name)
		fmt.Fprintln(os.Stderr, "environment: DB_DRIVER (sqlite|postgres), DB_PATH, DB_URL")
		fmt.Fprintln(os.Stderr, "examples:")
		fmt.Fprintf(os.Stderr, "  %s up\n", name)
		fmt.Fprintf(os.Stderr, "  %s -db cricket_matches.db down 1\n", name)
		fmt.Fprintf(os.Stderr, "  %s check\n", name)
		flags.PrintDefaults()
	}
}
