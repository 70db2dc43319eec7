// Package app wires configuration, the store, the provider client and the use
// cases into the runnable jobs.
package app

import (
	"context"
	"fmt"

	"github.com/riskibarqy/cricket-analytics/external/cricbuzz"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/infrastructure/store"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/platform/resilience"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

// Ingestor owns one open store for the length of a batch run.
type Ingestor struct {
	store     *store.Store
	ingestion *usecase.IngestionService
	replay    *usecase.ReplayService
	logger    *logging.Logger
}

// OpenStore opens the configured database and brings its schema to the
// current version.
func OpenStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (*store.Store, error) {
	db, err := store.Open(ctx, store.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		URL:    cfg.DBURL,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewIngestor builds the ingestion and replay services over a freshly opened store.
func NewIngestor(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	client := cricbuzz.NewClient(cricbuzz.ClientConfig{
		BaseURL: cfg.CricbuzzBaseURL,
		APIHost: cfg.CricbuzzAPIHost,
		APIKey:  cfg.CricbuzzAPIKey,
		Timeout: cfg.CricbuzzTimeout,
		Logger:  logger.Named("cricbuzz"),
		Breaker: resilience.BreakerConfig{
			Enabled:   cfg.CricbuzzCircuitEnabled,
			Threshold: cfg.CricbuzzCircuitFailureCount,
			Cooldown:  cfg.CricbuzzCircuitOpenTimeout,
			Trials:    cfg.CricbuzzCircuitHalfOpenMax,
		},
	})
	catalog := cricbuzz.Catalog()

	ingestion, err := usecase.NewIngestionService(
		client,
		catalog,
		db,
		db,
		db,
		db,
		resilience.NewPacer(cfg.IngestMinInterval),
		usecase.IngestionConfig{
			MaxAttempts:       cfg.IngestMaxAttempts,
			Discover:          cfg.IngestDiscover,
			SyncTeams:         cfg.IngestSyncTeams,
			FetchRosters:      cfg.IngestFetchRosters,
			RefreshIncomplete: cfg.IngestRefreshIncomplete,
			ArchiveRaw:        cfg.IngestArchiveRaw,
		},
		logger.Named("ingestion"),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build ingestion service: %w", err)
	}

	replay, err := usecase.NewReplayService(catalog, db, db, db, cfg.ReplayWorkers, logger.Named("replay"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build replay service: %w", err)
	}

	return &Ingestor{
		store:     db,
		ingestion: ingestion,
		replay:    replay,
		logger:    logger,
	}, nil
}

func (i *Ingestor) Run(ctx context.Context, runID string) (usecase.RunResult, error) {
	return i.ingestion.Run(ctx, runID)
}

func (i *Ingestor) Reingest(ctx context.Context, matchID int64) error {
	return i.ingestion.Reingest(ctx, matchID)
}

func (i *Ingestor) Replay(ctx context.Context, runID string) (usecase.RunResult, error) {
	return i.replay.Replay(ctx, runID)
}

func (i *Ingestor) Close() error {
	return i.store.Close()
}
