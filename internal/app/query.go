package app

import (
	"context"

	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/infrastructure/store"
	"github.com/riskibarqy/cricket-analytics/internal/interfaces/queryapi"
	"github.com/riskibarqy/cricket-analytics/internal/platform/cache"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/valyala/fasthttp"
)

// QueryServer is the read-only HTTP surface over one open store.
type QueryServer struct {
	Server  *fasthttp.Server
	Addr    string
	store   *store.Store
	queries *usecase.QueryService
}

func NewQueryServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*QueryServer, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	queries := usecase.NewQueryService(db, cache.Config{
		Enabled:    cfg.CacheEnabled,
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	}, cfg.QueryMaxRows, logger.Named("query"))
	handler := queryapi.NewHandler(queries, db, logger.Named("queryapi"))

	srv, err := queryapi.NewServer(queryapi.ServerConfig{
		Addr:         cfg.QueryHTTPAddr,
		Name:         cfg.ServiceName,
		ReadTimeout:  cfg.QueryReadTimeout,
		WriteTimeout: cfg.QueryWriteTimeout,
	}, queryapi.NewRouter(handler, logger.Named("http")))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &QueryServer{Server: srv, Addr: cfg.QueryHTTPAddr, store: db, queries: queries}, nil
}

func (s *QueryServer) ListenAndServe() error {
	return s.Server.ListenAndServe(s.Addr)
}

// Shutdown stops accepting requests, waits for in-flight ones, logs the cache
// counters and closes the store.
func (s *QueryServer) Shutdown(ctx context.Context) error {
	if err := s.Server.ShutdownWithContext(ctx); err != nil {
		return err
	}
	s.queries.LogCacheStats(ctx)
	return s.store.Close()
}
