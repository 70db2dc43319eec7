package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/platform/jsondoc"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultReplayWorkers = 4

// ReplayService rebuilds child tables from archived scorecard and roster
// payloads without touching the network.
type ReplayService struct {
	catalog  Catalog
	archive  rawdata.Repository
	matches  match.Repository
	children ChildWriter
	workers  int
	validate *validator.Validate
	logger   *logging.Logger
}

func NewReplayService(
	catalog Catalog,
	archive rawdata.Repository,
	matches match.Repository,
	children ChildWriter,
	workers int,
	logger *logging.Logger,
) (*ReplayService, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if archive == nil || matches == nil || children == nil {
		return nil, fmt.Errorf("%w: archive, match repository and child writer are required", ErrInvalidInput)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = defaultReplayWorkers
	}

	return &ReplayService{
		catalog:  catalog,
		archive:  archive,
		matches:  matches,
		children: children,
		workers:  workers,
		validate: validator.New(),
		logger:   logger,
	}, nil
}

// Replay extracts every archived scorecard in a worker pool. Writes go through
// the child writer, which serializes them.
func (s *ReplayService) Replay(ctx context.Context, runID string) (_ RunResult, err error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, span := startJobSpan(ctx, "usecase.ReplayService.Replay", attribute.String("run.id", runID))
	defer finishSpan(span, &err)

	result := RunResult{RunID: runID, Failures: []MatchFailure{}}
	logger := s.logger.With("run_id", runID, "mode", "replay")

	payloads, err := s.archive.ListArchivedScorecards(ctx)
	if err != nil {
		return result, fmt.Errorf("list archived scorecards: %w", err)
	}
	result.Total = len(payloads)
	if len(payloads) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return result, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		workers  sync.WaitGroup
		ingested atomic.Int32
		mu       sync.Mutex
		fatal    error
	)
	failures := make(chan MatchFailure, len(payloads))

	for _, payload := range payloads {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if ctx.Err() != nil {
				return
			}
			if err := s.replayMatch(ctx, payload); err != nil {
				if IsFatal(err) {
					mu.Lock()
					if fatal == nil {
						fatal = err
					}
					mu.Unlock()
					return
				}
				logger.WarnContext(ctx, "match replay failed",
					"match_id", payload.MatchID,
					"state", match.StateFailed,
					"error", err,
				)
				failures <- MatchFailure{MatchID: payload.MatchID, Error: err.Error()}
				return
			}
			ingested.Add(1)
		}); err != nil {
			workers.Done()
			return result, fmt.Errorf("submit replay task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(failures)

	for failure := range failures {
		result.Failures = append(result.Failures, failure)
	}
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].MatchID < result.Failures[j].MatchID })
	result.Failed = len(result.Failures)
	result.Ingested = int(ingested.Load())
	result.Skipped = result.Total - result.Ingested - result.Failed

	if fatal != nil {
		return result, fatal
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.InfoContext(ctx, "replay finished",
		"total", result.Total,
		"ingested", result.Ingested,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ReplayService) replayMatch(ctx context.Context, payload rawdata.Payload) error {
	matchID := payload.MatchID
	if matchID <= 0 {
		return fmt.Errorf("%w: archived scorecard %s has no match id", ErrInvalidInput, payload.Endpoint)
	}

	doc, err := jsondoc.Parse([]byte(payload.PayloadJSON))
	if err != nil {
		return fmt.Errorf("decode archived scorecard match_id=%d: %w", matchID, err)
	}

	var rosterDocs map[int64]jsondoc.Document
	if s.catalog.RosterPath != nil && s.catalog.ExtractRoster != nil {
		rosterDocs, err = s.archivedRosters(ctx, matchID)
		if err != nil {
			return err
		}
	}

	batches, err := buildMatchBatches(s.catalog, s.validate, matchID, doc, rosterDocs)
	if err != nil {
		return err
	}
	if err := s.children.ReplaceMatchChildren(ctx, matchID, batches); err != nil {
		return fmt.Errorf("replace children match_id=%d: %w", matchID, err)
	}
	return nil
}

// archivedRosters returns nil when no roster of the match was archived, so a
// replay without rosters leaves the roster table empty for that match.
func (s *ReplayService) archivedRosters(ctx context.Context, matchID int64) (map[int64]jsondoc.Document, error) {
	teamIDs, err := s.matches.TeamsForMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load teams for match_id=%d: %w", matchID, err)
	}
	archived, err := s.archive.ListArchivedForMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list archived payloads match_id=%d: %w", matchID, err)
	}
	byEndpoint := make(map[string]rawdata.Payload, len(archived))
	for _, item := range archived {
		byEndpoint[item.Endpoint] = item
	}

	var out map[int64]jsondoc.Document
	for _, teamID := range teamIDs {
		item, ok := byEndpoint[s.catalog.RosterPath(matchID, teamID)]
		if !ok {
			continue
		}
		doc, err := jsondoc.Parse([]byte(item.PayloadJSON))
		if err != nil {
			return nil, fmt.Errorf("decode archived roster match_id=%d team_id=%d: %w", matchID, teamID, err)
		}
		if out == nil {
			out = make(map[int64]jsondoc.Document, len(teamIDs))
		}
		out[teamID] = doc
	}
	return out, nil
}
