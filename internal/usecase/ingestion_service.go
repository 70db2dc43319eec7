package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/player"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/domain/scorecard"
	"github.com/riskibarqy/cricket-analytics/internal/domain/team"
	"github.com/riskibarqy/cricket-analytics/internal/platform/jsondoc"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
)

// ChildWriter replaces every child row of one match in a single transaction.
type ChildWriter interface {
	ReplaceMatchChildren(ctx context.Context, matchID int64, batches []record.Batch) error
}

type IngestionConfig struct {
	MaxAttempts       int
	Discover          bool
	SyncTeams         bool
	FetchRosters      bool
	RefreshIncomplete bool
	ArchiveRaw        bool
}

// MatchFailure is one match that could not be ingested during a run.
type MatchFailure struct {
	MatchID int64  `json:"match_id"`
	Error   string `json:"error"`
}

type RunResult struct {
	RunID    string         `json:"run_id"`
	Total    int            `json:"total"`
	Ingested int            `json:"ingested"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Failures []MatchFailure `json:"failures"`
}

// IngestionService drives matches from Discovered to Ingested. Calls to the
// provider are sequential and every attempt waits on the shared pacer.
type IngestionService struct {
	provider Provider
	catalog  Catalog
	matches  match.Repository
	children ChildWriter
	teams    team.Repository
	archive  rawdata.Repository
	pacer    *resilience.Pacer
	validate *validator.Validate
	cfg      IngestionConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewIngestionService(
	provider Provider,
	catalog Catalog,
	matches match.Repository,
	children ChildWriter,
	teams team.Repository,
	archive rawdata.Repository,
	pacer *resilience.Pacer,
	cfg IngestionConfig,
	logger *logging.Logger,
) (*IngestionService, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if provider == nil || matches == nil || children == nil {
		return nil, fmt.Errorf("%w: provider, match repository and child writer are required", ErrInvalidInput)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &IngestionService{
		provider: provider,
		catalog:  catalog,
		matches:  matches,
		children: children,
		teams:    teams,
		archive:  archive,
		pacer:    pacer,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run performs one batch: optional discovery and team sync, then every
// eligible match in ascending id order. A failed match is recorded and the
// batch continues; only fatal store errors abort.
func (s *IngestionService) Run(ctx context.Context, runID string) (_ RunResult, err error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx, span := startJobSpan(ctx, "usecase.IngestionService.Run", attribute.String("run.id", runID))
	defer finishSpan(span, &err)

	result := RunResult{RunID: runID, Failures: []MatchFailure{}}
	logger := s.logger.With("run_id", runID)

	if s.cfg.Discover {
		inserted, err := s.Discover(ctx)
		if err != nil {
			if IsFatal(err) {
				return result, err
			}
			logger.WarnContext(ctx, "match discovery failed", "error", err)
		} else {
			logger.InfoContext(ctx, "match discovery finished", "inserted", inserted)
		}
	}
	if s.cfg.SyncTeams {
		synced, err := s.SyncTeams(ctx)
		if err != nil {
			if IsFatal(err) {
				return result, err
			}
			logger.WarnContext(ctx, "team directory sync failed", "error", err)
		} else {
			logger.InfoContext(ctx, "team directory synced", "teams", synced)
		}
	}

	all, err := s.matches.ListMatchIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("list matches: %w", err)
	}
	eligible, err := s.eligibleMatchIDs(ctx)
	if err != nil {
		return result, err
	}
	result.Total = len(all)
	result.Skipped = len(all) - len(eligible)
	if result.Skipped < 0 {
		result.Skipped = 0
	}

	for _, matchID := range eligible {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stored, err := s.ingestMatch(ctx, logger, matchID)
		if err != nil {
			if IsFatal(err) {
				return result, err
			}
			result.Failed++
			result.Failures = append(result.Failures, MatchFailure{MatchID: matchID, Error: err.Error()})
			logger.WarnContext(ctx, "match ingestion failed",
				"match_id", matchID,
				"state", match.StateFailed,
				"error", err,
			)
			continue
		}
		if !stored {
			result.Skipped++
			logger.InfoContext(ctx, "no data found for match", "match_id", matchID, "state", match.StateDiscovered)
			continue
		}
		result.Ingested++
		logger.InfoContext(ctx, "match ingested", "match_id", matchID, "state", match.StateIngested)
	}

	logger.InfoContext(ctx, "ingestion run finished",
		"total", result.Total,
		"ingested", result.Ingested,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// Discover inserts matches from the recent-match feed that are not stored yet.
func (s *IngestionService) Discover(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Discover")
	defer span.End()

	if s.catalog.RecentMatchesPath == "" || s.catalog.ExtractMatches == nil {
		return 0, fmt.Errorf("%w: match discovery is not configured", ErrDependencyUnavailable)
	}

	doc, raw, err := s.fetch(ctx, s.catalog.RecentMatchesPath)
	if err != nil {
		return 0, fmt.Errorf("fetch recent matches: %w", err)
	}
	if err := s.archivePayloads(ctx, rawdata.NewPayload(s.catalog.RecentMatchesPath, 0, raw, s.now())); err != nil {
		return 0, err
	}

	items := s.catalog.ExtractMatches(doc)
	s.logGaps(ctx, 0, doc)
	valid := make([]match.Match, 0, len(items))
	for _, item := range items {
		if err := s.validate.Struct(item); err != nil {
			s.logger.DebugContext(ctx, "skip invalid match row", "match_id", item.MatchID, "error", err)
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	inserted, err := s.matches.InsertMatches(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("insert discovered matches: %w", err)
	}
	return inserted, nil
}

// SyncTeams upserts the international team directory.
func (s *IngestionService) SyncTeams(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.SyncTeams")
	defer span.End()

	if s.teams == nil || s.catalog.TeamsPath == "" || s.catalog.ExtractTeams == nil {
		return 0, fmt.Errorf("%w: team sync is not configured", ErrDependencyUnavailable)
	}

	doc, raw, err := s.fetch(ctx, s.catalog.TeamsPath)
	if err != nil {
		return 0, fmt.Errorf("fetch team directory: %w", err)
	}
	if err := s.archivePayloads(ctx, rawdata.NewPayload(s.catalog.TeamsPath, 0, raw, s.now())); err != nil {
		return 0, err
	}

	items := s.catalog.ExtractTeams(doc)
	valid := make([]team.Team, 0, len(items))
	for _, item := range items {
		if err := s.validate.Struct(item); err != nil {
			s.logger.DebugContext(ctx, "skip invalid team row", "team_id", item.TeamID, "error", err)
			continue
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return 0, nil
	}
	if err := s.teams.UpsertTeams(ctx, valid); err != nil {
		return 0, fmt.Errorf("upsert teams: %w", err)
	}
	return len(valid), nil
}

// Reingest forces a full replacement of one match's child rows.
func (s *IngestionService) Reingest(ctx context.Context, matchID int64) (err error) {
	ctx, span := startJobSpan(ctx, "usecase.IngestionService.Reingest", attribute.Int64("match.id", matchID))
	defer finishSpan(span, &err)

	if matchID <= 0 {
		return fmt.Errorf("%w: match id must be greater than zero", ErrInvalidInput)
	}
	exists, err := s.matches.MatchExists(ctx, matchID)
	if err != nil {
		return fmt.Errorf("check match exists match_id=%d: %w", matchID, err)
	}
	if !exists {
		return fmt.Errorf("%w: match_id=%d", ErrNotFound, matchID)
	}

	logger := s.logger.With("run_id", uuid.NewString())
	stored, err := s.ingestMatch(ctx, logger, matchID)
	if err != nil {
		return err
	}
	if !stored {
		logger.WarnContext(ctx, "no data found for match, stored rows kept", "match_id", matchID)
		return nil
	}
	logger.InfoContext(ctx, "match reingested", "match_id", matchID, "state", match.StateIngested)
	return nil
}

func (s *IngestionService) eligibleMatchIDs(ctx context.Context) ([]int64, error) {
	pending, err := s.matches.ListPendingMatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending matches: %w", err)
	}
	if !s.cfg.RefreshIncomplete {
		return pending, nil
	}

	incomplete, err := s.matches.ListIncompleteMatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incomplete matches: %w", err)
	}
	return mergeMatchIDs(pending, incomplete), nil
}

// ingestMatch fetches, archives and stores one match. It reports false when
// no scorecard table yielded a row, in which case nothing is replaced and
// the match stays discovered.
func (s *IngestionService) ingestMatch(ctx context.Context, logger *logging.Logger, matchID int64) (stored bool, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.ingestMatch", attribute.Int64("match.id", matchID))
	defer finishSpan(span, &err)

	logger.DebugContext(ctx, "fetching match", "match_id", matchID, "state", match.StateFetching)

	path := s.catalog.ScorecardPath(matchID)
	doc, raw, err := s.fetch(ctx, path)
	if err != nil {
		return false, fmt.Errorf("fetch scorecard match_id=%d: %w", matchID, err)
	}
	payloads := []rawdata.Payload{rawdata.NewPayload(path, matchID, raw, s.now())}

	var rosterDocs map[int64]jsondoc.Document
	if s.rostersEnabled() {
		teamIDs, err := s.matches.TeamsForMatch(ctx, matchID)
		if err != nil {
			return false, fmt.Errorf("load teams for match_id=%d: %w", matchID, err)
		}
		rosterDocs = make(map[int64]jsondoc.Document, len(teamIDs))
		for _, teamID := range teamIDs {
			rosterPath := s.catalog.RosterPath(matchID, teamID)
			rosterDoc, rosterRaw, err := s.fetch(ctx, rosterPath)
			if err != nil {
				return false, fmt.Errorf("fetch roster match_id=%d team_id=%d: %w", matchID, teamID, err)
			}
			rosterDocs[teamID] = rosterDoc
			payloads = append(payloads, rawdata.NewPayload(rosterPath, matchID, rosterRaw, s.now()))
		}
	}

	if err := s.archivePayloads(ctx, payloads...); err != nil {
		return false, err
	}

	batches, err := buildMatchBatches(s.catalog, s.validate, matchID, doc, rosterDocs)
	s.logGaps(ctx, matchID, doc)
	if err != nil {
		return false, err
	}
	if !hasRows(batches[:len(s.catalog.Scorecard)]) {
		return false, nil
	}

	if err := s.children.ReplaceMatchChildren(ctx, matchID, batches); err != nil {
		return false, fmt.Errorf("replace children match_id=%d: %w", matchID, err)
	}
	return true, nil
}

func (s *IngestionService) rostersEnabled() bool {
	return s.cfg.FetchRosters && s.catalog.RosterPath != nil && s.catalog.ExtractRoster != nil
}

// fetch calls the provider, retrying transient failures up to MaxAttempts in
// total. Every attempt waits on the pacer first.
func (s *IngestionService) fetch(ctx context.Context, path string) (jsondoc.Document, []byte, error) {
	var (
		doc jsondoc.Document
		raw []byte
	)
	err := resilience.Retry(s.cfg.MaxAttempts, s.pacer, IsTransientFetch,
		func(attempt int, err error) {
			s.logger.DebugContext(ctx, "retrying provider call", "endpoint", path, "attempt", attempt, "error", err)
		},
		func() error {
			var err error
			doc, raw, err = s.provider.FetchRaw(ctx, path)
			return err
		},
	)
	if err != nil {
		return jsondoc.Document{}, nil, err
	}
	return doc, raw, nil
}

func (s *IngestionService) archivePayloads(ctx context.Context, payloads ...rawdata.Payload) error {
	if !s.cfg.ArchiveRaw || s.archive == nil || len(payloads) == 0 {
		return nil
	}
	if err := s.archive.ArchivePayloads(ctx, payloads); err != nil {
		return fmt.Errorf("archive raw payloads: %w", err)
	}
	return nil
}

func (s *IngestionService) logGaps(ctx context.Context, matchID int64, doc jsondoc.Document) {
	gaps := doc.Gaps()
	if len(gaps) == 0 {
		return
	}
	s.logger.DebugContext(ctx, "extraction gaps filled with defaults", "match_id", matchID, "count", len(gaps), "paths", gaps)
}

// buildMatchBatches runs every scorecard extractor plus the roster extractor,
// validates the rows and checks innings consistency.
func buildMatchBatches(
	catalog Catalog,
	validate *validator.Validate,
	matchID int64,
	doc jsondoc.Document,
	rosterDocs map[int64]jsondoc.Document,
) ([]record.Batch, error) {
	batches := make([]record.Batch, 0, len(catalog.Scorecard)+1)
	for _, extractor := range catalog.Scorecard {
		batch, err := extractor.Run(matchID, doc)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if rosterDocs != nil {
		teamIDs := make([]int64, 0, len(rosterDocs))
		for teamID := range rosterDocs {
			teamIDs = append(teamIDs, teamID)
		}
		sort.Slice(teamIDs, func(i, j int) bool { return teamIDs[i] < teamIDs[j] })

		roster := make([]player.RosterPlayer, 0, 48)
		for _, teamID := range teamIDs {
			rows, err := catalog.rosterRows(matchID, teamID, rosterDocs[teamID])
			if err != nil {
				return nil, err
			}
			roster = append(roster, rows...)
		}
		batches = append(batches, record.Rows(record.TableRosters, roster))
	}

	for _, batch := range batches {
		for _, row := range batch.Rows {
			if err := validate.Struct(row); err != nil {
				return nil, crerr.Mark(fmt.Errorf("validate %s row match_id=%d: %w", batch.Table, matchID, err), ErrInvalidInput)
			}
		}
	}
	if err := scorecard.CheckConsistency(matchID, batches); err != nil {
		return nil, crerr.Mark(fmt.Errorf("match_id=%d: %w", matchID, err), ErrInconsistentScorecard)
	}
	return batches, nil
}

func hasRows(batches []record.Batch) bool {
	for _, batch := range batches {
		if batch.Len() > 0 {
			return true
		}
	}
	return false
}

func mergeMatchIDs(groups ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	out := make([]int64, 0)
	for _, group := range groups {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
