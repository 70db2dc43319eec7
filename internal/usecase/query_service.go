package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/platform/cache"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/platform/querybuilder"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// RowReader runs read-only statements written with '?' placeholders.
type RowReader interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

type TableSummary struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

type TableQuery struct {
	Table   string
	MatchID int64
	Limit   int
}

// browsableTables are exposed to readers in display order. Raw payloads are
// kept out of the listing.
var browsableTables = []string{
	record.TableMatches,
	record.TableMatchDetails,
	record.TableInnings,
	record.TableBatsmen,
	record.TableBowlers,
	record.TablePartnerships,
	record.TableRosters,
	record.TableTeams,
}

var tableOrderBy = map[string][]string{
	record.TableMatches:      {"match_id"},
	record.TableMatchDetails: {"match_id"},
	record.TableInnings:      {"match_id", "innings_id"},
	record.TableBatsmen:      {"match_id", "innings_id", "batsman_id"},
	record.TableBowlers:      {"match_id", "innings_id", "bowler_id"},
	record.TablePartnerships: {"match_id", "innings_id", "partnership_id"},
	record.TableRosters:      {"match_id", "team_id", "player_id"},
	record.TableTeams:        {"team_id"},
}

type QueryService struct {
	reader  RowReader
	tables  *cache.TTL[[]TableSummary]
	rows    *cache.TTL[[]Row]
	maxRows int
	builder querybuilder.Builder
	logger  *logging.Logger
}

// NewQueryService builds the read side. Results are cached only when
// cacheCfg is enabled.
func NewQueryService(reader RowReader, cacheCfg cache.Config, maxRows int, logger *logging.Logger) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxRows < 1 {
		maxRows = 500
	}
	return &QueryService{
		reader:  reader,
		tables:  cache.New[[]TableSummary](cacheCfg),
		rows:    cache.New[[]Row](cacheCfg),
		maxRows: maxRows,
		builder: querybuilder.New(querybuilder.Question),
		logger:  logger,
	}
}

// LogCacheStats writes the hit and miss counters of both result caches. It
// logs nothing when caching is disabled.
func (s *QueryService) LogCacheStats(ctx context.Context) {
	if s.tables == nil && s.rows == nil {
		return
	}
	tables, rows := s.tables.Stats(), s.rows.Stats()
	s.logger.InfoContext(ctx, "query cache stats",
		"tables_hits", tables.Hits,
		"tables_misses", tables.Misses,
		"rows_hits", rows.Hits,
		"rows_misses", rows.Misses,
		"rows_entries", rows.Entries,
	)
}

func (s *QueryService) ListTables(ctx context.Context) ([]TableSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListTables")
	defer span.End()

	return s.tables.Load(ctx, "tables", func(ctx context.Context) ([]TableSummary, error) {
		out := make([]TableSummary, 0, len(browsableTables))
		for _, table := range browsableTables {
			query, args, err := s.builder.Select("COUNT(*) AS row_count").From(table).ToSQL()
			if err != nil {
				return nil, fmt.Errorf("build count query table=%s: %w", table, err)
			}
			rows, err := s.reader.Query(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("count rows table=%s: %w", table, err)
			}
			summary := TableSummary{Name: table}
			if len(rows) > 0 {
				summary.RowCount = toInt64(rows[0]["row_count"])
			}
			out = append(out, summary)
		}
		return out, nil
	})
}

// TableRows returns rows of one table, optionally narrowed to a match. The
// limit is clamped to the configured maximum.
func (s *QueryService) TableRows(ctx context.Context, input TableQuery) ([]Row, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.TableRows")
	defer span.End()

	table := strings.TrimSpace(input.Table)
	orderBy, ok := tableOrderBy[table]
	if !ok {
		return nil, fmt.Errorf("%w: table=%s", ErrNotFound, table)
	}
	if input.MatchID < 0 {
		return nil, fmt.Errorf("%w: match_id must not be negative", ErrInvalidInput)
	}
	if input.MatchID > 0 && table == record.TableTeams {
		return nil, fmt.Errorf("%w: table %s has no match_id column", ErrInvalidInput, table)
	}
	limit := input.Limit
	if limit <= 0 || limit > s.maxRows {
		limit = s.maxRows
	}

	key := fmt.Sprintf("%s:%d:%d", table, input.MatchID, limit)
	return s.rows.Load(ctx, key, func(ctx context.Context) ([]Row, error) {
		qb := s.builder.Select("*").From(table).OrderBy(orderBy...).Limit(limit)
		if input.MatchID > 0 {
			qb = qb.Where(querybuilder.Eq("match_id", input.MatchID))
		}
		query, args, err := qb.ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build rows query table=%s: %w", table, err)
		}
		rows, err := s.reader.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query rows table=%s: %w", table, err)
		}
		if rows == nil {
			rows = []Row{}
		}
		return rows, nil
	})
}

func toInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case int32:
		return int64(typed)
	case float64:
		return int64(typed)
	case []byte:
		var n int64
		_, _ = fmt.Sscan(string(typed), &n)
		return n
	default:
		return 0
	}
}
