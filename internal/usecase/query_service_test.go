package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-analytics/internal/platform/cache"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedQuery struct {
	query string
	args  []any
}

type stubRowReader struct {
	mu      sync.Mutex
	queries []recordedQuery
	rows    func(query string) []Row
	err     error
}

func (r *stubRowReader) Query(_ context.Context, query string, args ...any) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, recordedQuery{query: query, args: args})
	if r.err != nil {
		return nil, r.err
	}
	if r.rows == nil {
		return nil, nil
	}
	return r.rows(query), nil
}

func TestQueryService_ListTables(t *testing.T) {
	t.Parallel()

	reader := &stubRowReader{rows: func(query string) []Row {
		if strings.Contains(query, "FROM matches") {
			return []Row{{"row_count": int64(3)}}
		}
		return []Row{{"row_count": int64(0)}}
	}}
	svc := NewQueryService(reader, cache.Config{}, 0, nil)

	tables, err := svc.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, len(browsableTables))
	require.Equal(t, TableSummary{Name: "matches", RowCount: 3}, tables[0])
	for _, table := range tables {
		require.NotEqual(t, "raw_payloads", table.Name)
	}
}

func TestQueryService_TableRows_BuildsFilteredQuery(t *testing.T) {
	t.Parallel()

	reader := &stubRowReader{}
	svc := NewQueryService(reader, cache.Config{}, 100, nil)

	rows, err := svc.TableRows(context.Background(), TableQuery{Table: "batsmen_details", MatchID: 35612, Limit: 1000})
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)

	require.Len(t, reader.queries, 1)
	got := reader.queries[0]
	require.Contains(t, got.query, "FROM batsmen_details")
	require.Contains(t, got.query, "match_id = ?")
	require.Contains(t, got.query, "ORDER BY match_id, innings_id, batsman_id")
	require.Contains(t, got.query, "LIMIT 100")
	require.Equal(t, []any{int64(35612)}, got.args)
}

func TestQueryService_TableRows_RejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := NewQueryService(&stubRowReader{}, cache.Config{}, 10, nil)
	ctx := context.Background()

	_, err := svc.TableRows(ctx, TableQuery{Table: "raw_payloads"})
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = svc.TableRows(ctx, TableQuery{Table: "matches", MatchID: -1})
	require.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)

	_, err = svc.TableRows(ctx, TableQuery{Table: "teams", MatchID: 5})
	require.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
}

func TestQueryService_UsesCache(t *testing.T) {
	t.Parallel()

	reader := &stubRowReader{rows: func(string) []Row {
		return []Row{{"team_id": int64(2), "team_name": "India"}}
	}}
	svc := NewQueryService(reader, cache.Config{Enabled: true, TTL: time.Minute}, 10, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rows, err := svc.TableRows(ctx, TableQuery{Table: "teams"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	require.Len(t, reader.queries, 1)
}

func TestQueryService_LogCacheStats(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := logging.FromZap(zap.New(core))
	reader := &stubRowReader{rows: func(string) []Row {
		return []Row{{"team_id": int64(2)}}
	}}
	ctx := context.Background()

	svc := NewQueryService(reader, cache.Config{Enabled: true, TTL: time.Minute}, 10, logger)
	for i := 0; i < 3; i++ {
		_, err := svc.TableRows(ctx, TableQuery{Table: "teams"})
		require.NoError(t, err)
	}
	svc.LogCacheStats(ctx)

	entries := logs.FilterMessage("query cache stats").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, uint64(2), fields["rows_hits"])
	require.Equal(t, uint64(1), fields["rows_misses"])
	require.Equal(t, int64(1), fields["rows_entries"])

	NewQueryService(reader, cache.Config{}, 10, logger).LogCacheStats(ctx)
	require.Len(t, logs.FilterMessage("query cache stats").All(), 1)
}

func TestQueryService_PropagatesReaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := NewQueryService(&stubRowReader{err: boom}, cache.Config{}, 10, nil)

	_, err := svc.TableRows(context.Background(), TableQuery{Table: "matches"})
	require.ErrorIs(t, err, boom)
}
