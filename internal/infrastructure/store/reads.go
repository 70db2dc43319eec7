package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/platform/querybuilder"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

func (s *Store) ListMatchIDs(ctx context.Context) ([]int64, error) {
	query, args, err := s.qb.Select("match_id").From(record.TableMatches).OrderBy("match_id").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match ids query: %w", err)
	}
	var out []int64
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select match ids: %w", err)
	}
	return out, nil
}

// ListPendingMatchIDs returns matches with no rows in any child table.
func (s *Store) ListPendingMatchIDs(ctx context.Context) ([]int64, error) {
	query, args, err := s.qb.Select("match_id").From(record.TableMatches).
		Where(querybuilder.Expr("match_id NOT IN (" + childMatchIDsSubquery() + ")")).
		OrderBy("match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select pending match ids query: %w", err)
	}
	var out []int64
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select pending match ids: %w", err)
	}
	return out, nil
}

// ListIncompleteMatchIDs returns matches whose stored detail is not complete.
func (s *Store) ListIncompleteMatchIDs(ctx context.Context) ([]int64, error) {
	query, args, err := s.qb.Select("match_id").From(record.TableMatchDetails).
		Where(querybuilder.Expr("NOT is_complete")).
		OrderBy("match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select incomplete match ids query: %w", err)
	}
	var out []int64
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select incomplete match ids: %w", err)
	}
	return out, nil
}

func (s *Store) MatchExists(ctx context.Context, matchID int64) (bool, error) {
	return s.exists(ctx, record.TableMatches, matchID)
}

// TeamsForMatch returns the distinct positive team ids stored on the match row.
func (s *Store) TeamsForMatch(ctx context.Context, matchID int64) ([]int64, error) {
	query, args, err := s.qb.Select("team1_id", "team2_id").From(record.TableMatches).
		Where(querybuilder.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match teams query: %w", err)
	}
	var rows []struct {
		Team1ID int64 `db:"team1_id"`
		Team2ID int64 `db:"team2_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match teams match_id=%d: %w", matchID, err)
	}

	out := make([]int64, 0, 2)
	for _, row := range rows {
		for _, id := range []int64{row.Team1ID, row.Team2ID} {
			if id > 0 && !containsID(out, id) {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// ListArchivedScorecards returns the archived scorecard payload of every
// stored match, ordered by match id.
func (s *Store) ListArchivedScorecards(ctx context.Context) ([]rawdata.Payload, error) {
	query, args, err := s.qb.Select("*").From(record.TableRawPayloads).
		Where(
			querybuilder.Expr("match_id > ?", 0),
			querybuilder.Expr("endpoint LIKE ?", "%/scard"),
			querybuilder.Expr("match_id IN (SELECT match_id FROM "+record.TableMatches+")"),
		).
		OrderBy("match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select archived scorecards query: %w", err)
	}
	var out []rawdata.Payload
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select archived scorecards: %w", err)
	}
	return out, nil
}

func (s *Store) ListArchivedForMatch(ctx context.Context, matchID int64) ([]rawdata.Payload, error) {
	query, args, err := s.qb.Select("*").From(record.TableRawPayloads).
		Where(querybuilder.Eq("match_id", matchID)).
		OrderBy("endpoint").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select archived payloads query: %w", err)
	}
	var out []rawdata.Payload
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select archived payloads match_id=%d: %w", matchID, err)
	}
	return out, nil
}

// Query runs one read-only statement written with '?' placeholders and
// returns the rows keyed by column name. Text columns come back as strings.
// The statement executes on a connection the database itself holds read-only,
// so a write hidden behind a SELECT or WITH prefix is refused.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]usecase.Row, error) {
	statement, err := readOnlyStatement(query)
	if err != nil {
		return nil, err
	}
	statement = s.db.Rebind(statement)

	var out []usecase.Row
	if s.driver == config.DriverSQLite {
		out, err = s.queryOnlyConn(ctx, statement, args)
	} else {
		out, err = s.queryReadOnlyTx(ctx, statement, args)
	}
	if err != nil {
		if isReadOnlyViolation(err) {
			return nil, crerr.Mark(err, usecase.ErrReadOnlyQuery)
		}
		return nil, err
	}
	return out, nil
}

type rowQueryer interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// queryOnlyConn pins one sqlite connection, switches it to query_only for
// the statement and switches it back before returning it to the pool.
func (s *Store) queryOnlyConn(ctx context.Context, statement string, args []any) ([]usecase.Row, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire query connection: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "PRAGMA query_only = 0"); err != nil {
			s.logger.Warn("reset query_only failed, discarding connection", "error", err)
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = 1"); err != nil {
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	return collectRows(ctx, conn, statement, args)
}

func (s *Store) queryReadOnlyTx(ctx context.Context, statement string, args []any) ([]usecase.Row, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	return collectRows(ctx, tx, statement, args)
}

func collectRows(ctx context.Context, q rowQueryer, statement string, args []any) ([]usecase.Row, error) {
	rows, err := q.QueryxContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make([]usecase.Row, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		for key, value := range row {
			if raw, ok := value.([]byte); ok {
				row[key] = string(raw)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query rows: %w", err)
	}
	return out, nil
}

func (s *Store) exists(ctx context.Context, table string, matchID int64) (bool, error) {
	query, args, err := s.qb.Select("COUNT(*)").From(table).
		Where(querybuilder.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build count %s query: %w", table, err)
	}
	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("count %s rows match_id=%d: %w", table, matchID, err)
	}
	return count > 0, nil
}

// readOnlyStatement is the fast path ahead of the read-only connection: a
// single statement starting with SELECT or WITH. A trailing semicolon is
// dropped.
func readOnlyStatement(query string) (string, error) {
	statement := strings.TrimSpace(query)
	statement = strings.TrimSpace(strings.TrimSuffix(statement, ";"))
	if statement == "" {
		return "", crerr.Mark(fmt.Errorf("empty statement"), usecase.ErrReadOnlyQuery)
	}
	if hasStatementSeparator(statement) {
		return "", crerr.Mark(fmt.Errorf("multiple statements"), usecase.ErrReadOnlyQuery)
	}
	fields := strings.Fields(statement)
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return statement, nil
	default:
		return "", crerr.Mark(fmt.Errorf("statement starts with %s", fields[0]), usecase.ErrReadOnlyQuery)
	}
}

// hasStatementSeparator reports a ';' outside quoted text and comments.
func hasStatementSeparator(statement string) bool {
	for i := 0; i < len(statement); i++ {
		switch c := statement[i]; c {
		case '\'', '"', '`':
			end := strings.IndexByte(statement[i+1:], c)
			if end < 0 {
				return false
			}
			i += end + 1
		case '-':
			if i+1 < len(statement) && statement[i+1] == '-' {
				end := strings.IndexByte(statement[i:], '\n')
				if end < 0 {
					return false
				}
				i += end
			}
		case '/':
			if i+1 < len(statement) && statement[i+1] == '*' {
				end := strings.Index(statement[i+2:], "*/")
				if end < 0 {
					return false
				}
				i += end + 3
			}
		case ';':
			return true
		}
	}
	return false
}

func childMatchIDsSubquery() string {
	parts := make([]string, 0, len(record.ChildTables))
	for _, table := range record.ChildTables {
		parts = append(parts, "SELECT match_id FROM "+table)
	}
	return strings.Join(parts, " UNION ")
}

func containsID(ids []int64, id int64) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}
