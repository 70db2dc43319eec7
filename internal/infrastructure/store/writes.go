package store

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/domain/team"
	"github.com/riskibarqy/cricket-analytics/internal/platform/querybuilder"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

// maxBindArgs stays under SQLite's default variable limit.
const maxBindArgs = 30000

// UpsertBatch writes every row of batch in one transaction. Rows whose
// natural key already exists replace the stored row.
func (s *Store) UpsertBatch(ctx context.Context, batch record.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, "upsert "+batch.Table, func(tx *sqlx.Tx) error {
		_, err := s.insertRows(ctx, tx, batch.Table, batch.Rows, true)
		return err
	})
}

// ReplaceMatchChildren deletes every child row of matchID and inserts batches,
// all in one transaction. The parent match must exist.
func (s *Store) ReplaceMatchChildren(ctx context.Context, matchID int64, batches []record.Batch) error {
	for _, batch := range batches {
		if !record.IsChildTable(batch.Table) {
			return crerr.Mark(fmt.Errorf("%s is not a match child table", batch.Table), usecase.ErrWriteFailure)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, fmt.Sprintf("replace children match_id=%d", matchID), func(tx *sqlx.Tx) error {
		query, args, err := s.qb.Select("COUNT(*)").From(record.TableMatches).
			Where(querybuilder.Eq("match_id", matchID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build parent check query: %w", err)
		}
		var parents int
		if err := tx.GetContext(ctx, &parents, query, args...); err != nil {
			return fmt.Errorf("check parent match: %w", err)
		}
		if parents == 0 {
			return crerr.Mark(fmt.Errorf("match_id=%d is not stored", matchID), usecase.ErrNotFound)
		}

		for _, table := range record.ChildTables {
			query, args, err := s.qb.DeleteFrom(table).Where(querybuilder.Eq("match_id", matchID)).ToSQL()
			if err != nil {
				return fmt.Errorf("build delete %s query: %w", table, err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("delete %s rows: %w", table, err)
			}
		}

		for _, batch := range batches {
			if _, err := s.insertRows(ctx, tx, batch.Table, batch.Rows, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertMatches stores matches that are not stored yet and reports how many
// were inserted. Stored matches are left untouched.
func (s *Store) InsertMatches(ctx context.Context, items []match.Match) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var inserted int64
	err := s.inTx(ctx, "insert matches", func(tx *sqlx.Tx) error {
		n, err := s.insertRows(ctx, tx, record.TableMatches, record.Rows(record.TableMatches, items).Rows, false)
		inserted = n
		return err
	})
	return int(inserted), err
}

func (s *Store) UpsertTeams(ctx context.Context, items []team.Team) error {
	return s.UpsertBatch(ctx, record.Rows(record.TableTeams, items))
}

func (s *Store) ArchivePayloads(ctx context.Context, items []rawdata.Payload) error {
	return s.UpsertBatch(ctx, record.Rows(record.TableRawPayloads, items))
}

func (s *Store) inTx(ctx context.Context, action string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Mark(fmt.Errorf("begin tx %s: %w", action, err), usecase.ErrStoreUnavailable)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return crerr.Mark(fmt.Errorf("%s: %w", action, err), usecase.ErrWriteFailure)
	}
	if err := tx.Commit(); err != nil {
		return crerr.Mark(fmt.Errorf("commit tx %s: %w", action, err), usecase.ErrWriteFailure)
	}
	return nil
}

// insertRows writes rows in multi-row chunks. With replace set, conflicting
// rows are overwritten; otherwise they are skipped.
func (s *Store) insertRows(ctx context.Context, tx *sqlx.Tx, table string, rows []any, replace bool) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	keys, ok := tableKeys[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	cols, err := querybuilder.Columns(rows[0])
	if err != nil {
		return 0, fmt.Errorf("columns of %s row: %w", table, err)
	}

	suffix := querybuilder.OnConflictUpdate(keys, nil)
	if replace {
		suffix = querybuilder.OnConflictUpdate(keys, cols)
	}

	chunkSize := maxBindArgs / len(cols)
	if chunkSize < 1 {
		chunkSize = 1
	}

	var affected int64
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args, err := s.qb.InsertModels(table, rows[start:end], suffix)
		if err != nil {
			return affected, fmt.Errorf("build insert %s query: %w", table, err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return affected, fmt.Errorf("insert %s rows: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}
