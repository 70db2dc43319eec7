package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/domain/match"
	"github.com/riskibarqy/cricket-analytics/internal/domain/player"
	"github.com/riskibarqy/cricket-analytics/internal/domain/rawdata"
	"github.com/riskibarqy/cricket-analytics/internal/domain/record"
	"github.com/riskibarqy/cricket-analytics/internal/domain/scorecard"
	"github.com/riskibarqy/cricket-analytics/internal/domain/team"
	"github.com/riskibarqy/cricket-analytics/internal/platform/querybuilder"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// tableModels are the row types whose db tags define each table's columns.
var tableModels = map[string]any{
	record.TableMatches:      match.Match{},
	record.TableMatchDetails: match.Detail{},
	record.TableInnings:      scorecard.Innings{},
	record.TableBatsmen:      scorecard.Batsman{},
	record.TableBowlers:      scorecard.Bowler{},
	record.TablePartnerships: scorecard.Partnership{},
	record.TableTeams:        team.Team{},
	record.TableRosters:      player.RosterPlayer{},
	record.TableRawPayloads:  rawdata.Payload{},
}

// tableKeys are the natural keys used for conflict resolution.
var tableKeys = map[string][]string{
	record.TableMatches:      {"match_id"},
	record.TableMatchDetails: {"match_id"},
	record.TableInnings:      {"match_id", "innings_id"},
	record.TableBatsmen:      {"match_id", "innings_id", "batsman_id"},
	record.TableBowlers:      {"match_id", "innings_id", "bowler_id"},
	record.TablePartnerships: {"match_id", "innings_id", "partnership_id"},
	record.TableTeams:        {"team_id"},
	record.TableRosters:      {"match_id", "team_id", "player_id"},
	record.TableRawPayloads:  {"endpoint"},
}

// MigrationSource returns the embedded migration set for driver.
func MigrationSource(driver string) (string, embed.FS, error) {
	switch driver {
	case config.DriverSQLite:
		return "migrations/sqlite", migrationFiles, nil
	case config.DriverPostgres:
		return "migrations/postgres", migrationFiles, nil
	default:
		return "", embed.FS{}, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// NewMigrator builds a golang-migrate instance over the embedded migrations.
// The caller owns Close.
func NewMigrator(driver, databaseURL string) (*migrate.Migrate, error) {
	dir, fsys, err := MigrationSource(driver)
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// EnsureSchema applies pending migrations, then verifies the live columns of
// every table against the row models. A mismatch is ErrSchemaConflict.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := NewMigrator(s.driver, s.migrate)
	if err != nil {
		return crerr.Mark(err, usecase.ErrStoreUnavailable)
	}
	upErr := m.Up()
	srcErr, dbErr := m.Close()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(upErr, &dirty) {
			return crerr.Mark(fmt.Errorf("apply migrations: %w", upErr), usecase.ErrSchemaConflict)
		}
		return crerr.Mark(fmt.Errorf("apply migrations: %w", upErr), usecase.ErrStoreUnavailable)
	}
	if srcErr != nil {
		s.logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		s.logger.Warn("close migration db", "error", dbErr)
	}

	return s.verifyColumns(ctx)
}

func (s *Store) verifyColumns(ctx context.Context) error {
	tables := make([]string, 0, len(tableModels))
	for table := range tableModels {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		want, err := querybuilder.Columns(tableModels[table])
		if err != nil {
			return fmt.Errorf("columns of %s model: %w", table, err)
		}
		got, err := s.liveColumns(ctx, table)
		if err != nil {
			return err
		}
		if diff := columnDiff(want, got); diff != "" {
			return crerr.Mark(fmt.Errorf("table %s: %s", table, diff), usecase.ErrSchemaConflict)
		}
	}
	return nil
}

func (s *Store) liveColumns(ctx context.Context, table string) ([]string, error) {
	var (
		query string
		args  []any
	)
	switch s.driver {
	case config.DriverSQLite:
		query = "SELECT name FROM pragma_table_info(?)"
		args = []any{table}
	default:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1"
		args = []any{table}
	}

	var cols []string
	if err := s.db.SelectContext(ctx, &cols, query, args...); err != nil {
		return nil, crerr.Mark(fmt.Errorf("read columns of %s: %w", table, err), usecase.ErrStoreUnavailable)
	}
	return cols, nil
}

func columnDiff(want, got []string) string {
	if len(got) == 0 {
		return "table is missing"
	}
	live := make(map[string]struct{}, len(got))
	for _, col := range got {
		live[strings.ToLower(col)] = struct{}{}
	}
	expected := make(map[string]struct{}, len(want))
	var missing, extra []string
	for _, col := range want {
		expected[col] = struct{}{}
		if _, ok := live[col]; !ok {
			missing = append(missing, col)
		}
	}
	for _, col := range got {
		if _, ok := expected[strings.ToLower(col)]; !ok {
			extra = append(extra, col)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return ""
	}
	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(missing, ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected columns "+strings.Join(extra, ","))
	}
	return strings.Join(parts, "; ")
}
