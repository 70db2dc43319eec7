// Package store persists extracted cricket records in SQLite or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/cricket-analytics/internal/config"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/platform/querybuilder"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqliteBusyTimeoutMS = 5000

	pqReadOnlyTransaction pq.ErrorCode = "25006"
)

type Options struct {
	Driver string
	Path   string
	URL    string
	Logger *logging.Logger
}

// Store is one open database. It is created per run and closed on exit.
// Writers are serialized by writeMu.
type Store struct {
	db      *sqlx.DB
	driver  string
	migrate string
	qb      querybuilder.Builder
	writeMu sync.Mutex
	logger  *logging.Logger
}

// Open connects and pings the database. Failures are marked ErrStoreUnavailable.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = config.DriverSQLite
	}

	var (
		dsn    string
		dbName string
		format querybuilder.Format
	)
	migrateURL, err := MigrateURL(driver, opts.Path, opts.URL)
	if err != nil {
		return nil, crerr.Mark(err, usecase.ErrStoreUnavailable)
	}
	switch driver {
	case config.DriverSQLite:
		path := strings.TrimSpace(opts.Path)
		dsn = sqliteDSN(path)
		dbName = filepath.Base(path)
		format = querybuilder.Question
	default:
		dsn = strings.TrimSpace(opts.URL)
		dbName = dbNameFromURL(dsn)
		format = querybuilder.Dollar
	}

	db, err := otelsqlx.Open(driver, dsn,
		otelsql.WithDBSystem(driver),
		otelsql.WithDBName(dbName),
		otelsql.WithQueryFormatter(formatQueryForTrace),
	)
	if err != nil {
		return nil, crerr.Mark(fmt.Errorf("open %s database: %w", driver, err), usecase.ErrStoreUnavailable)
	}
	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, crerr.Mark(fmt.Errorf("ping %s database: %w", driver, err), usecase.ErrStoreUnavailable)
	}

	return &Store{
		db:      db,
		driver:  driver,
		migrate: migrateURL,
		qb:      querybuilder.New(format),
		logger:  logger,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return crerr.Mark(fmt.Errorf("ping database: %w", err), usecase.ErrStoreUnavailable)
	}
	return nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, sqliteBusyTimeoutMS)
}

// MigrateURL returns the golang-migrate database URL for the given settings.
func MigrateURL(driver, path, url string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.DriverSQLite:
		if strings.TrimSpace(path) == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return "sqlite://" + sqliteDSN(strings.TrimSpace(path)), nil
	case config.DriverPostgres:
		if strings.TrimSpace(url) == "" {
			return "", fmt.Errorf("postgres url is required")
		}
		return strings.TrimSpace(url), nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", driver)
	}
}

// isReadOnlyViolation reports a write refused by a read-only connection or
// transaction.
func isReadOnlyViolation(err error) bool {
	var liteErr *sqlite.Error
	if crerr.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_READONLY
	}
	var pgErr *pq.Error
	if crerr.As(err, &pgErr) {
		return pgErr.Code == pqReadOnlyTransaction
	}
	return false
}
