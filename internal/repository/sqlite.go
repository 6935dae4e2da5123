package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the database with the given driver ("sqlite3" for
// mattn/go-sqlite3, "sqlite" for modernc.org/sqlite) and applies migrations.
// Connection pragmas are added to the DSN in the driver's own syntax so every
// pooled connection gets them.
func NewSQLiteStore(driver, dsn string, logger zerolog.Logger) (*SQLiteStore, error) {
	if driver == "" {
		driver = "sqlite3"
	}
	memory := isMemoryDSN(dsn)
	db, err := sql.Open(driver, withPragmas(driver, dsn, memory))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		now:    time.Now,
	}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

const busyTimeoutMs = 5000

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// withPragmas enables foreign keys, a busy timeout, WAL for file databases and
// immediate write transactions. Parameters already present in dsn win.
func withPragmas(driver, dsn string, memory bool) string {
	var params []string
	add := func(present, param string) {
		if !strings.Contains(dsn, present) {
			params = append(params, param)
		}
	}

	switch driver {
	case "sqlite":
		add("foreign_keys", "_pragma=foreign_keys(1)")
		add("busy_timeout", fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMs))
		if !memory {
			add("journal_mode", "_pragma=journal_mode(WAL)")
		}
	default:
		add("_foreign_keys", "_foreign_keys=on")
		add("_busy_timeout", fmt.Sprintf("_busy_timeout=%d", busyTimeoutMs))
		if !memory {
			add("_journal_mode", "_journal_mode=WAL")
		}
	}
	add("_txlock", "_txlock=immediate")

	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// migrate runs the embedded goose migrations.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys,
		goose.WithLogger(gooseLogger{logger: s.logger}),
	)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		s.logger.Debug().
			Int64("version", r.Source.Version).
			Dur("duration", r.Duration).
			Msg("migration applied")
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), v...)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
