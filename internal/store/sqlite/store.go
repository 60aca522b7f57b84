package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is fixed width so stored stamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store provides SQLite-backed persistence for the sync core.
//
// Writes go through a single-connection pool whose transactions start with
// BEGIN IMMEDIATE, so writers queue on the database lock instead of failing
// with SQLITE_BUSY on upgrade. Reads use a separate pool and see a consistent
// WAL snapshot for the life of their transaction.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	logger  *slog.Logger
	clock   *stampClock
}

var _ store.Store = (*Store)(nil)

// Open creates a new SQLite store at the given path and migrates it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	writeDB, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(time.Hour)

	if err := writeDB.Ping(); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := runMigrations(writeDB); err != nil {
		writeDB.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(2)
	readDB.SetConnMaxLifetime(time.Hour)

	return &Store{
		writeDB: writeDB,
		readDB:  readDB,
		logger:  logger,
		clock:   newStampClock(domain.Now),
	}, nil
}

// dsn builds a modernc connection string. Pragmas are applied to every pooled
// connection, not just the first.
func dsn(path string, writer bool) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(OFF)")
	if writer {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
		q.Set("_txlock", "immediate")
	} else {
		q.Add("_pragma", "query_only(1)")
	}
	return "file:" + path + "?" + q.Encode()
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Close closes both connection pools.
func (s *Store) Close() error {
	rerr := s.readDB.Close()
	if err := s.writeDB.Close(); err != nil {
		return err
	}
	return rerr
}

// Ping checks both pools.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.writeDB.PingContext(ctx); err != nil {
		return err
	}
	return s.readDB.PingContext(ctx)
}

// SetClock overrides the time source used for modification stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.clock.setSource(now)
}

// ReadHorizon returns a stamp that every write not yet visible to readers
// carries a later stamp than. Writes committed after a read session starts
// may still be newer than the horizon.
func (s *Store) ReadHorizon() time.Time {
	return s.clock.horizon()
}

// BeginRead starts a read-only session over a consistent snapshot.
func (s *Store) BeginRead(ctx context.Context) (store.Session, error) {
	tx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}
	return newSession(tx, false, s.clock), nil
}

// BeginWrite starts a write session holding the database write lock.
func (s *Store) BeginWrite(ctx context.Context) (store.Session, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin write: %w", err)
	}
	sess := newSession(tx, true, s.clock)
	s.clock.track(sess)
	return sess, nil
}

// formatTime formats a time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(domain.TimestampPrecision).Format(timeLayout)
}

// parseTime parses a stored timestamp.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or by older builds may use RFC 3339.
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// sinceArg renders an optional lower bound for a strictly-after filter.
func sinceArg(since *time.Time) string {
	if since == nil {
		return ""
	}
	return formatTime(*since)
}
