package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type session struct {
	tx       *sql.Tx
	clock    *stampClock
	writable bool
	done     bool
}

var _ store.Session = (*session)(nil)

func newSession(tx *sql.Tx, writable bool, clock *stampClock) *session {
	return &session{tx: tx, writable: writable, clock: clock}
}

// Entities returns the adapter for kind bound to this session's transaction.
func (s *session) Entities(kind domain.EntityKind) (store.EntityAdapter, error) {
	t, err := tables.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return t.bind(s.tx, s.clock.stamp), nil
}

// Tombstones returns the deletion log bound to this session's transaction.
func (s *session) Tombstones() store.TombstoneStore {
	return &tombstoneLog{q: s.tx, now: s.clock.stamp}
}

func (s *session) Savepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "SAVEPOINT ", name)
}

func (s *session) RollbackTo(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (s *session) Release(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "RELEASE SAVEPOINT ", name)
}

func (s *session) savepointExec(ctx context.Context, stmt, name string) error {
	if !s.writable {
		return store.ErrReadOnly
	}
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := s.tx.ExecContext(ctx, stmt+name); err != nil {
		return fmt.Errorf("%s%s: %w", stmt, name, err)
	}
	return nil
}

func (s *session) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true
	defer s.finish()
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	defer s.finish()
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// finish releases the session's hold on the read horizon.
func (s *session) finish() {
	if s.writable {
		s.clock.untrack(s)
	}
}
