// Package store defines the persistence contracts the sync core runs against.
package store

import (
	"context"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

// EntityAdapter is the uniform storage capability for one entity kind.
// Adapters are bound to a Session and must not outlive it.
type EntityAdapter interface {
	Kind() domain.EntityKind

	// ListModifiedSince returns rows with modified_at strictly after since (all
	// rows when since is nil), ascending by modified_at then id, at most limit.
	ListModifiedSince(ctx context.Context, workspaceID string, since *time.Time, limit int) ([]domain.Entity, error)

	// GetOneOrNone returns nil, nil when the row does not exist in the workspace.
	GetOneOrNone(ctx context.Context, id, workspaceID string) (domain.Entity, error)

	// Create inserts a new row built from fields and returns it.
	Create(ctx context.Context, workspaceID string, fields domain.FieldSet) (domain.Entity, error)

	// Update applies fields to current, bumps its version and modification
	// stamp and persists it. Returns ErrVersionMismatch if the stored row moved
	// on since current was read.
	Update(ctx context.Context, current domain.Entity, fields domain.FieldSet) (domain.Entity, error)

	// Delete removes the row. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id, workspaceID string) error
}

// TombstoneStore is the deletion log read by delta clients.
type TombstoneStore interface {
	// RecordDeletion stores t, replacing any earlier tombstone for the same
	// entity. A zero DeletedAt is filled with the next store stamp.
	RecordDeletion(ctx context.Context, t *domain.Tombstone) error

	// ListDeletedSince returns tombstones with deleted_at strictly after since,
	// restricted to kinds, ascending by deleted_at then entity id, at most limit.
	ListDeletedSince(ctx context.Context, workspaceID string, since *time.Time, kinds []domain.EntityKind, limit int) ([]domain.Tombstone, error)

	// PruneWatermark returns the newest cutoff tombstones were pruned at, or nil.
	PruneWatermark(ctx context.Context) (*time.Time, error)
}

// Session is one unit of work. Reads inside a write session observe the
// session's own uncommitted writes.
type Session interface {
	Entities(kind domain.EntityKind) (EntityAdapter, error)
	Tombstones() TombstoneStore

	// Savepoint, RollbackTo and Release scope a nested unit inside a write session.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	Commit() error
	// Rollback is a no-op after Commit, so it can always be deferred.
	Rollback() error
}

// Store opens sessions against the database.
type Store interface {
	BeginRead(ctx context.Context) (Session, error)
	BeginWrite(ctx context.Context) (Session, error)

	// ReadHorizon returns a stamp that every write not yet committed, or not
	// yet begun, is stamped strictly after.
	ReadHorizon() time.Time

	// PruneTombstones deletes tombstones older than cutoff and advances the
	// prune watermark.
	PruneTombstones(ctx context.Context, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
