package service

import (
	"context"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

// Expectation is what a client last observed of a row.
type Expectation struct {
	ModifiedAt *time.Time
	Version    *int64
}

// ExpectationOf extracts the expectation carried by a batch operation.
func ExpectationOf(op domain.BatchOperation) Expectation {
	return Expectation{ModifiedAt: op.ExpectedModifiedAt, Version: op.ExpectedVersion}
}

// IsSet reports whether the client supplied anything to compare against.
func (e Expectation) IsSet() bool {
	return e.ModifiedAt != nil || e.Version != nil
}

// Matches reports whether s is still the row the client observed. The version
// counter wins when both are present; the timestamp comparison is exact at
// storage precision.
func (e Expectation) Matches(s *domain.Syncable) bool {
	if e.Version != nil {
		return *e.Version == s.Version
	}
	if e.ModifiedAt != nil {
		return e.ModifiedAt.UTC().Truncate(domain.TimestampPrecision).Equal(s.ModifiedAt)
	}
	return false
}

// GetForUpdate loads a row and checks it against the client's expectation.
//
// Absent rows return (nil, false, nil): not-found, never a conflict. A present
// row that moved on returns (row, true, nil) so the caller can hand the
// authoritative snapshot back to the client.
func GetForUpdate(ctx context.Context, entities store.EntityAdapter, id, workspaceID string, expected Expectation) (domain.Entity, bool, error) {
	current, err := entities.GetOneOrNone(ctx, id, workspaceID)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, nil
	}
	return current, !expected.Matches(current.Sync()), nil
}
