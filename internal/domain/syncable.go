package domain

import "time"

// TimestampPrecision is the resolution at which modification stamps are stored
// and compared. Clients echo stamps back verbatim, so nothing finer may be kept.
const TimestampPrecision = time.Microsecond

// Now returns the current UTC time at TimestampPrecision.
func Now() time.Time {
	return time.Now().UTC().Truncate(TimestampPrecision)
}

// Syncable provides common fields for entities that participate in synchronization.
// This gets embedded in every synced domain type.
type Syncable struct {
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Version     int64     `json:"version"`
}

// Sync exposes the embedded sync fields through the Entity interface.
func (s *Syncable) Sync() *Syncable {
	return s
}

// InitTimestamps stamps a new row: both times set to now, version 1.
func (s *Syncable) InitTimestamps(now time.Time) {
	now = now.UTC().Truncate(TimestampPrecision)
	s.CreatedAt = now
	s.ModifiedAt = now
	s.Version = 1
}

// Touch records a modification. ModifiedAt is strictly increasing per row even
// when two writes land inside the same clock tick, so a client holding the old
// stamp always sees a conflict.
func (s *Syncable) Touch(now time.Time) {
	now = now.UTC().Truncate(TimestampPrecision)
	if !now.After(s.ModifiedAt) {
		now = s.ModifiedAt.Add(TimestampPrecision)
	}
	s.ModifiedAt = now
	s.Version++
}

// Entity is implemented by every synchronized row type.
type Entity interface {
	Kind() EntityKind
	Sync() *Syncable
}
