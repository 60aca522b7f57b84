package domain

import "time"

// Tombstone records a hard deletion so offline clients can drop their copy.
// At most one tombstone exists per (workspace, kind, id); a later deletion of
// the same id replaces it.
type Tombstone struct {
	DeletedAt   time.Time  `json:"deleted_at"`
	WorkspaceID string     `json:"workspace_id"`
	EntityKind  EntityKind `json:"entity_kind"`
	EntityID    string     `json:"entity_id"`
	DeletedBy   string     `json:"deleted_by,omitempty"`
}

// Ref is the client-facing projection of a tombstone.
func (t *Tombstone) Ref() DeletedRef {
	return DeletedRef{
		EntityKind: t.EntityKind,
		EntityID:   t.EntityID,
		DeletedAt:  t.DeletedAt,
	}
}

// DeletedRef is one entry of a delta's deleted list.
type DeletedRef struct {
	DeletedAt  time.Time  `json:"deleted_at"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   string     `json:"entity_id"`
}
