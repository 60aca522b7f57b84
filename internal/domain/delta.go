package domain

import "time"

// DeltaQuery selects what a client wants to pull.
type DeltaQuery struct {
	ModifiedSince *time.Time
	WorkspaceID   string
	Kinds         []EntityKind
	Limit         int
}

// SyncMetadata describes a delta page.
type SyncMetadata struct {
	// ServerTime is captured before any query runs.
	ServerTime time.Time `json:"server_time"`
	// NextCursor is set when HasMore is; pass it as the next modified_since.
	NextCursor *time.Time `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
	// ResyncRequired means tombstones older than the cursor were pruned and
	// the client must discard local state and pull from scratch.
	ResyncRequired bool `json:"resync_required,omitempty"`
}

// Delta is one page of changes.
type Delta struct {
	// Collections holds rows for every requested kind, ascending by modification time.
	Collections map[EntityKind][]Entity
	Kinds       []EntityKind
	Deleted     []DeletedRef
	Metadata    SyncMetadata
}
