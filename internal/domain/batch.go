package domain

import (
	"encoding/json"
	"time"
)

// OperationType is the action of a batch operation.
type OperationType string

// Supported operations.
const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// CommitMode controls how batch writes are grouped into transactions.
type CommitMode string

const (
	// CommitPerOperation isolates each operation when partial success is
	// allowed, and commits all or nothing otherwise.
	CommitPerOperation CommitMode = "operation"
	// CommitPerBatch uses one transaction with a savepoint per operation and
	// commits if at least one operation succeeded.
	CommitPerBatch CommitMode = "batch"
)

// ParseCommitMode parses a configured commit mode.
func ParseCommitMode(s string) (CommitMode, bool) {
	switch CommitMode(s) {
	case CommitPerOperation, "":
		return CommitPerOperation, true
	case CommitPerBatch:
		return CommitPerBatch, true
	default:
		return "", false
	}
}

// BatchOperation is one queued client write.
type BatchOperation struct {
	ExpectedModifiedAt *time.Time      `json:"expected_modified_at,omitempty"`
	ExpectedVersion    *int64          `json:"expected_version,omitempty"`
	Operation          OperationType   `json:"operation"`
	EntityKind         string          `json:"entity_kind"`
	ID                 string          `json:"id,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
}

// BatchRequest is an ordered list of operations for one workspace.
type BatchRequest struct {
	WorkspaceID   string
	UserID        string
	ClientBatchID string
	Operations    []BatchOperation
	AllowPartial  bool
}

// BatchOperationResult reports the outcome of one operation, by input index.
type BatchOperationResult struct {
	ConflictSnapshot any    `json:"conflict_snapshot,omitempty"`
	ID               string `json:"id,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"error_kind,omitempty"`
	Index            int    `json:"index"`
	Success          bool   `json:"success"`
}

// BatchResponse summarizes a processed batch.
type BatchResponse struct {
	Results        []BatchOperationResult `json:"results"`
	SucceededCount int                    `json:"succeeded_count"`
	FailedCount    int                    `json:"failed_count"`
	// Success is true when every operation succeeded.
	Success bool `json:"success"`
	// Committed is false when nothing was persisted. Under all-or-nothing
	// commits a failure rolls back operations whose results read success.
	Committed bool `json:"committed"`
	// Replayed marks a response served from the replay cache.
	Replayed bool `json:"replayed,omitempty"`
}
