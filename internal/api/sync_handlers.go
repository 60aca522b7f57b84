package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	domainerrors "github.com/stockroomapp/stockroom-server/internal/errors"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncDelta",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/delta",
		Summary:     "Pull changes",
		Description: "Returns rows modified after modified_since, one collection per requested kind, plus tombstones. " +
			"While has_more is true, pass next_cursor as the next modified_since.",
		Tags:     []string{"Sync"},
		Security: []map[string][]string{{"bearer": {}}},
	}, s.handleGetDelta)

	huma.Register(s.api, huma.Operation{
		OperationID: "postSyncBatch",
		Method:      http.MethodPost,
		Path:        batchPath,
		Summary:     "Push queued writes",
		Description: "Applies operations in order with optimistic concurrency. " +
			"Per-operation failures are reported in results; inspect success on each entry.",
		Tags:     []string{"Sync"},
		Security: []map[string][]string{{"bearer": {}}},
	}, s.handlePostBatch)
}

// === DTOs ===

// GetDeltaInput contains parameters for a pull.
type GetDeltaInput struct {
	ModifiedSince string `query:"modified_since" doc:"Return rows modified strictly after this time (RFC3339 or epoch ms). Omit for a full pull."`
	EntityTypes   string `query:"entity_types" doc:"Comma-separated kinds (item, location, container, category, inventory, loan, borrower). Defaults to all."`
	Limit         int    `query:"limit" minimum:"0" doc:"Maximum rows per kind (default 500, capped at 1000)"`
}

// DeltaResponse is one page of changes. Only requested kinds are present.
type DeltaResponse struct {
	Metadata   domain.SyncMetadata  `json:"metadata"`
	Items      *[]*domain.Item      `json:"items,omitempty"`
	Locations  *[]*domain.Location  `json:"locations,omitempty"`
	Containers *[]*domain.Container `json:"containers,omitempty"`
	Categories *[]*domain.Category  `json:"categories,omitempty"`
	Inventory  *[]*domain.Inventory `json:"inventory,omitempty"`
	Loans      *[]*domain.Loan      `json:"loans,omitempty"`
	Borrowers  *[]*domain.Borrower  `json:"borrowers,omitempty"`
	Deleted    []domain.DeletedRef  `json:"deleted" doc:"Tombstones, ascending by deleted_at"`
}

// DeltaOutput wraps the delta response for Huma.
type DeltaOutput struct {
	Body DeltaResponse
}

// BatchOperationRequest is one queued client write.
type BatchOperationRequest struct {
	// Operation is checked per entry so an unknown value fails only its own result.
	Operation          string          `json:"operation" doc:"Operation type: create, update or delete"`
	EntityKind         string          `json:"entity_kind" doc:"Entity kind, e.g. item or borrower"`
	ID                 string          `json:"id,omitempty" doc:"Row id, required for update and delete"`
	Data               json.RawMessage `json:"data,omitempty" doc:"Object of fields to set; for updates only the supplied fields change"`
	ExpectedModifiedAt *time.Time      `json:"expected_modified_at,omitempty" doc:"modified_at the client last saw; required for update"`
	ExpectedVersion    *int64          `json:"expected_version,omitempty" doc:"version the client last saw; takes precedence over expected_modified_at"`
}

// BatchRequestBody is a batch push.
type BatchRequestBody struct {
	Operations    []BatchOperationRequest `json:"operations" doc:"Operations, applied in order"`
	AllowPartial  bool                    `json:"allow_partial,omitempty" doc:"Keep going after a failed operation"`
	ClientBatchID string                  `json:"client_batch_id,omitempty" maxLength:"128" doc:"Idempotency key; a retried push with the same id returns the original response"`
}

// PostBatchInput wraps the batch request for Huma.
type PostBatchInput struct {
	Body BatchRequestBody
}

// BatchOutput wraps the batch response for Huma.
type BatchOutput struct {
	Body *domain.BatchResponse
}

// === Handlers ===

func (s *Server) handleGetDelta(ctx context.Context, input *GetDeltaInput) (*DeltaOutput, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}

	since, err := parseCursor(input.ModifiedSince)
	if err != nil {
		return nil, domainerrors.Validationf("invalid modified_since: %v", err)
	}
	kinds, err := parseKinds(input.EntityTypes)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	delta, err := s.deps.Delta.GetDelta(ctx, domain.DeltaQuery{
		ModifiedSince: since,
		WorkspaceID:   scope.WorkspaceID,
		Kinds:         kinds,
		Limit:         input.Limit,
	})
	if err != nil {
		if domainerrors.CodeOf(err) != domainerrors.CodeValidation {
			s.logger.Error("delta failed", "workspace_id", scope.WorkspaceID, "error", err)
		}
		return nil, err
	}

	return &DeltaOutput{Body: newDeltaResponse(delta)}, nil
}

func newDeltaResponse(d *domain.Delta) DeltaResponse {
	resp := DeltaResponse{
		Metadata: d.Metadata,
		Deleted:  d.Deleted,
	}
	if resp.Deleted == nil {
		resp.Deleted = []domain.DeletedRef{}
	}

	for _, kind := range d.Kinds {
		rows := d.Collections[kind]
		switch kind {
		case domain.KindItem:
			resp.Items = collect[*domain.Item](rows)
		case domain.KindLocation:
			resp.Locations = collect[*domain.Location](rows)
		case domain.KindContainer:
			resp.Containers = collect[*domain.Container](rows)
		case domain.KindCategory:
			resp.Categories = collect[*domain.Category](rows)
		case domain.KindInventory:
			resp.Inventory = collect[*domain.Inventory](rows)
		case domain.KindLoan:
			resp.Loans = collect[*domain.Loan](rows)
		case domain.KindBorrower:
			resp.Borrowers = collect[*domain.Borrower](rows)
		}
	}
	return resp
}

// collect narrows a kind's rows to their concrete type. The result is never
// nil so a requested kind always serializes, even when empty.
func collect[T domain.Entity](rows []domain.Entity) *[]T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if typed, ok := row.(T); ok {
			out = append(out, typed)
		}
	}
	return &out
}

func (s *Server) handlePostBatch(ctx context.Context, input *PostBatchInput) (*BatchOutput, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}

	ops := make([]domain.BatchOperation, len(input.Body.Operations))
	for i, op := range input.Body.Operations {
		data := op.Data
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			data = nil
		}
		ops[i] = domain.BatchOperation{
			ExpectedModifiedAt: op.ExpectedModifiedAt,
			ExpectedVersion:    op.ExpectedVersion,
			Operation:          domain.OperationType(op.Operation),
			EntityKind:         op.EntityKind,
			ID:                 op.ID,
			Data:               data,
		}
	}

	resp, err := s.deps.Batch.ProcessBatch(ctx, domain.BatchRequest{
		WorkspaceID:   scope.WorkspaceID,
		UserID:        scope.UserID,
		ClientBatchID: input.Body.ClientBatchID,
		Operations:    ops,
		AllowPartial:  input.Body.AllowPartial,
	})
	if err != nil {
		if domainerrors.CodeOf(err) != domainerrors.CodeValidation {
			s.logger.Error("batch failed", "workspace_id", scope.WorkspaceID, "error", err)
		}
		return nil, err
	}

	return &BatchOutput{Body: resp}, nil
}
