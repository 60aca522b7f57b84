package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/errors"
	"github.com/stockroomapp/stockroom-server/internal/id"
	"github.com/stockroomapp/stockroom-server/internal/store"
	"github.com/stockroomapp/stockroom-server/internal/validation"
)

// ReplayCache remembers committed batch responses by client batch id so a
// retried push returns the original outcome instead of applying twice.
type ReplayCache interface {
	Get(ctx context.Context, workspaceID, clientBatchID string) (*domain.BatchResponse, bool, error)
	Put(ctx context.Context, workspaceID, clientBatchID string, resp *domain.BatchResponse) error
}

// BatchProcessor applies queued client writes in order.
type BatchProcessor struct {
	store     store.Store
	validator *validation.Validator
	replay    ReplayCache
	opts      SyncOptions
	logger    *slog.Logger

	// inflight holds one running attempt per workspace and client batch id.
	inflight singleflight.Group
}

// NewBatchProcessor creates a batch processor. replay may be nil.
func NewBatchProcessor(st store.Store, v *validation.Validator, replay ReplayCache, opts SyncOptions, logger *slog.Logger) *BatchProcessor {
	return &BatchProcessor{
		store:     st,
		validator: v,
		replay:    replay,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// ProcessBatch applies req.Operations strictly in order.
//
// Per-operation failures become result entries; the returned error is
// reserved for failures of the call itself (oversized request, storage
// unavailable, commit failure). With AllowPartial false processing stops at
// the first failure and no later operation is attempted.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResponse, error) {
	if req.WorkspaceID == "" {
		return nil, errors.Validation("workspace is required")
	}
	if p.opts.MaxOperations > 0 && len(req.Operations) > p.opts.MaxOperations {
		return nil, errors.Validationf("batch has %d operations, limit is %d", len(req.Operations), p.opts.MaxOperations)
	}

	if req.ClientBatchID == "" || p.replay == nil {
		return p.process(ctx, req)
	}

	// A retry that arrives while the first attempt is still running waits for
	// it instead of applying the operations a second time.
	key := req.WorkspaceID + "/" + req.ClientBatchID
	for {
		ran := false
		v, err, _ := p.inflight.Do(key, func() (any, error) {
			ran = true
			return p.replayOrProcess(ctx, req)
		})
		if ran {
			if err != nil {
				return nil, err
			}
			return v.(*domain.BatchResponse), nil
		}
		if err == nil {
			if resp := v.(*domain.BatchResponse); resp.Committed {
				shared := *resp
				shared.Replayed = true
				p.logger.Info("batch replayed", "workspace_id", req.WorkspaceID, "client_batch_id", req.ClientBatchID)
				return &shared, nil
			}
		}
		// The attempt we waited on persisted nothing; make our own.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// replayOrProcess returns the cached response for a committed batch, or
// processes the batch and caches the response once committed.
func (p *BatchProcessor) replayOrProcess(ctx context.Context, req domain.BatchRequest) (*domain.BatchResponse, error) {
	cached, ok, err := p.replay.Get(ctx, req.WorkspaceID, req.ClientBatchID)
	if err != nil {
		p.logger.Warn("replay cache lookup failed", "client_batch_id", req.ClientBatchID, "error", err)
	} else if ok {
		cached.Replayed = true
		p.logger.Info("batch replayed", "workspace_id", req.WorkspaceID, "client_batch_id", req.ClientBatchID)
		return cached, nil
	}

	resp, err := p.process(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Committed {
		if err := p.replay.Put(ctx, req.WorkspaceID, req.ClientBatchID, resp); err != nil {
			p.logger.Warn("replay cache store failed", "client_batch_id", req.ClientBatchID, "error", err)
		}
	}
	return resp, nil
}

// process applies the operations under the configured commit strategy.
func (p *BatchProcessor) process(ctx context.Context, req domain.BatchRequest) (*domain.BatchResponse, error) {
	batchID := id.MustGenerate("batch")
	log := p.logger.With("batch_id", batchID, "workspace_id", req.WorkspaceID)

	var (
		results   []domain.BatchOperationResult
		committed bool
		err       error
	)
	switch {
	case p.opts.CommitMode == domain.CommitPerBatch:
		results, committed, err = p.runInOneTransaction(ctx, log, req)
	case req.AllowPartial:
		results, committed, err = p.runEachInOwnTransaction(ctx, log, req)
	default:
		results, committed, err = p.runAllOrNothing(ctx, log, req)
	}
	if err != nil {
		return nil, err
	}

	resp := summarize(results, committed)

	log.Info("batch processed",
		"commit_mode", p.opts.CommitMode,
		"allow_partial", req.AllowPartial,
		"operations", len(req.Operations),
		"succeeded", resp.SucceededCount,
		"failed", resp.FailedCount,
		"committed", resp.Committed,
	)

	return resp, nil
}

// runAllOrNothing applies every operation in one transaction and commits only
// if all of them succeed.
func (p *BatchProcessor) runAllOrNothing(ctx context.Context, log *slog.Logger, req domain.BatchRequest) ([]domain.BatchOperationResult, bool, error) {
	sess, err := p.store.BeginWrite(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "open write session")
	}
	defer sess.Rollback()

	results := make([]domain.BatchOperationResult, 0, len(req.Operations))
	for i, op := range req.Operations {
		res := p.execute(ctx, log, sess, i, op, req)
		results = append(results, res)
		if !res.Success {
			return results, false, nil
		}
	}
	if len(results) == 0 {
		return results, false, nil
	}

	if err := sess.Commit(); err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "commit batch")
	}
	return results, true, nil
}

// runEachInOwnTransaction makes every operation durable on its own, so a
// reported success is never undone by a later failure.
func (p *BatchProcessor) runEachInOwnTransaction(ctx context.Context, log *slog.Logger, req domain.BatchRequest) ([]domain.BatchOperationResult, bool, error) {
	results := make([]domain.BatchOperationResult, 0, len(req.Operations))
	committed := false
	for i, op := range req.Operations {
		res := p.executeIsolated(ctx, log, i, op, req)
		if res.Success {
			committed = true
		}
		results = append(results, res)
	}
	return results, committed, nil
}

func (p *BatchProcessor) executeIsolated(ctx context.Context, log *slog.Logger, index int, op domain.BatchOperation, req domain.BatchRequest) domain.BatchOperationResult {
	sess, err := p.store.BeginWrite(ctx)
	if err != nil {
		return p.failure(log, index, op, fmt.Errorf("open write session: %w", err))
	}
	defer sess.Rollback()

	res := p.execute(ctx, log, sess, index, op, req)
	if !res.Success {
		return res
	}
	if err := sess.Commit(); err != nil {
		return p.failure(log, index, op, fmt.Errorf("commit: %w", err))
	}
	return res
}

// runInOneTransaction is the legacy grouping: one transaction for the call,
// a savepoint around each operation, committed if anything succeeded.
func (p *BatchProcessor) runInOneTransaction(ctx context.Context, log *slog.Logger, req domain.BatchRequest) ([]domain.BatchOperationResult, bool, error) {
	sess, err := p.store.BeginWrite(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "open write session")
	}
	defer sess.Rollback()

	results := make([]domain.BatchOperationResult, 0, len(req.Operations))
	succeeded := 0
	for i, op := range req.Operations {
		sp := fmt.Sprintf("op_%d", i)
		if err := sess.Savepoint(ctx, sp); err != nil {
			return nil, false, errors.Wrap(err, errors.CodeInternal, "open savepoint")
		}

		res := p.execute(ctx, log, sess, i, op, req)
		if !res.Success {
			if err := sess.RollbackTo(ctx, sp); err != nil {
				return nil, false, errors.Wrap(err, errors.CodeInternal, "roll back savepoint")
			}
		} else {
			succeeded++
		}
		if err := sess.Release(ctx, sp); err != nil {
			return nil, false, errors.Wrap(err, errors.CodeInternal, "release savepoint")
		}

		results = append(results, res)
		if !res.Success && !req.AllowPartial {
			break
		}
	}

	if succeeded == 0 {
		return results, false, nil
	}
	if err := sess.Commit(); err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "commit batch")
	}
	return results, true, nil
}

// execute runs one operation inside sess and never fails the call.
func (p *BatchProcessor) execute(ctx context.Context, log *slog.Logger, sess store.Session, index int, op domain.BatchOperation, req domain.BatchRequest) domain.BatchOperationResult {
	entityID, err := p.apply(ctx, sess, op, req)
	if err != nil {
		return p.failure(log, index, op, err)
	}
	return domain.BatchOperationResult{Index: index, Success: true, ID: entityID}
}

func (p *BatchProcessor) apply(ctx context.Context, sess store.Session, op domain.BatchOperation, req domain.BatchRequest) (string, error) {
	kind, err := domain.ParseEntityKind(op.EntityKind)
	if err != nil {
		return "", errors.Validationf("unknown entity kind %q", op.EntityKind)
	}
	entities, err := sess.Entities(kind)
	if err != nil {
		return "", err
	}

	switch op.Operation {
	case domain.OperationCreate:
		return p.create(ctx, entities, kind, op, req)
	case domain.OperationUpdate:
		return p.update(ctx, entities, kind, op, req)
	case domain.OperationDelete:
		return p.delete(ctx, sess, entities, kind, op, req)
	default:
		return "", errors.Validationf("unknown operation %q", op.Operation)
	}
}

func (p *BatchProcessor) create(ctx context.Context, entities store.EntityAdapter, kind domain.EntityKind, op domain.BatchOperation, req domain.BatchRequest) (string, error) {
	if len(op.Data) == 0 {
		return "", errors.Validation("data is required for create")
	}
	fields, err := p.validator.DecodeFields(kind, op.Data, true)
	if err != nil {
		return "", err
	}

	created, err := entities.Create(ctx, req.WorkspaceID, fields)
	if errors.Is(err, store.ErrAlreadyExists) {
		return "", errors.Validationf("%s conflicts with an existing %s", kind, kind)
	}
	if err != nil {
		return "", err
	}
	return created.Sync().ID, nil
}

func (p *BatchProcessor) update(ctx context.Context, entities store.EntityAdapter, kind domain.EntityKind, op domain.BatchOperation, req domain.BatchRequest) (string, error) {
	if op.ID == "" {
		return "", errors.Validation("id is required for update")
	}
	if len(op.Data) == 0 {
		return "", errors.Validation("data is required for update")
	}
	expected := ExpectationOf(op)
	if !expected.IsSet() {
		return "", errors.Validation("expected_modified_at is required for update")
	}
	fields, err := p.validator.DecodeFields(kind, op.Data, false)
	if err != nil {
		return "", err
	}

	current, conflict, err := GetForUpdate(ctx, entities, op.ID, req.WorkspaceID, expected)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", errors.NotFoundf("%s %s not found", kind, op.ID)
	}
	if conflict {
		return "", errors.SyncConflict(fmt.Sprintf("%s %s was modified since it was last synced", kind, op.ID), current)
	}

	updated, err := entities.Update(ctx, current, fields)
	switch {
	case errors.Is(err, store.ErrVersionMismatch):
		return "", p.conflictFromStore(ctx, entities, kind, op.ID, req.WorkspaceID)
	case errors.Is(err, store.ErrAlreadyExists):
		return "", errors.Validationf("%s conflicts with an existing %s", kind, kind)
	case err != nil:
		return "", err
	}
	return updated.Sync().ID, nil
}

// delete treats a missing row as already deleted. An expectation, when sent,
// guards the delete like an update.
func (p *BatchProcessor) delete(ctx context.Context, sess store.Session, entities store.EntityAdapter, kind domain.EntityKind, op domain.BatchOperation, req domain.BatchRequest) (string, error) {
	if op.ID == "" {
		return "", errors.Validation("id is required for delete")
	}

	current, conflict, err := GetForUpdate(ctx, entities, op.ID, req.WorkspaceID, ExpectationOf(op))
	if err != nil {
		return "", err
	}
	if current == nil {
		return op.ID, nil
	}
	if conflict && ExpectationOf(op).IsSet() {
		return "", errors.SyncConflict(fmt.Sprintf("%s %s was modified since it was last synced", kind, op.ID), current)
	}

	if err := entities.Delete(ctx, op.ID, req.WorkspaceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return op.ID, nil
		}
		return "", err
	}

	err = sess.Tombstones().RecordDeletion(ctx, &domain.Tombstone{
		WorkspaceID: req.WorkspaceID,
		EntityKind:  kind,
		EntityID:    op.ID,
		DeletedBy:   req.UserID,
	})
	if err != nil {
		return "", err
	}
	return op.ID, nil
}

func (p *BatchProcessor) conflictFromStore(ctx context.Context, entities store.EntityAdapter, kind domain.EntityKind, entityID, workspaceID string) error {
	current, err := entities.GetOneOrNone(ctx, entityID, workspaceID)
	if err != nil {
		return err
	}
	if current == nil {
		return errors.NotFoundf("%s %s not found", kind, entityID)
	}
	return errors.SyncConflict(fmt.Sprintf("%s %s was modified since it was last synced", kind, entityID), current)
}

// failure converts an operation error into its result entry.
func (p *BatchProcessor) failure(log *slog.Logger, index int, op domain.BatchOperation, err error) domain.BatchOperationResult {
	res := domain.BatchOperationResult{Index: index, ID: op.ID}

	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case errors.CodeValidation, errors.CodeNotFound, errors.CodeSyncConflict:
			res.ErrorKind = string(domainErr.Code)
			res.Error = describe(domainErr)
			if domainErr.Code == errors.CodeSyncConflict {
				res.ConflictSnapshot = domainErr.Details
			}
			log.Debug("operation rejected",
				"index", index,
				"operation", op.Operation,
				"entity_kind", op.EntityKind,
				"error_kind", res.ErrorKind,
				"error", res.Error,
			)
			return res
		}
	}

	res.ErrorKind = string(errors.CodeUnknown)
	res.Error = "unexpected error"
	log.Error("operation failed",
		"index", index,
		"operation", op.Operation,
		"entity_kind", op.EntityKind,
		"error", err,
	)
	return res
}

// describe flattens field-level validation details into the message.
func describe(e *errors.Error) string {
	fields, ok := e.Details.(map[string]string)
	if !ok || len(fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+fields[name])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func summarize(results []domain.BatchOperationResult, committed bool) *domain.BatchResponse {
	resp := &domain.BatchResponse{Results: results, Committed: committed}
	for _, r := range results {
		if r.Success {
			resp.SucceededCount++
		} else {
			resp.FailedCount++
		}
	}
	resp.Success = resp.FailedCount == 0
	return resp
}
