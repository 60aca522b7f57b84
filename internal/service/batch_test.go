package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/errors"
)

func TestProcessBatch_CreateBorrower(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})

	resp := env.run(t, true, createOp(t, domain.KindBorrower, map[string]any{"name": "Alice"}))

	assert.True(t, resp.Success)
	assert.True(t, resp.Committed)
	assert.Equal(t, 1, resp.SucceededCount)
	assert.Equal(t, 0, resp.FailedCount)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0, resp.Results[0].Index)
	assert.True(t, resp.Results[0].Success)
	assert.NotEmpty(t, resp.Results[0].ID)

	got := env.get(t, domain.KindBorrower, resp.Results[0].ID)
	require.NotNil(t, got)
	b := got.(*domain.Borrower)
	assert.Equal(t, "Alice", b.Name)
	assert.Equal(t, testWorkspace, b.WorkspaceID)
	assert.Equal(t, int64(1), b.Version)
}

func TestProcessBatch_DeleteRecordsTombstone(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Bob")

	before := domain.Now()
	resp := env.run(t, true, deleteOp(domain.KindBorrower, b.ID))
	require.True(t, resp.Success)
	assert.Equal(t, b.ID, resp.Results[0].ID)

	assert.Nil(t, env.get(t, domain.KindBorrower, b.ID))

	tombstones := env.tombstones(t)
	require.Len(t, tombstones, 1)
	assert.Equal(t, b.ID, tombstones[0].EntityID)
	assert.Equal(t, domain.KindBorrower, tombstones[0].EntityKind)
	assert.Equal(t, testUser, tombstones[0].DeletedBy)
	assert.False(t, tombstones[0].DeletedAt.Before(before))
}

func TestProcessBatch_DeleteAbsentIsIdempotent(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})

	resp := env.run(t, true, deleteOp(domain.KindItem, "6a0f1d0e-3c3b-4a47-8e0c-9f3e2b1a7c55"))

	assert.True(t, resp.Success)
	assert.Empty(t, env.tombstones(t))
}

func TestProcessBatch_DeleteTwiceKeepsOneTombstone(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Cy")

	resp := env.run(t, true, deleteOp(domain.KindBorrower, b.ID), deleteOp(domain.KindBorrower, b.ID))
	assert.True(t, resp.Success)
	assert.Len(t, env.tombstones(t), 1)
}

func TestProcessBatch_Conflict(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Dana")
	m1 := b.ModifiedAt

	respA := env.run(t, true, updateOp(t, domain.KindBorrower, b.ID, m1, map[string]any{"phone": "555-0100"}))
	require.True(t, respA.Success)
	m2 := env.get(t, domain.KindBorrower, b.ID).Sync().ModifiedAt
	require.True(t, m2.After(m1))

	respB := env.run(t, true, updateOp(t, domain.KindBorrower, b.ID, m1, map[string]any{"phone": "555-0199"}))

	assert.False(t, respB.Success)
	require.Len(t, respB.Results, 1)
	res := respB.Results[0]
	assert.False(t, res.Success)
	assert.Equal(t, string(errors.CodeSyncConflict), res.ErrorKind)

	snapshot, ok := res.ConflictSnapshot.(*domain.Borrower)
	require.True(t, ok, "snapshot carries the server row")
	assert.True(t, snapshot.ModifiedAt.Equal(m2))
	require.NotNil(t, snapshot.Phone)
	assert.Equal(t, "555-0100", *snapshot.Phone)
	assert.Equal(t, int64(2), snapshot.Version)

	current := env.get(t, domain.KindBorrower, b.ID).(*domain.Borrower)
	assert.Equal(t, "555-0100", *current.Phone, "losing write was not applied")
}

func TestProcessBatch_RapidUpdatesStillConflict(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.store.SetClock(func() time.Time { return frozen })
	b := env.mustCreate(t, "Eve")

	require.True(t, env.run(t, true, updateOp(t, domain.KindBorrower, b.ID, b.ModifiedAt, map[string]any{"notes": "one"})).Success)

	// Same clock tick: the stored stamp still moved, so the old one conflicts.
	resp := env.run(t, true, updateOp(t, domain.KindBorrower, b.ID, b.ModifiedAt, map[string]any{"notes": "two"}))
	require.False(t, resp.Success)
	assert.Equal(t, string(errors.CodeSyncConflict), resp.Results[0].ErrorKind)
}

func TestProcessBatch_ExpectedVersion(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Finn")

	v1 := int64(1)
	op := domain.BatchOperation{
		Operation:       domain.OperationUpdate,
		EntityKind:      "borrower",
		ID:              b.ID,
		ExpectedVersion: &v1,
		Data:            data(t, map[string]any{"name": "Finn R."}),
	}
	require.True(t, env.run(t, true, op).Success)

	resp := env.run(t, true, op)
	assert.Equal(t, string(errors.CodeSyncConflict), resp.Results[0].ErrorKind)
}

func TestProcessBatch_PartialPatch(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	resp := env.run(t, true, createOp(t, domain.KindItem, map[string]any{
		"sku": "LD-1", "name": "Ladder", "brand": "Werner", "min_stock_level": 1,
	}))
	require.True(t, resp.Success)
	id := resp.Results[0].ID
	item := env.get(t, domain.KindItem, id).(*domain.Item)

	resp = env.run(t, true, updateOp(t, domain.KindItem, id, item.ModifiedAt, map[string]any{"name": "Step Ladder", "brand": nil}))
	require.True(t, resp.Success)

	updated := env.get(t, domain.KindItem, id).(*domain.Item)
	assert.Equal(t, "Step Ladder", updated.Name)
	assert.Nil(t, updated.Brand)
	assert.Equal(t, "LD-1", updated.SKU)
	assert.Equal(t, 1, updated.MinStockLevel)
}

func TestProcessBatch_UpdateFailures(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Gus")

	tests := []struct {
		name string
		op   domain.BatchOperation
		kind errors.Code
	}{
		{
			name: "missing row",
			op:   updateOp(t, domain.KindBorrower, "0d4c0b5b-7f3a-4a8e-a5f1-3a1b7c9d2e10", b.ModifiedAt, map[string]any{"name": "x"}),
			kind: errors.CodeNotFound,
		},
		{
			name: "missing id",
			op:   updateOp(t, domain.KindBorrower, "", b.ModifiedAt, map[string]any{"name": "x"}),
			kind: errors.CodeValidation,
		},
		{
			name: "missing expectation",
			op: domain.BatchOperation{
				Operation: domain.OperationUpdate, EntityKind: "borrower", ID: b.ID,
				Data: data(t, map[string]any{"name": "x"}),
			},
			kind: errors.CodeValidation,
		},
		{
			name: "missing data",
			op: domain.BatchOperation{
				Operation: domain.OperationUpdate, EntityKind: "borrower", ID: b.ID, ExpectedModifiedAt: &b.ModifiedAt,
			},
			kind: errors.CodeValidation,
		},
		{
			name: "unwritable field",
			op:   updateOp(t, domain.KindBorrower, b.ID, b.ModifiedAt, map[string]any{"is_admin": true}),
			kind: errors.CodeValidation,
		},
		{
			name: "unknown kind",
			op:   createOp(t, domain.EntityKind("widget"), map[string]any{"name": "x"}),
			kind: errors.CodeValidation,
		},
		{
			name: "unknown operation",
			op:   domain.BatchOperation{Operation: "upsert", EntityKind: "borrower", Data: data(t, map[string]any{"name": "x"})},
			kind: errors.CodeValidation,
		},
		{
			name: "create missing required field",
			op:   createOp(t, domain.KindItem, map[string]any{"name": "No SKU"}),
			kind: errors.CodeValidation,
		},
		{
			name: "delete without id",
			op:   deleteOp(domain.KindBorrower, ""),
			kind: errors.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.run(t, true, tt.op)
			require.Len(t, resp.Results, 1)
			assert.False(t, resp.Results[0].Success)
			assert.Equal(t, string(tt.kind), resp.Results[0].ErrorKind)
			assert.NotEmpty(t, resp.Results[0].Error)
			assert.Nil(t, resp.Results[0].ConflictSnapshot)
			assert.False(t, resp.Committed)
		})
	}
}

func TestProcessBatch_ValidationMessageNamesFields(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})

	resp := env.run(t, true, createOp(t, domain.KindItem, map[string]any{"name": "No SKU"}))
	assert.Contains(t, resp.Results[0].Error, "sku is required")
}

func TestProcessBatch_DuplicateSKU(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	item := map[string]any{"sku": "A-1", "name": "Thing"}

	resp := env.run(t, true, createOp(t, domain.KindItem, item), createOp(t, domain.KindItem, item))
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, string(errors.CodeValidation), resp.Results[1].ErrorKind)
}

func failingThenValid(t *testing.T) []domain.BatchOperation {
	return []domain.BatchOperation{
		createOp(t, domain.KindItem, map[string]any{"name": "missing sku"}),
		createOp(t, domain.KindBorrower, map[string]any{"name": "Hana"}),
	}
}

func countBorrowers(t *testing.T, env *testEnv) int {
	t.Helper()
	delta, err := env.delta.GetDelta(context.Background(), domain.DeltaQuery{
		WorkspaceID: testWorkspace,
		Kinds:       []domain.EntityKind{domain.KindBorrower},
	})
	require.NoError(t, err)
	return len(delta.Collections[domain.KindBorrower])
}

func TestProcessBatch_StopOnFirstFailure(t *testing.T) {
	for _, mode := range []domain.CommitMode{domain.CommitPerOperation, domain.CommitPerBatch} {
		t.Run(string(mode), func(t *testing.T) {
			env := setupTestEnv(t, SyncOptions{CommitMode: mode})

			resp := env.run(t, false, failingThenValid(t)...)

			require.Len(t, resp.Results, 1)
			assert.False(t, resp.Results[0].Success)
			assert.False(t, resp.Success)
			assert.Equal(t, 0, countBorrowers(t, env), "operation 1 never ran")
		})
	}
}

func TestProcessBatch_AllowPartial(t *testing.T) {
	for _, mode := range []domain.CommitMode{domain.CommitPerOperation, domain.CommitPerBatch} {
		t.Run(string(mode), func(t *testing.T) {
			env := setupTestEnv(t, SyncOptions{CommitMode: mode})

			resp := env.run(t, true, failingThenValid(t)...)

			require.Len(t, resp.Results, 2)
			assert.False(t, resp.Results[0].Success)
			assert.True(t, resp.Results[1].Success)
			assert.Equal(t, 1, resp.SucceededCount)
			assert.Equal(t, 1, resp.FailedCount)
			assert.False(t, resp.Success)
			assert.True(t, resp.Committed)
			assert.Equal(t, 1, countBorrowers(t, env))
		})
	}
}

func TestProcessBatch_AllOrNothingRollsBackEarlierOps(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{CommitMode: domain.CommitPerOperation})

	resp := env.run(t, false,
		createOp(t, domain.KindBorrower, map[string]any{"name": "Ivy"}),
		createOp(t, domain.KindItem, map[string]any{"name": "missing sku"}),
	)

	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.False(t, resp.Committed)
	assert.Equal(t, 0, countBorrowers(t, env))
}

func TestProcessBatch_LegacyCommitsEarlierOps(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{CommitMode: domain.CommitPerBatch})

	resp := env.run(t, false,
		createOp(t, domain.KindBorrower, map[string]any{"name": "Ivy"}),
		createOp(t, domain.KindItem, map[string]any{"name": "missing sku"}),
	)

	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Committed)
	assert.Equal(t, 1, countBorrowers(t, env))
}

func TestProcessBatch_LaterOperationsSeeEarlierOnes(t *testing.T) {
	for _, mode := range []domain.CommitMode{domain.CommitPerOperation, domain.CommitPerBatch} {
		for _, partial := range []bool{false, true} {
			env := setupTestEnv(t, SyncOptions{CommitMode: mode})
			b := env.mustCreate(t, "Jo")

			resp := env.run(t, partial,
				deleteOp(domain.KindBorrower, b.ID),
				updateOp(t, domain.KindBorrower, b.ID, b.ModifiedAt, map[string]any{"name": "Joanna"}),
			)

			require.Len(t, resp.Results, 2, "mode=%s partial=%v", mode, partial)
			assert.True(t, resp.Results[0].Success)
			assert.Equal(t, string(errors.CodeNotFound), resp.Results[1].ErrorKind)
		}
	}
}

func TestProcessBatch_EmptyBatch(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})

	resp := env.run(t, false)
	assert.True(t, resp.Success)
	assert.False(t, resp.Committed)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestProcessBatch_TooManyOperations(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{MaxOperations: 1})

	_, err := env.batch.ProcessBatch(context.Background(), domain.BatchRequest{
		WorkspaceID: testWorkspace,
		Operations: []domain.BatchOperation{
			createOp(t, domain.KindBorrower, map[string]any{"name": "A"}),
			createOp(t, domain.KindBorrower, map[string]any{"name": "B"}),
		},
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestProcessBatch_WorkspaceIsolation(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Kai")

	resp, err := env.batch.ProcessBatch(context.Background(), domain.BatchRequest{
		WorkspaceID:  "ws-other",
		Operations:   []domain.BatchOperation{deleteOp(domain.KindBorrower, b.ID)},
		AllowPartial: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success, "absent in this workspace")
	assert.NotNil(t, env.get(t, domain.KindBorrower, b.ID), "row in the owning workspace survives")
}

func TestProcessBatch_Replay(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	req := domain.BatchRequest{
		WorkspaceID:   testWorkspace,
		UserID:        testUser,
		ClientBatchID: "queue-42",
		AllowPartial:  true,
		Operations:    []domain.BatchOperation{createOp(t, domain.KindBorrower, map[string]any{"name": "Lee"})},
	}

	first, err := env.batch.ProcessBatch(context.Background(), req)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.Replayed)

	second, err := env.batch.ProcessBatch(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Results[0].ID, second.Results[0].ID)
	assert.Equal(t, 1, countBorrowers(t, env), "replayed batch is not applied twice")
}

func TestProcessBatch_ConcurrentRetriesApplyOnce(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	ops := make([]domain.BatchOperation, 0, 50)
	for i := range 50 {
		ops = append(ops, createOp(t, domain.KindBorrower, map[string]any{"name": fmt.Sprintf("Retry %02d", i)}))
	}
	req := domain.BatchRequest{
		WorkspaceID:   testWorkspace,
		UserID:        testUser,
		ClientBatchID: "retry-1",
		Operations:    ops,
	}

	const attempts = 8
	responses := make([]*domain.BatchResponse, attempts)
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			responses[i], errs[i] = env.batch.ProcessBatch(context.Background(), req)
		}()
	}
	close(start)
	wg.Wait()

	applied := 0
	for i := range attempts {
		require.NoError(t, errs[i])
		require.True(t, responses[i].Committed)
		if !responses[i].Replayed {
			applied++
		}
		assert.Equal(t, responses[0].Results[0].ID, responses[i].Results[0].ID)
	}
	assert.Equal(t, 1, applied, "exactly one attempt applies the batch")
	assert.Equal(t, 50, countBorrowers(t, env))
}

func TestProcessBatch_ResultsSerialize(t *testing.T) {
	env := setupTestEnv(t, SyncOptions{})
	b := env.mustCreate(t, "Max")
	stale := b.ModifiedAt.Add(-time.Minute)

	resp := env.run(t, true, updateOp(t, domain.KindBorrower, b.ID, stale, map[string]any{"name": "x"}))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	results := decoded["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "SYNC_CONFLICT", first["error_kind"])
	snapshot := first["conflict_snapshot"].(map[string]any)
	assert.Equal(t, b.ID, snapshot["id"])
	assert.Equal(t, "Max", snapshot["name"])
}
