package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store/sqlite"
	"github.com/stockroomapp/stockroom-server/internal/validation"
)

const (
	testWorkspace = "ws-1"
	testUser      = "user-1"
)

type testEnv struct {
	store  *sqlite.Store
	delta  *DeltaService
	batch  *BatchProcessor
	replay *memoryReplay
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestEnv opens a temp database and wires both services to it.
func setupTestEnv(t *testing.T, opts SyncOptions) *testEnv {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	replay := newMemoryReplay()
	return &testEnv{
		store:  st,
		delta:  NewDeltaService(st, opts, discardLogger()),
		batch:  NewBatchProcessor(st, validation.New(), replay, opts, discardLogger()),
		replay: replay,
	}
}

// tickingClock advances by step on every call.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func (e *testEnv) run(t *testing.T, allowPartial bool, ops ...domain.BatchOperation) *domain.BatchResponse {
	t.Helper()
	resp, err := e.batch.ProcessBatch(context.Background(), domain.BatchRequest{
		WorkspaceID:  testWorkspace,
		UserID:       testUser,
		Operations:   ops,
		AllowPartial: allowPartial,
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, kind domain.EntityKind, id string) domain.Entity {
	t.Helper()
	ctx := context.Background()
	sess, err := e.store.BeginRead(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	entities, err := sess.Entities(kind)
	require.NoError(t, err)
	got, err := entities.GetOneOrNone(ctx, id, testWorkspace)
	require.NoError(t, err)
	return got
}

func (e *testEnv) tombstones(t *testing.T) []domain.Tombstone {
	t.Helper()
	ctx := context.Background()
	sess, err := e.store.BeginRead(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	out, err := sess.Tombstones().ListDeletedSince(ctx, testWorkspace, nil, domain.AllKinds(), 1000)
	require.NoError(t, err)
	return out
}

func data(t *testing.T, fields map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return b
}

func createOp(t *testing.T, kind domain.EntityKind, fields map[string]any) domain.BatchOperation {
	return domain.BatchOperation{Operation: domain.OperationCreate, EntityKind: string(kind), Data: data(t, fields)}
}

func updateOp(t *testing.T, kind domain.EntityKind, id string, expected time.Time, fields map[string]any) domain.BatchOperation {
	return domain.BatchOperation{
		Operation:          domain.OperationUpdate,
		EntityKind:         string(kind),
		ID:                 id,
		ExpectedModifiedAt: &expected,
		Data:               data(t, fields),
	}
}

func deleteOp(kind domain.EntityKind, id string) domain.BatchOperation {
	return domain.BatchOperation{Operation: domain.OperationDelete, EntityKind: string(kind), ID: id}
}

// mustCreate creates one borrower and returns its committed row.
func (e *testEnv) mustCreate(t *testing.T, name string) *domain.Borrower {
	t.Helper()
	resp := e.run(t, true, createOp(t, domain.KindBorrower, map[string]any{"name": name}))
	require.True(t, resp.Success, "create %s: %+v", name, resp.Results)
	got := e.get(t, domain.KindBorrower, resp.Results[0].ID)
	require.NotNil(t, got)
	return got.(*domain.Borrower)
}

type memoryReplay struct {
	mu      sync.Mutex
	entries map[string]domain.BatchResponse
}

func newMemoryReplay() *memoryReplay {
	return &memoryReplay{entries: make(map[string]domain.BatchResponse)}
}

func (m *memoryReplay) Get(_ context.Context, workspaceID, clientBatchID string) (*domain.BatchResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.entries[workspaceID+"/"+clientBatchID]
	if !ok {
		return nil, false, nil
	}
	return &resp, true, nil
}

func (m *memoryReplay) Put(_ context.Context, workspaceID, clientBatchID string, resp *domain.BatchResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[workspaceID+"/"+clientBatchID] = *resp
	return nil
}
