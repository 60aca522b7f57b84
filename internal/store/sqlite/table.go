package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/id"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

// syncColumns lead every entity table, in scan order.
const syncColumns = "id, workspace_id, created_at, modified_at, version"

// binder produces a transaction-bound adapter for one kind.
type binder interface {
	bind(q querier, now func() time.Time) store.EntityAdapter
	tableName() string
}

// tables is the closed kind-to-table mapping. Building it panics at init if a
// kind is missing, so an incomplete mapping never reaches a running server.
var tables = store.MustNewRegistry[binder](
	store.Register[binder](domain.KindItem, itemTable),
	store.Register[binder](domain.KindLocation, locationTable),
	store.Register[binder](domain.KindContainer, containerTable),
	store.Register[binder](domain.KindCategory, categoryTable),
	store.Register[binder](domain.KindInventory, inventoryTable),
	store.Register[binder](domain.KindLoan, loanTable),
	store.Register[binder](domain.KindBorrower, borrowerTable),
)

// tableSpec describes how one entity type maps onto its table. E is the
// entity pointer type, F its field set pointer type.
type tableSpec[E domain.Entity, F domain.FieldSet] struct {
	kind      domain.EntityKind
	table     string
	columns   []string // kind-specific columns, after syncColumns
	newEntity func() E
	scan      func(rowScanner) (E, error)
	values    func(E) []any // kind-specific values, in columns order
	apply     func(E, F)
}

func (spec *tableSpec[E, F]) tableName() string { return spec.table }

func (spec *tableSpec[E, F]) bind(q querier, now func() time.Time) store.EntityAdapter {
	return &entityTable[E, F]{spec: spec, q: q, now: now}
}

func (spec *tableSpec[E, F]) selectList() string {
	return syncColumns + ", " + strings.Join(spec.columns, ", ")
}

// scanSync scans the leading sync columns. Callers append their own targets
// and call finish after Scan.
type scanSync struct {
	s          *domain.Syncable
	createdAt  string
	modifiedAt string
}

func (ss *scanSync) targets(extra ...any) []any {
	return append([]any{&ss.s.ID, &ss.s.WorkspaceID, &ss.createdAt, &ss.modifiedAt, &ss.s.Version}, extra...)
}

func (ss *scanSync) finish() error {
	var err error
	if ss.s.CreatedAt, err = parseTime(ss.createdAt); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	if ss.s.ModifiedAt, err = parseTime(ss.modifiedAt); err != nil {
		return fmt.Errorf("parse modified_at: %w", err)
	}
	return nil
}

// entityTable implements store.EntityAdapter for one kind within one transaction.
type entityTable[E domain.Entity, F domain.FieldSet] struct {
	spec *tableSpec[E, F]
	q    querier
	now  func() time.Time
}

func (t *entityTable[E, F]) Kind() domain.EntityKind {
	return t.spec.kind
}

func (t *entityTable[E, F]) ListModifiedSince(ctx context.Context, workspaceID string, since *time.Time, limit int) ([]domain.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE workspace_id = ? AND modified_at > ?
		ORDER BY modified_at ASC, id ASC
		LIMIT ?`, t.spec.selectList(), t.spec.table)

	rows, err := t.q.QueryContext(ctx, query, workspaceID, sinceArg(since), limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.table, err)
	}
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		e, err := t.spec.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.spec.table, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *entityTable[E, F]) GetOneOrNone(ctx context.Context, entityID, workspaceID string) (domain.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND workspace_id = ?`,
		t.spec.selectList(), t.spec.table)

	e, err := t.spec.scan(t.q.QueryRowContext(ctx, query, entityID, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.spec.kind, entityID, err)
	}
	return e, nil
}

func (t *entityTable[E, F]) Create(ctx context.Context, workspaceID string, fields domain.FieldSet) (domain.Entity, error) {
	f, ok := fields.(F)
	if !ok {
		return nil, fmt.Errorf("create %s: unexpected field set %T", t.spec.kind, fields)
	}

	e := t.spec.newEntity()
	s := e.Sync()
	s.ID = id.NewEntityID()
	s.WorkspaceID = workspaceID
	s.InitTimestamps(t.now())
	t.spec.apply(e, f)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 5+len(t.spec.columns)), ", ")
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t.spec.table, t.spec.selectList(), placeholders)

	args := append([]any{s.ID, s.WorkspaceID, formatTime(s.CreatedAt), formatTime(s.ModifiedAt), s.Version}, t.spec.values(e)...)
	if _, err := t.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists.WithCause(err)
		}
		return nil, fmt.Errorf("insert %s: %w", t.spec.table, err)
	}
	return e, nil
}

func (t *entityTable[E, F]) Update(ctx context.Context, current domain.Entity, fields domain.FieldSet) (domain.Entity, error) {
	e, ok := current.(E)
	if !ok {
		return nil, fmt.Errorf("update %s: unexpected entity %T", t.spec.kind, current)
	}
	f, ok := fields.(F)
	if !ok {
		return nil, fmt.Errorf("update %s: unexpected field set %T", t.spec.kind, fields)
	}

	s := e.Sync()
	readVersion := s.Version
	t.spec.apply(e, f)
	s.Touch(t.now())

	sets := make([]string, 0, len(t.spec.columns)+2)
	sets = append(sets, "modified_at = ?", "version = ?")
	for _, col := range t.spec.columns {
		sets = append(sets, col+" = ?")
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ? AND workspace_id = ? AND version = ?`,
		t.spec.table, strings.Join(sets, ", "))

	args := append([]any{formatTime(s.ModifiedAt), s.Version}, t.spec.values(e)...)
	args = append(args, s.ID, s.WorkspaceID, readVersion)

	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists.WithCause(err)
		}
		return nil, fmt.Errorf("update %s: %w", t.spec.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrVersionMismatch
	}
	return e, nil
}

func (t *entityTable[E, F]) Delete(ctx context.Context, entityID, workspaceID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND workspace_id = ?`, t.spec.table)
	res, err := t.q.ExecContext(ctx, query, entityID, workspaceID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.spec.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
