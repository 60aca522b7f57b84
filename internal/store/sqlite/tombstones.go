package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

const pruneWatermarkKey = "tombstone_prune_watermark"

// tombstoneLog implements store.TombstoneStore within one transaction.
type tombstoneLog struct {
	q   querier
	now func() time.Time
}

var _ store.TombstoneStore = (*tombstoneLog)(nil)

// RecordDeletion upserts the tombstone for (workspace, kind, id); the newest
// deletion replaces an older one. A zero DeletedAt is stamped by the store
// clock and written back to t.
func (l *tombstoneLog) RecordDeletion(ctx context.Context, t *domain.Tombstone) error {
	if t.DeletedAt.IsZero() {
		t.DeletedAt = l.now()
	}
	_, err := l.q.ExecContext(ctx, `
		INSERT INTO tombstones (workspace_id, entity_kind, entity_id, deleted_at, deleted_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (workspace_id, entity_kind, entity_id)
		DO UPDATE SET deleted_at = excluded.deleted_at, deleted_by = excluded.deleted_by`,
		t.WorkspaceID,
		string(t.EntityKind),
		t.EntityID,
		formatTime(t.DeletedAt),
		sql.NullString{String: t.DeletedBy, Valid: t.DeletedBy != ""},
	)
	if err != nil {
		return fmt.Errorf("record deletion of %s %s: %w", t.EntityKind, t.EntityID, err)
	}
	return nil
}

func (l *tombstoneLog) ListDeletedSince(ctx context.Context, workspaceID string, since *time.Time, kinds []domain.EntityKind, limit int) ([]domain.Tombstone, error) {
	if len(kinds) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(kinds)+3)
	args = append(args, workspaceID, sinceArg(since))
	for _, k := range kinds {
		args = append(args, string(k))
	}
	args = append(args, limit)

	query := `SELECT workspace_id, entity_kind, entity_id, deleted_at, deleted_by
		FROM tombstones
		WHERE workspace_id = ? AND deleted_at > ?
		AND entity_kind IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(kinds)), ", ") + `)
		ORDER BY deleted_at ASC, entity_id ASC
		LIMIT ?`

	rows, err := l.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()

	var out []domain.Tombstone
	for rows.Next() {
		t, err := scanTombstone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (l *tombstoneLog) PruneWatermark(ctx context.Context) (*time.Time, error) {
	return readWatermark(ctx, l.q)
}

func scanTombstone(scanner rowScanner) (*domain.Tombstone, error) {
	var (
		t         domain.Tombstone
		kind      string
		deletedAt string
		deletedBy sql.NullString
	)
	if err := scanner.Scan(&t.WorkspaceID, &kind, &t.EntityID, &deletedAt, &deletedBy); err != nil {
		return nil, fmt.Errorf("scan tombstone: %w", err)
	}
	t.EntityKind = domain.EntityKind(kind)
	t.DeletedBy = deletedBy.String

	var err error
	if t.DeletedAt, err = parseTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parse deleted_at: %w", err)
	}
	return &t, nil
}

func readWatermark(ctx context.Context, q querier) (*time.Time, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, pruneWatermarkKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prune watermark: %w", err)
	}
	t, err := parseTime(value)
	if err != nil {
		return nil, fmt.Errorf("parse prune watermark: %w", err)
	}
	return &t, nil
}

// PruneTombstones deletes tombstones older than cutoff in every workspace
// and advances the prune watermark. The watermark never moves backwards.
func (s *Store) PruneTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tombstones WHERE deleted_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = max(value, excluded.value)`,
		pruneWatermarkKey, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("store prune watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return pruned, nil
}
