package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

// WorkspaceStats holds row counts for one workspace.
type WorkspaceStats struct {
	Rows       map[domain.EntityKind]int
	Tombstones int
}

// Workspaces lists every workspace id that owns rows or tombstones.
func (s *Store) Workspaces(ctx context.Context) ([]string, error) {
	parts := make([]string, 0, len(domain.AllKinds())+1)
	for _, kind := range domain.AllKinds() {
		t, err := tables.Lookup(kind)
		if err != nil {
			return nil, err
		}
		parts = append(parts, "SELECT workspace_id FROM "+t.tableName())
	}
	parts = append(parts, "SELECT workspace_id FROM tombstones")

	rows, err := s.readDB.QueryContext(ctx, strings.Join(parts, " UNION ")+" ORDER BY workspace_id")
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ws string
		if err := rows.Scan(&ws); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Stats counts rows per kind and tombstones for a workspace.
func (s *Store) Stats(ctx context.Context, workspaceID string) (*WorkspaceStats, error) {
	stats := &WorkspaceStats{Rows: make(map[domain.EntityKind]int)}
	for _, kind := range domain.AllKinds() {
		t, err := tables.Lookup(kind)
		if err != nil {
			return nil, err
		}
		var n int
		err = s.readDB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+t.tableName()+" WHERE workspace_id = ?", workspaceID).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		stats.Rows[kind] = n
	}

	err := s.readDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tombstones WHERE workspace_id = ?", workspaceID).Scan(&stats.Tombstones)
	if err != nil {
		return nil, fmt.Errorf("count tombstones: %w", err)
	}
	return stats, nil
}

// SortedKinds returns the kinds in stats in name order.
func (ws *WorkspaceStats) SortedKinds() []domain.EntityKind {
	kinds := make([]domain.EntityKind, 0, len(ws.Rows))
	for k := range ws.Rows {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
