package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/errors"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

// DeltaService answers "what changed since my cursor" for offline clients.
type DeltaService struct {
	store  store.Store
	opts   SyncOptions
	logger *slog.Logger
}

// NewDeltaService creates a new delta service.
func NewDeltaService(st store.Store, opts SyncOptions, logger *slog.Logger) *DeltaService {
	return &DeltaService{
		store:  st,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// GetDelta returns one page of rows modified after q.ModifiedSince plus the
// tombstones recorded after it.
//
// Every requested kind and the tombstone log are read from a single snapshot,
// each with limit+1 rows to detect truncation. When anything is truncated the
// page reports has_more and a next_cursor at which no unreturned row can be
// skipped: the smallest last-returned stamp among truncated collections.
// Collections that were not truncated may hand some rows out again on the next
// page; clients apply rows idempotently by id.
//
// server_time and next_cursor never pass the store's read horizon, so a write
// still in flight while the page is read is picked up by the next pull.
func (s *DeltaService) GetDelta(ctx context.Context, q domain.DeltaQuery) (*domain.Delta, error) {
	if q.WorkspaceID == "" {
		return nil, errors.Validation("workspace is required")
	}

	kinds := q.Kinds
	if len(kinds) == 0 {
		kinds = domain.AllKinds()
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, errors.Validationf("unknown entity kind %q", k)
		}
	}
	limit := store.ClampLimit(q.Limit, s.opts.DefaultLimit, s.opts.MaxLimit)

	// Taken before the snapshot opens. Anything the snapshot cannot see is
	// stamped after it.
	serverTime := s.store.ReadHorizon()

	sess, err := s.store.BeginRead(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "open read session")
	}
	defer sess.Rollback()

	delta := &domain.Delta{
		Collections: make(map[domain.EntityKind][]domain.Entity, len(kinds)),
		Kinds:       kinds,
		Deleted:     []domain.DeletedRef{},
		Metadata:    domain.SyncMetadata{ServerTime: serverTime},
	}

	var cursor *time.Time
	advance := func(truncated bool, last time.Time) {
		if !truncated {
			return
		}
		delta.Metadata.HasMore = true
		if cursor == nil || last.Before(*cursor) {
			c := last
			cursor = &c
		}
	}

	for _, kind := range kinds {
		entities, err := sess.Entities(kind)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "resolve %s adapter", kind)
		}
		pg, err := fetchPage(limit, s.opts.MaxLimit, entityStamp, func(n int) ([]domain.Entity, error) {
			return entities.ListModifiedSince(ctx, q.WorkspaceID, q.ModifiedSince, n)
		})
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInternal, "list modified %s", kind)
		}
		if pg.split {
			s.logger.Warn("stamp shared by more rows than fit a page",
				"workspace_id", q.WorkspaceID, "kind", kind, "rows", len(pg.rows))
		}
		rows := pg.rows
		if rows == nil {
			rows = []domain.Entity{}
		}
		delta.Collections[kind] = rows
		if len(rows) > 0 {
			advance(pg.truncated, entityStamp(rows[len(rows)-1]))
		}
	}

	tombstones := sess.Tombstones()
	deleted, err := fetchPage(limit, s.opts.MaxLimit, tombstoneStamp, func(n int) ([]domain.Tombstone, error) {
		return tombstones.ListDeletedSince(ctx, q.WorkspaceID, q.ModifiedSince, kinds, n)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list tombstones")
	}
	if deleted.split {
		s.logger.Warn("stamp shared by more tombstones than fit a page",
			"workspace_id", q.WorkspaceID, "rows", len(deleted.rows))
	}
	for i := range deleted.rows {
		delta.Deleted = append(delta.Deleted, deleted.rows[i].Ref())
	}
	if len(deleted.rows) > 0 {
		advance(deleted.truncated, tombstoneStamp(deleted.rows[len(deleted.rows)-1]))
	}

	if cursor != nil {
		if cursor.After(serverTime) {
			// Rows returned past the horizon come again next page; rows in
			// flight below them must not be stepped over.
			*cursor = serverTime
		}
		delta.Metadata.NextCursor = cursor
	}

	if q.ModifiedSince != nil {
		watermark, err := tombstones.PruneWatermark(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "read prune watermark")
		}
		if watermark != nil && q.ModifiedSince.Before(*watermark) {
			delta.Metadata.ResyncRequired = true
		}
	}

	s.logger.Debug("delta served",
		"workspace_id", q.WorkspaceID,
		"kinds", len(kinds),
		"limit", limit,
		"deleted", len(delta.Deleted),
		"has_more", delta.Metadata.HasMore,
		"resync_required", delta.Metadata.ResyncRequired,
	)

	return delta, nil
}

func entityStamp(e domain.Entity) time.Time { return e.Sync().ModifiedAt }

func tombstoneStamp(t domain.Tombstone) time.Time { return t.DeletedAt }

// collectionPage is one collection's slice of a delta.
type collectionPage[T any] struct {
	rows      []T
	truncated bool
	// split is set when a single stamp outgrew ceiling and the page had to
	// end inside it.
	split bool
}

// fetchPage reads up to limit rows through fetch, which must return rows
// ascending by stamp. When more rows exist, the page is cut before the first
// stamp it would split, so resuming strictly after the last returned stamp
// loses nothing. If a single stamp is shared by more rows than fit, the page
// grows until that stamp is whole, but never past ceiling rows.
func fetchPage[T any](limit, ceiling int, stamp func(T) time.Time, fetch func(n int) ([]T, error)) (collectionPage[T], error) {
	ceiling = max(ceiling, limit)
	n := limit
	for {
		rows, err := fetch(n + 1)
		if err != nil {
			return collectionPage[T]{}, err
		}
		if len(rows) <= n {
			return collectionPage[T]{rows: rows}, nil
		}
		if cut, ok := cutAtStampBoundary(rows, n, stamp); ok {
			return collectionPage[T]{rows: cut, truncated: true}, nil
		}
		if n >= ceiling {
			return collectionPage[T]{rows: rows[:n], truncated: true, split: true}, nil
		}
		n = min(n*2, ceiling)
	}
}

func cutAtStampBoundary[T any](rows []T, n int, stamp func(T) time.Time) ([]T, bool) {
	boundary := stamp(rows[n])
	cut := rows[:n]
	for len(cut) > 0 && stamp(cut[len(cut)-1]).Equal(boundary) {
		cut = cut[:len(cut)-1]
	}
	if len(cut) == 0 {
		return nil, false
	}
	return cut, true
}
