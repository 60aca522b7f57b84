// Package replay remembers committed batch responses so that a client
// retrying a push whose response was lost gets the original outcome back.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

const keyPrefix = "batch:"

// DefaultTTL is how long a response stays replayable.
const DefaultTTL = 24 * time.Hour

// Cache is a badger-backed response cache with per-entry expiry.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open opens the cache at path. An empty path keeps it in memory.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable Badger's internal logging
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if logger != nil {
		logger.Info("replay cache opened", "path", path, "ttl", ttl)
	}
	return &Cache{db: db, ttl: ttl, logger: logger}, nil
}

func key(workspaceID, clientBatchID string) []byte {
	return []byte(keyPrefix + workspaceID + ":" + clientBatchID)
}

// Get returns the cached response for a client batch id.
func (c *Cache) Get(ctx context.Context, workspaceID, clientBatchID string) (*domain.BatchResponse, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var resp domain.BatchResponse
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(workspaceID, clientBatchID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &resp)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting replay entry %s: %w", clientBatchID, err)
	}
	return &resp, true, nil
}

// Put stores resp until the TTL lapses. Conflict snapshots are kept as
// plain JSON objects.
func (c *Cache) Put(ctx context.Context, workspaceID, clientBatchID string, resp *domain.BatchResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key(workspaceID, clientBatchID), data).WithTTL(c.ttl))
	})
}

// RunGC reclaims value log space left by expired entries.
func (c *Cache) RunGC() error {
	for {
		err := c.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		return err
	}
}

// Ping reports whether the cache is usable.
func (c *Cache) Ping(_ context.Context) error {
	if c.db.IsClosed() {
		return errors.New("replay cache is closed")
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.logger != nil {
		c.logger.Info("closing replay cache")
	}
	return c.db.Close()
}
