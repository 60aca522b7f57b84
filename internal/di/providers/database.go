package providers

import (
	"github.com/samber/do/v2"

	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/logger"
	"github.com/stockroomapp/stockroom-server/internal/replay"
	"github.com/stockroomapp/stockroom-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the SQLite database and applies migrations.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Database.Path)

	return &StoreHandle{Store: db}, nil
}

// ReplayHandle wraps the replay cache with shutdown capability.
type ReplayHandle struct {
	*replay.Cache
}

// Shutdown implements do.Shutdownable.
func (h *ReplayHandle) Shutdown() error {
	return h.Close()
}

// ProvideReplayCache opens the badger-backed batch replay cache.
func ProvideReplayCache(i do.Injector) (*ReplayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := replay.Open(cfg.Database.ReplayPath, cfg.Sync.ReplayTTL, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Replay cache initialized", "path", cfg.Database.ReplayPath, "ttl", cfg.Sync.ReplayTTL)

	return &ReplayHandle{Cache: cache}, nil
}
