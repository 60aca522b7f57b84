package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/logger"
	"github.com/stockroomapp/stockroom-server/internal/ratelimit"
	"github.com/stockroomapp/stockroom-server/internal/service"
	"github.com/stockroomapp/stockroom-server/internal/validation"
)

// syncOptions translates configuration into service options.
func syncOptions(cfg *config.Config) (service.SyncOptions, error) {
	mode, ok := domain.ParseCommitMode(cfg.Sync.CommitMode)
	if !ok {
		return service.SyncOptions{}, fmt.Errorf("unknown commit mode %q", cfg.Sync.CommitMode)
	}
	return service.SyncOptions{
		CommitMode:    mode,
		DefaultLimit:  cfg.Sync.DefaultLimit,
		MaxLimit:      cfg.Sync.MaxLimit,
		MaxOperations: cfg.Sync.MaxOperations,
	}, nil
}

// ProvideValidator provides the field validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideDeltaService provides the delta engine.
func ProvideDeltaService(i do.Injector) (*service.DeltaService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	opts, err := syncOptions(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewDeltaService(storeHandle.Store, opts, log.Logger), nil
}

// ProvideBatchProcessor provides the batch processor.
func ProvideBatchProcessor(i do.Injector) (*service.BatchProcessor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	replayHandle := do.MustInvoke[*ReplayHandle](i)
	v := do.MustInvoke[*validation.Validator](i)

	opts, err := syncOptions(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewBatchProcessor(storeHandle.Store, v, replayHandle.Cache, opts, log.Logger), nil
}

// RateLimiterHandle wraps the batch rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideBatchRateLimiter provides the per-workspace batch rate limiter.
func ProvideBatchRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	limiter := ratelimit.New(cfg.Sync.BatchRate, cfg.Sync.BatchBurst, limiterIdleTTL)
	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}
