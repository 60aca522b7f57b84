package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/logger"
)

// MaintenanceJob periodically prunes old tombstones, compacts the replay
// cache and drops idle rate limiter buckets.
type MaintenanceJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *MaintenanceJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideMaintenanceJob provides the periodic maintenance job.
func ProvideMaintenanceJob(i do.Injector) (*MaintenanceJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	replayHandle := do.MustInvoke[*ReplayHandle](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &MaintenanceJob{cancel: cancel, done: make(chan struct{})}

	run := func() {
		cutoff := domain.Now().Add(-cfg.Sync.TombstoneRetention)
		if count, err := storeHandle.PruneTombstones(ctx, cutoff); err != nil {
			log.Warn("Tombstone pruning failed", "error", err)
		} else if count > 0 {
			log.Info("Tombstones pruned", "deleted", count, "cutoff", cutoff)
		}

		if err := replayHandle.RunGC(); err != nil {
			log.Warn("Replay cache GC failed", "error", err)
		}

		if n := limiterHandle.Sweep(); n > 0 {
			log.Debug("Rate limiter buckets swept", "removed", n)
		}
	}

	go func() {
		defer close(job.done)

		ticker := time.NewTicker(cfg.Sync.PruneInterval)
		defer ticker.Stop()

		// Initial pass on startup
		run()

		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Maintenance job started",
		"interval", cfg.Sync.PruneInterval,
		"tombstone_retention", cfg.Sync.TombstoneRetention,
	)

	return job, nil
}
