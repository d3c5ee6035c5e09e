package providers

import (
	"github.com/samber/do/v2"

	"github.com/nestfolio/nestfolio-server/internal/config"
	"github.com/nestfolio/nestfolio-server/internal/logger"
	"github.com/nestfolio/nestfolio-server/internal/notify"
	"github.com/nestfolio/nestfolio-server/internal/scheduler"
	"github.com/nestfolio/nestfolio-server/internal/service"
)

// ProvideNotifier provides the visitor notification sink.
func ProvideNotifier(i do.Injector) (notify.Notifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Notify.Enabled && cfg.Notify.Endpoint != "" {
		log.Info("Webhook notifier enabled", "endpoint", cfg.Notify.Endpoint)
		return notify.NewWebhook(cfg.Notify.Endpoint, cfg.Server.PublicURL, log.Logger), nil
	}

	return notify.Noop{}, nil
}

// SchedulerHandle wraps the sync scheduler with shutdown capability.
type SchedulerHandle struct {
	*scheduler.Scheduler
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	if h.started {
		h.Stop()
	}
	return nil
}

// ProvideScheduler provides the background sync scheduler. The scheduler
// only starts when scheduled sync is enabled in config.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*service.SyncEngine](i)
	notifier := do.MustInvoke[notify.Notifier](i)

	sched := scheduler.New(storeHandle.Store, engine, notifier, log.Logger, scheduler.Options{
		Interval:        cfg.Sync.Interval,
		BatchSize:       cfg.Sync.BatchSize,
		CollectionDelay: cfg.Sync.CollectionDelay,
	})

	if !cfg.Sync.Enabled {
		log.Info("Scheduled sync disabled")
		return &SchedulerHandle{Scheduler: sched}, nil
	}

	sched.Start()
	log.Info("Sync scheduler started",
		"interval", cfg.Sync.Interval,
		"batch_size", cfg.Sync.BatchSize,
	)

	return &SchedulerHandle{Scheduler: sched, started: true}, nil
}
