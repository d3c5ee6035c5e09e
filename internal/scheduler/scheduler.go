// Package scheduler drives periodic collection syncs, refreshing the
// stalest active collections each pass.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/notify"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

const (
	// DefaultInterval is how often a pass starts when not configured.
	DefaultInterval = 3 * time.Hour

	// DefaultCollectionDelay spaces out collections within a pass so one
	// pass cannot monopolize the provider quota.
	DefaultCollectionDelay = 2 * time.Second
)

// Syncer refreshes one collection.
type Syncer interface {
	SyncCollection(ctx context.Context, collectionID string) domain.SyncOutcome
}

// Options configure a Scheduler.
type Options struct {
	// Interval between passes. Zero uses DefaultInterval.
	Interval time.Duration
	// BatchSize caps collections per pass. Zero means no cap.
	BatchSize int
	// CollectionDelay between collections in a pass. Negative disables.
	CollectionDelay time.Duration
}

// Scheduler runs sync passes on a fixed interval until stopped.
type Scheduler struct {
	store    *sqlite.Store
	syncer   Syncer
	notifier notify.Notifier
	logger   *slog.Logger
	opts     Options

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// New creates a scheduler.
func New(store *sqlite.Store, syncer Syncer, notifier notify.Notifier, logger *slog.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CollectionDelay == 0 {
		opts.CollectionDelay = DefaultCollectionDelay
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Scheduler{
		store:    store,
		syncer:   syncer,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// Start launches the background loop. The first pass runs one interval
// after start, not immediately, so restarts do not hammer the provider.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.logger.Info("sync scheduler started",
		"interval", s.opts.Interval,
		"batch_size", s.opts.BatchSize,
	)
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := s.RunOnce(ctx)
			if err := s.notifier.RunSummary(ctx, report); err != nil {
				s.logger.Warn("run summary notification failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single pass: pick the stalest active collections and
// sync them sequentially. Every attempted collection gets its staleness
// clock reset by the sync itself, so a failing collection cannot pin the
// head of the queue.
func (s *Scheduler) RunOnce(ctx context.Context) *domain.SyncRunReport {
	report := &domain.SyncRunReport{
		StartedAt: time.Now(),
		Success:   true,
	}
	defer func() {
		report.CompletedAt = time.Now()
	}()

	collections, err := s.store.ListStaleActiveCollections(ctx, s.opts.BatchSize)
	if err != nil {
		report.Success = false
		report.Errors = append(report.Errors, fmt.Sprintf("list collections: %v", err))
		s.logger.Error("sync pass could not list collections", "error", err)
		return report
	}
	report.CollectionsFound = len(collections)

	for i, collection := range collections {
		if ctx.Err() != nil {
			report.CollectionsSkipped = len(collections) - i
			report.Success = false
			report.Errors = append(report.Errors, "pass interrupted")
			break
		}
		if i > 0 && s.opts.CollectionDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.CollectionDelay):
			}
		}

		outcome := s.syncer.SyncCollection(ctx, collection.ID)
		report.CollectionsProcessed++

		if !outcome.Success {
			report.Errors = append(report.Errors,
				fmt.Sprintf("collection %s: %v", collection.ID, outcome.Errors))
			continue
		}
		report.TotalNewProperties += outcome.NewProperties

		if outcome.NewProperties > 0 && collection.VisitorEmail != "" {
			if err := s.notifier.NewMatches(ctx, collection, outcome); err != nil {
				s.logger.Warn("new match notification failed",
					"collection_id", collection.ID,
					"error", err,
				)
			}
		}
	}

	s.logger.Info("sync pass completed",
		"found", report.CollectionsFound,
		"processed", report.CollectionsProcessed,
		"new_properties", report.TotalNewProperties,
		"duration", report.Duration(),
	)
	return report
}
