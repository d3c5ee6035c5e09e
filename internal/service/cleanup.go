package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// DefaultCleanupBatchSize bounds how many orphans one pass deletes per
// transaction.
const DefaultCleanupBatchSize = 100

// CleanupService reclaims property rows no collection references anymore
// and prunes expired sessions.
type CleanupService struct {
	store     *sqlite.Store
	logger    *slog.Logger
	batchSize int
	dryRun    bool
}

// NewCleanupService creates a cleanup service. batchSize <= 0 uses the
// default.
func NewCleanupService(store *sqlite.Store, logger *slog.Logger, batchSize int, dryRun bool) *CleanupService {
	if batchSize <= 0 {
		batchSize = DefaultCleanupBatchSize
	}
	return &CleanupService{
		store:     store,
		logger:    logger,
		batchSize: batchSize,
		dryRun:    dryRun,
	}
}

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	OrphansFound    int  `json:"orphans_found"`
	OrphansDeleted  int  `json:"orphans_deleted"`
	SessionsDeleted int  `json:"sessions_deleted"`
	DryRun          bool `json:"dry_run"`
}

// Run sweeps orphaned properties in batches until none remain, then
// prunes expired sessions. In dry-run mode it only counts.
func (s *CleanupService) Run(ctx context.Context) (*CleanupReport, error) {
	report := &CleanupReport{DryRun: s.dryRun}

	if s.dryRun {
		ids, err := s.store.FindOrphanProperties(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("find orphans: %w", err)
		}
		report.OrphansFound = len(ids)
		s.logger.Info("cleanup dry run", "orphans", len(ids))
		return report, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ids, err := s.store.FindOrphanProperties(ctx, s.batchSize)
		if err != nil {
			return report, fmt.Errorf("find orphans: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		report.OrphansFound += len(ids)

		deleted, err := s.store.DeletePropertiesWithDependencies(ctx, ids)
		if err != nil {
			return report, fmt.Errorf("delete orphans: %w", err)
		}
		report.OrphansDeleted += deleted

		if len(ids) < s.batchSize {
			break
		}
	}

	sessions, err := s.store.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return report, fmt.Errorf("delete expired sessions: %w", err)
	}
	report.SessionsDeleted = sessions

	if report.OrphansDeleted > 0 || sessions > 0 {
		s.logger.Info("cleanup completed",
			"orphans_deleted", report.OrphansDeleted,
			"sessions_deleted", sessions,
		)
	}
	return report, nil
}
