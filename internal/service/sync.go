// Package service provides the business logic layer for collections,
// preferences, property matching, and synchronization.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/store"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

// Matcher resolves a preference set to upstream listing records.
type Matcher interface {
	Match(ctx context.Context, prefs domain.CollectionPreferences) ([]listing.Record, error)
}

// SyncEngine keeps collection memberships aligned with what the upstream
// provider currently returns for each collection's preferences.
type SyncEngine struct {
	store   *sqlite.Store
	matcher Matcher
	logger  *slog.Logger

	// busy guards against concurrent syncs of the same collection.
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewSyncEngine creates a sync engine.
func NewSyncEngine(store *sqlite.Store, matcher Matcher, logger *slog.Logger) *SyncEngine {
	return &SyncEngine{
		store:   store,
		matcher: matcher,
		logger:  logger,
		busy:    make(map[string]struct{}),
	}
}

// acquire marks a collection as syncing. Returns false when another sync
// of the same collection is in flight.
func (e *SyncEngine) acquire(collectionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, taken := e.busy[collectionID]; taken {
		return false
	}
	e.busy[collectionID] = struct{}{}
	return true
}

func (e *SyncEngine) release(collectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, collectionID)
}

// recordToProperty converts an upstream record to a domain property. The
// second return is false when the record's external ID is unusable.
func recordToProperty(rec listing.Record) (*domain.Property, bool) {
	externalID, err := strconv.ParseInt(rec.ExternalID, 10, 64)
	if err != nil || externalID == 0 {
		return nil, false
	}
	return &domain.Property{
		ID:            id.MustGenerate("prop"),
		ExternalID:    externalID,
		StreetAddress: rec.Address,
		City:          rec.City,
		State:         rec.State,
		Zipcode:       rec.Zipcode,
		Price:         rec.Price,
		Zestimate:     rec.Zestimate,
		Bedrooms:      rec.Bedrooms,
		Bathrooms:     rec.Bathrooms,
		LivingArea:    rec.LivingArea,
		LotSize:       rec.LotSize,
		HomeType:      rec.HomeType,
		HomeStatus:    rec.HomeStatus,
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		ImageURL:      rec.ImageURL,
	}, true
}

// PopulateNewCollection runs the first match for a freshly created
// collection. Best effort: a failed match leaves the collection empty
// rather than failing creation, and the failure is reported in the
// outcome.
func (e *SyncEngine) PopulateNewCollection(ctx context.Context, collectionID string) domain.SyncOutcome {
	if !e.acquire(collectionID) {
		return domain.FailedSync(collectionID, "sync already in progress")
	}
	defer e.release(collectionID)

	prefs, err := e.store.GetPreferencesByCollection(ctx, collectionID)
	if err != nil {
		// A brand-new collection may not have preferences yet; there is
		// simply nothing to match.
		if errors.Is(err, store.ErrNotFound) {
			return domain.SyncOutcome{Success: true, CollectionID: collectionID}
		}
		return domain.FailedSync(collectionID, fmt.Sprintf("load preferences: %v", err))
	}

	records, err := e.matcher.Match(ctx, *prefs)
	if err != nil {
		e.logger.Warn("initial population match failed",
			"collection_id", collectionID,
			"error", err,
		)
		return domain.FailedSync(collectionID, fmt.Sprintf("match: %v", err))
	}

	outcome := e.addRecords(ctx, collectionID, records)

	now := time.Now()
	if err := e.store.TouchLastSynced(ctx, collectionID, now); err != nil {
		e.logger.Error("touch last synced", "collection_id", collectionID, "error", err)
	}

	e.logger.Info("collection populated",
		"collection_id", collectionID,
		"matched", len(records),
		"added", outcome.NewProperties,
	)
	return outcome
}

// SyncCollection refreshes a collection additively: new matches join the
// collection, existing members are merged in place, and nothing is
// removed. The attempt is recorded on the collection whether or not it
// succeeds.
func (e *SyncEngine) SyncCollection(ctx context.Context, collectionID string) domain.SyncOutcome {
	if !e.acquire(collectionID) {
		return domain.FailedSync(collectionID, "sync already in progress")
	}
	defer e.release(collectionID)

	defer func() {
		if err := e.store.TouchLastSynced(ctx, collectionID, time.Now()); err != nil {
			e.logger.Error("touch last synced", "collection_id", collectionID, "error", err)
		}
	}()

	prefs, err := e.store.GetPreferencesByCollection(ctx, collectionID)
	if err != nil {
		return domain.FailedSync(collectionID, fmt.Sprintf("load preferences: %v", err))
	}

	records, err := e.matcher.Match(ctx, *prefs)
	if err != nil {
		e.logger.Warn("sync match failed",
			"collection_id", collectionID,
			"error", err,
		)
		return domain.FailedSync(collectionID, fmt.Sprintf("match: %v", err))
	}

	outcome := e.addRecords(ctx, collectionID, records)

	e.logger.Info("collection synced",
		"collection_id", collectionID,
		"matched", len(records),
		"new", outcome.NewProperties,
		"total", outcome.TotalProperties,
	)
	return outcome
}

// addRecords upserts records and associates them with the collection.
// Individual record failures are collected, never fatal.
func (e *SyncEngine) addRecords(ctx context.Context, collectionID string, records []listing.Record) domain.SyncOutcome {
	outcome := domain.SyncOutcome{
		Success:      true,
		CollectionID: collectionID,
	}

	for _, rec := range records {
		prop, ok := recordToProperty(rec)
		if !ok {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("record %q: unusable external ID", rec.ExternalID))
			continue
		}
		if _, err := e.store.UpsertProperty(ctx, prop); err != nil {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("upsert %d: %v", prop.ExternalID, err))
			continue
		}
		added, err := e.store.AddPropertyToCollection(ctx, collectionID, prop.ID)
		if err != nil {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("associate %d: %v", prop.ExternalID, err))
			continue
		}
		if added {
			outcome.NewProperties++
		}
	}

	total, err := e.store.CountCollectionProperties(ctx, collectionID)
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("count: %v", err))
	} else {
		outcome.TotalProperties = total
	}
	return outcome
}

// UpdatePreferencesAndReplace atomically stores new preferences and
// rebuilds the collection's membership from a fresh match against them.
// The upstream match runs before the transaction opens; if anything
// fails, preferences and membership both keep their previous state.
func (e *SyncEngine) UpdatePreferencesAndReplace(ctx context.Context, prefs *domain.CollectionPreferences) (domain.SyncOutcome, error) {
	collectionID := prefs.CollectionID
	if !e.acquire(collectionID) {
		return domain.FailedSync(collectionID, "sync already in progress"),
			errors.Conflict("collection sync already in progress")
	}
	defer e.release(collectionID)

	records, err := e.matcher.Match(ctx, *prefs)
	if err != nil {
		return domain.FailedSync(collectionID, fmt.Sprintf("match: %v", err)),
			errors.Upstreamf("match against new preferences: %v", err)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return domain.FailedSync(collectionID, err.Error()), errors.Internal("begin transaction").WithCause(err)
	}
	defer tx.Rollback()

	if err := tx.UpdatePreferences(ctx, prefs); err != nil {
		return domain.FailedSync(collectionID, err.Error()),
			fmt.Errorf("update preferences: %w", err)
	}

	removed, err := tx.RemoveAllFromCollection(ctx, collectionID)
	if err != nil {
		return domain.FailedSync(collectionID, err.Error()),
			fmt.Errorf("clear collection: %w", err)
	}

	outcome := domain.SyncOutcome{
		Success:      true,
		CollectionID: collectionID,
	}
	for _, rec := range records {
		prop, ok := recordToProperty(rec)
		if !ok {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("record %q: unusable external ID", rec.ExternalID))
			continue
		}
		if _, err := tx.UpsertProperty(ctx, prop); err != nil {
			return domain.FailedSync(collectionID, err.Error()),
				fmt.Errorf("upsert %d: %w", prop.ExternalID, err)
		}
		added, err := tx.AddPropertyToCollection(ctx, collectionID, prop.ID)
		if err != nil {
			return domain.FailedSync(collectionID, err.Error()),
				fmt.Errorf("associate %d: %w", prop.ExternalID, err)
		}
		if added {
			outcome.NewProperties++
		}
	}

	total, err := tx.CountCollectionProperties(ctx, collectionID)
	if err != nil {
		return domain.FailedSync(collectionID, err.Error()), fmt.Errorf("count: %w", err)
	}
	outcome.TotalProperties = total

	if err := tx.Commit(); err != nil {
		return domain.FailedSync(collectionID, err.Error()), fmt.Errorf("commit: %w", err)
	}

	now := time.Now()
	if err := e.store.TouchLastSynced(ctx, collectionID, now); err != nil {
		e.logger.Error("touch last synced", "collection_id", collectionID, "error", err)
	}

	e.logger.Info("collection membership replaced",
		"collection_id", collectionID,
		"removed", removed,
		"added", outcome.NewProperties,
		"total", outcome.TotalProperties,
	)
	return outcome, nil
}
