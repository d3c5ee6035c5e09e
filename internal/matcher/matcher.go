// Package matcher turns collection preferences into listing searches and
// merges the results into a single deduplicated set.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/listing"
)

const (
	// defaultRadiusMiles applies when preferences carry coordinates but
	// no explicit search radius.
	defaultRadiusMiles = 10.0

	// defaultRegionDelay spaces out sequential region queries so a
	// multi-city preference set does not burst the provider quota.
	defaultRegionDelay = 1 * time.Second
)

// Searcher is the slice of the listing client the matcher needs.
type Searcher interface {
	SearchByCoordinates(ctx context.Context, lat, long, radiusMiles float64, f listing.SearchFilters) ([]listing.Record, error)
	SearchByRegion(ctx context.Context, region string, f listing.SearchFilters) ([]listing.Record, error)
}

// Matcher resolves preferences to provider queries.
type Matcher struct {
	client      Searcher
	logger      *slog.Logger
	regionDelay time.Duration
}

// New creates a matcher. A regionDelay of zero keeps the default spacing;
// pass a negative value to disable spacing entirely.
func New(client Searcher, logger *slog.Logger, regionDelay time.Duration) *Matcher {
	if regionDelay == 0 {
		regionDelay = defaultRegionDelay
	}
	if regionDelay < 0 {
		regionDelay = 0
	}
	return &Matcher{
		client:      client,
		logger:      logger,
		regionDelay: regionDelay,
	}
}

// Match finds every listing satisfying the preferences. Coordinates win
// over region names when both are present; preferences with neither
// yield an empty result set, not an error. Results are deduplicated by
// external ID, first occurrence wins.
func (m *Matcher) Match(ctx context.Context, prefs domain.CollectionPreferences) ([]listing.Record, error) {
	filters := FiltersFromPreferences(prefs)

	if prefs.HasCoordinates() {
		return m.matchByCoordinates(ctx, prefs, filters)
	}
	return m.matchByRegions(ctx, prefs.Regions(), filters)
}

func (m *Matcher) matchByCoordinates(ctx context.Context, prefs domain.CollectionPreferences, filters listing.SearchFilters) ([]listing.Record, error) {
	radius := prefs.RadiusMiles
	if radius <= 0 {
		radius = defaultRadiusMiles
	}

	records, err := m.client.SearchByCoordinates(ctx, *prefs.Lat, *prefs.Long, radius, filters)
	if err != nil && listing.IsRetryable(err) {
		m.logger.Warn("coordinate search failed, retrying once", "error", err)
		if err = m.wait(ctx); err != nil {
			return nil, err
		}
		records, err = m.client.SearchByCoordinates(ctx, *prefs.Lat, *prefs.Long, radius, filters)
	}
	if err != nil {
		return nil, fmt.Errorf("coordinate search: %w", err)
	}
	return dedupe(records), nil
}

// matchByRegions queries each region in turn. A region that fails twice
// is skipped so one bad city name cannot sink the whole match, but auth
// failures abort immediately since every further query would fail too.
func (m *Matcher) matchByRegions(ctx context.Context, regions []string, filters listing.SearchFilters) ([]listing.Record, error) {
	if len(regions) == 0 {
		return nil, nil
	}

	var merged []listing.Record
	seen := make(map[string]struct{})

	for i, region := range regions {
		if i > 0 {
			if err := m.wait(ctx); err != nil {
				return nil, err
			}
		}

		records, err := m.searchRegionWithRetry(ctx, region, filters)
		if err != nil {
			if errors.Is(err, listing.ErrAuth) || ctx.Err() != nil {
				return nil, fmt.Errorf("region search %q: %w", region, err)
			}
			m.logger.Warn("skipping region after repeated failure",
				"region", region,
				"error", err,
			)
			continue
		}

		for _, rec := range records {
			if _, dup := seen[rec.ExternalID]; dup {
				continue
			}
			seen[rec.ExternalID] = struct{}{}
			merged = append(merged, rec)
		}
	}

	return merged, nil
}

func (m *Matcher) searchRegionWithRetry(ctx context.Context, region string, filters listing.SearchFilters) ([]listing.Record, error) {
	records, err := m.client.SearchByRegion(ctx, region, filters)
	if err == nil {
		return records, nil
	}
	if errors.Is(err, listing.ErrAuth) {
		return nil, err
	}

	m.logger.Warn("region search failed, retrying once", "region", region, "error", err)
	if werr := m.wait(ctx); werr != nil {
		return nil, werr
	}
	return m.client.SearchByRegion(ctx, region, filters)
}

// wait sleeps for the region delay, honoring cancellation.
func (m *Matcher) wait(ctx context.Context) error {
	if m.regionDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(m.regionDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func dedupe(records []listing.Record) []listing.Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, rec := range records {
		if _, dup := seen[rec.ExternalID]; dup {
			continue
		}
		seen[rec.ExternalID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// FiltersFromPreferences maps preference ranges and home-type selections
// onto the provider's query constraints.
func FiltersFromPreferences(prefs domain.CollectionPreferences) listing.SearchFilters {
	return listing.SearchFilters{
		MinBeds:        prefs.MinBeds,
		MaxBeds:        prefs.MaxBeds,
		MinBaths:       prefs.MinBaths,
		MaxBaths:       prefs.MaxBaths,
		MinPrice:       prefs.MinPrice,
		MaxPrice:       prefs.MaxPrice,
		IsTownHouse:    prefs.IsTownHouse,
		IsLotLand:      prefs.IsLotLand,
		IsCondo:        prefs.IsCondo,
		IsMultiFamily:  prefs.IsMultiFamily,
		IsSingleFamily: prefs.IsSingleFamily,
		IsApartment:    prefs.IsApartment,
	}
}
