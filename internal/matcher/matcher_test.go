package matcher

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/listing"
)

// stubSearcher scripts responses per region and records every call.
type stubSearcher struct {
	coordRecords []listing.Record
	coordErr     error
	coordCalls   int

	regionRecords map[string][]listing.Record
	regionErrs    map[string][]error
	regionCalls   []string
}

func (s *stubSearcher) SearchByCoordinates(ctx context.Context, lat, long, radius float64, f listing.SearchFilters) ([]listing.Record, error) {
	s.coordCalls++
	if s.coordErr != nil {
		err := s.coordErr
		s.coordErr = nil
		return nil, err
	}
	return s.coordRecords, nil
}

func (s *stubSearcher) SearchByRegion(ctx context.Context, region string, f listing.SearchFilters) ([]listing.Record, error) {
	s.regionCalls = append(s.regionCalls, region)
	if errs := s.regionErrs[region]; len(errs) > 0 {
		err := errs[0]
		s.regionErrs[region] = errs[1:]
		return nil, err
	}
	return s.regionRecords[region], nil
}

func newTestMatcher(client Searcher) *Matcher {
	return New(client, slog.New(slog.DiscardHandler), -1)
}

func rec(id string) listing.Record {
	return listing.Record{ExternalID: id}
}

func floatPtr(f float64) *float64 { return &f }

func TestMatch_CoordinatesWinOverRegions(t *testing.T) {
	stub := &stubSearcher{
		coordRecords: []listing.Record{rec("1"), rec("2")},
	}
	m := newTestMatcher(stub)

	prefs := domain.CollectionPreferences{
		Lat:    floatPtr(30.25),
		Long:   floatPtr(-97.75),
		Cities: []string{"Austin"},
	}
	records, err := m.Match(context.Background(), prefs)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if stub.coordCalls != 1 {
		t.Errorf("coordCalls = %d, want 1", stub.coordCalls)
	}
	if len(stub.regionCalls) != 0 {
		t.Errorf("region search used despite coordinates: %v", stub.regionCalls)
	}
}

func TestMatch_CoordinateRetryOnTransport(t *testing.T) {
	stub := &stubSearcher{
		coordRecords: []listing.Record{rec("1")},
		coordErr:     listing.ErrTransport,
	}
	m := newTestMatcher(stub)

	records, err := m.Match(context.Background(), domain.CollectionPreferences{
		Lat:  floatPtr(30.25),
		Long: floatPtr(-97.75),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if stub.coordCalls != 2 {
		t.Errorf("coordCalls = %d, want 2 (original + retry)", stub.coordCalls)
	}
}

func TestMatch_DedupAcrossRegions(t *testing.T) {
	stub := &stubSearcher{
		regionRecords: map[string][]listing.Record{
			"Austin":     {rec("1"), rec("2")},
			"Round Rock": {rec("2"), rec("3")},
		},
	}
	m := newTestMatcher(stub)

	records, err := m.Match(context.Background(), domain.CollectionPreferences{
		Cities: []string{"Austin", "Round Rock"},
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 after dedup", len(records))
	}
	// First occurrence wins, order preserved.
	for i, want := range []string{"1", "2", "3"} {
		if records[i].ExternalID != want {
			t.Errorf("records[%d] = %q, want %q", i, records[i].ExternalID, want)
		}
	}
}

func TestMatch_SkipsRegionAfterTwoFailures(t *testing.T) {
	stub := &stubSearcher{
		regionRecords: map[string][]listing.Record{
			"Round Rock": {rec("9")},
		},
		regionErrs: map[string][]error{
			"Austin": {listing.ErrUpstream, listing.ErrUpstream},
		},
	}
	m := newTestMatcher(stub)

	records, err := m.Match(context.Background(), domain.CollectionPreferences{
		Cities: []string{"Austin", "Round Rock"},
	})
	if err != nil {
		t.Fatalf("Match should not fail when one region fails: %v", err)
	}
	if len(records) != 1 || records[0].ExternalID != "9" {
		t.Fatalf("got %+v, want single record 9", records)
	}
	// Austin tried twice, then Round Rock once.
	want := []string{"Austin", "Austin", "Round Rock"}
	if len(stub.regionCalls) != len(want) {
		t.Fatalf("regionCalls = %v, want %v", stub.regionCalls, want)
	}
	for i := range want {
		if stub.regionCalls[i] != want[i] {
			t.Errorf("regionCalls[%d] = %q, want %q", i, stub.regionCalls[i], want[i])
		}
	}
}

func TestMatch_RegionRecoversOnRetry(t *testing.T) {
	stub := &stubSearcher{
		regionRecords: map[string][]listing.Record{
			"Austin": {rec("5")},
		},
		regionErrs: map[string][]error{
			"Austin": {listing.ErrTransport},
		},
	}
	m := newTestMatcher(stub)

	records, err := m.Match(context.Background(), domain.CollectionPreferences{
		Cities: []string{"Austin"},
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(records) != 1 || records[0].ExternalID != "5" {
		t.Fatalf("got %+v, want single record 5", records)
	}
}

func TestMatch_AuthAborts(t *testing.T) {
	stub := &stubSearcher{
		regionErrs: map[string][]error{
			"Austin": {listing.ErrAuth},
		},
		regionRecords: map[string][]listing.Record{
			"Round Rock": {rec("1")},
		},
	}
	m := newTestMatcher(stub)

	_, err := m.Match(context.Background(), domain.CollectionPreferences{
		Cities: []string{"Austin", "Round Rock"},
	})
	if !errors.Is(err, listing.ErrAuth) {
		t.Fatalf("error = %v, want ErrAuth", err)
	}
	// No retry, no further regions.
	if len(stub.regionCalls) != 1 {
		t.Errorf("regionCalls = %v, want just the failed region", stub.regionCalls)
	}
}

func TestMatch_NoSearchTarget(t *testing.T) {
	stub := &stubSearcher{}
	m := newTestMatcher(stub)
	records, err := m.Match(context.Background(), domain.CollectionPreferences{})
	if err != nil {
		t.Fatalf("error = %v, want nil for an empty search target", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
	if stub.coordCalls != 0 || len(stub.regionCalls) != 0 {
		t.Errorf("provider was queried: coord=%d regions=%v", stub.coordCalls, stub.regionCalls)
	}
}

func TestFiltersFromPreferences(t *testing.T) {
	minBeds := 3
	minPrice := int64(250000)
	prefs := domain.CollectionPreferences{
		MinBeds:        &minBeds,
		MinPrice:       &minPrice,
		IsCondo:        true,
		IsSingleFamily: true,
	}

	f := FiltersFromPreferences(prefs)
	if f.MinBeds == nil || *f.MinBeds != 3 {
		t.Errorf("MinBeds = %v, want 3", f.MinBeds)
	}
	if f.MinPrice == nil || *f.MinPrice != 250000 {
		t.Errorf("MinPrice = %v, want 250000", f.MinPrice)
	}
	if !f.IsCondo || !f.IsSingleFamily || f.IsTownHouse {
		t.Errorf("home type flags wrong: %+v", f)
	}
}
