package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/listing"
	"github.com/nestfolio/nestfolio-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stubMatcher returns a scripted record set, or an error, per call.
type stubMatcher struct {
	records []listing.Record
	err     error
	calls   int
}

func (m *stubMatcher) Match(ctx context.Context, prefs domain.CollectionPreferences) ([]listing.Record, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func record(externalID string, price int64) listing.Record {
	return listing.Record{
		ExternalID: externalID,
		Address:    externalID + " Main St",
		City:       "Austin",
		State:      "TX",
		Price:      &price,
	}
}

func seedCollection(t *testing.T, s *sqlite.Store) *domain.Collection {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	u := &domain.User{
		ID:           id.MustGenerate("usr"),
		Email:        id.MustGenerate("usr") + "@example.com",
		PasswordHash: "x",
		Plan:         domain.PlanFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	c := &domain.Collection{
		ID:        id.MustGenerate("col"),
		Name:      "Test",
		OwnerID:   u.ID,
		Status:    domain.CollectionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	prefs := &domain.CollectionPreferences{
		ID:           id.MustGenerate("pref"),
		CollectionID: c.ID,
		Cities:       []string{"Austin"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreatePreferences(ctx, prefs); err != nil {
		t.Fatalf("create preferences: %v", err)
	}
	return c
}

func TestSyncCollection_Additive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	matcher := &stubMatcher{records: []listing.Record{record("101", 300000), record("102", 400000)}}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	outcome := engine.SyncCollection(ctx, c.ID)
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.NewProperties != 2 || outcome.TotalProperties != 2 {
		t.Errorf("new=%d total=%d, want 2/2", outcome.NewProperties, outcome.TotalProperties)
	}

	// Second sync with an overlapping result set only adds the new one.
	matcher.records = []listing.Record{record("102", 410000), record("103", 500000)}
	outcome = engine.SyncCollection(ctx, c.ID)
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.NewProperties != 1 {
		t.Errorf("NewProperties = %d, want 1", outcome.NewProperties)
	}
	if outcome.TotalProperties != 3 {
		t.Errorf("TotalProperties = %d, want 3 (additive, nothing removed)", outcome.TotalProperties)
	}

	// The overlapping property picked up the fresh price.
	p, err := s.GetPropertyByExternalID(ctx, 102)
	if err != nil {
		t.Fatalf("get property: %v", err)
	}
	if p.Price == nil || *p.Price != 410000 {
		t.Errorf("Price = %v, want merged 410000", p.Price)
	}

	// An identical third sync is a no-op.
	outcome = engine.SyncCollection(ctx, c.ID)
	if outcome.NewProperties != 0 || outcome.TotalProperties != 3 {
		t.Errorf("no-op sync: new=%d total=%d, want 0/3", outcome.NewProperties, outcome.TotalProperties)
	}
}

func TestSyncCollection_TouchesLastSyncedOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	matcher := &stubMatcher{err: listing.ErrUpstream}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	outcome := engine.SyncCollection(ctx, c.ID)
	if outcome.Success {
		t.Fatal("expected failed outcome")
	}
	if len(outcome.Errors) == 0 {
		t.Error("failed outcome should carry an error message")
	}

	got, err := s.GetCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get collection: %v", err)
	}
	if got.LastSyncedAt == nil {
		t.Error("failed sync must still record the attempt")
	}
}

func TestSyncCollection_SkipsUnusableRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	bad := listing.Record{ExternalID: "not-a-number"}
	matcher := &stubMatcher{records: []listing.Record{record("201", 100000), bad}}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	outcome := engine.SyncCollection(ctx, c.ID)
	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.NewProperties != 1 {
		t.Errorf("NewProperties = %d, want 1", outcome.NewProperties)
	}
	if len(outcome.Errors) != 1 {
		t.Errorf("Errors = %v, want one skip notice", outcome.Errors)
	}
}

func TestPopulateNewCollection_BestEffort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	matcher := &stubMatcher{err: listing.ErrTransport}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	outcome := engine.PopulateNewCollection(ctx, c.ID)
	if outcome.Success {
		t.Fatal("expected failed outcome")
	}

	// Collection still exists and is simply empty.
	n, err := s.CountCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestPopulateNewCollection_NoPreferencesYet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	u := seedUser(t, s)

	c := &domain.Collection{
		ID:        id.MustGenerate("col"),
		Name:      "No prefs yet",
		OwnerID:   u.ID,
		Status:    domain.CollectionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	matcher := &stubMatcher{}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	outcome := engine.PopulateNewCollection(ctx, c.ID)
	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success with nothing to match", outcome)
	}
	if outcome.NewProperties != 0 || len(outcome.Errors) != 0 {
		t.Errorf("outcome = %+v, want zero additions and no errors", outcome)
	}
	if matcher.calls != 0 {
		t.Errorf("matcher called %d times without preferences", matcher.calls)
	}
}

func TestUpdatePreferencesAndReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	matcher := &stubMatcher{records: []listing.Record{record("301", 100000), record("302", 200000)}}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	if outcome := engine.SyncCollection(ctx, c.ID); !outcome.Success {
		t.Fatalf("seed sync: %+v", outcome)
	}

	prefs, err := s.GetPreferencesByCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	prefs.Cities = []string{"Round Rock"}

	matcher.records = []listing.Record{record("302", 210000), record("303", 300000)}
	outcome, err := engine.UpdatePreferencesAndReplace(ctx, prefs)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !outcome.Success || outcome.TotalProperties != 2 {
		t.Fatalf("outcome = %+v, want 2 total", outcome)
	}

	props, err := s.ListCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[int64]bool{}
	for _, p := range props {
		got[p.ExternalID] = true
	}
	if !got[302] || !got[303] || got[301] {
		t.Errorf("membership = %v, want {302, 303}", got)
	}

	stored, err := s.GetPreferencesByCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	if len(stored.Cities) != 1 || stored.Cities[0] != "Round Rock" {
		t.Errorf("Cities = %v, want updated", stored.Cities)
	}
}

func TestUpdatePreferencesAndReplace_UpstreamFailureKeepsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCollection(t, s)

	matcher := &stubMatcher{records: []listing.Record{record("401", 100000)}}
	engine := NewSyncEngine(s, matcher, slog.New(slog.DiscardHandler))

	if outcome := engine.SyncCollection(ctx, c.ID); !outcome.Success {
		t.Fatalf("seed sync: %+v", outcome)
	}

	prefs, err := s.GetPreferencesByCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	prefs.Cities = []string{"Nowhere"}

	matcher.err = listing.ErrUpstream
	if _, err := engine.UpdatePreferencesAndReplace(ctx, prefs); err == nil {
		t.Fatal("expected error from failed match")
	}

	// Both preferences and membership kept their previous state.
	stored, err := s.GetPreferencesByCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	if len(stored.Cities) != 1 || stored.Cities[0] != "Austin" {
		t.Errorf("Cities = %v, want original Austin", stored.Cities)
	}
	n, _ := s.CountCollectionProperties(ctx, c.ID)
	if n != 1 {
		t.Errorf("count = %d, want original 1", n)
	}
}

func TestSyncEngine_BusyGuard(t *testing.T) {
	s := newTestStore(t)
	c := seedCollection(t, s)

	engine := NewSyncEngine(s, &stubMatcher{}, slog.New(slog.DiscardHandler))
	if !engine.acquire(c.ID) {
		t.Fatal("first acquire should succeed")
	}

	outcome := engine.SyncCollection(context.Background(), c.ID)
	if outcome.Success {
		t.Fatal("sync of a busy collection should fail fast")
	}

	engine.release(c.ID)
	if !engine.acquire(c.ID) {
		t.Fatal("acquire after release should succeed")
	}
}
