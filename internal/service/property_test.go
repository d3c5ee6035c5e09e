package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/errors"
	"github.com/nestfolio/nestfolio-server/internal/listing"
)

// stubAddressSearcher returns a scripted address result and counts calls.
type stubAddressSearcher struct {
	result *listing.AddressResult
	err    error
	calls  int
}

func (s *stubAddressSearcher) SearchByAddress(ctx context.Context, address string, wantDetails bool) (*listing.AddressResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestPropertyService(t *testing.T, lookup AddressSearcher) *PropertyService {
	t.Helper()
	return NewPropertyService(newTestStore(t), lookup, slog.New(slog.DiscardHandler))
}

func TestLookupByAddress_CachesDetails(t *testing.T) {
	ctx := context.Background()
	rec := record("8801", 350000)
	stub := &stubAddressSearcher{result: &listing.AddressResult{Record: rec, DetailJSON: `{"yearBuilt":1998}`}}
	svc := newTestPropertyService(t, stub)

	prop, err := svc.LookupByAddress(ctx, rec.Address, true)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if prop.ExternalID != 8801 {
		t.Errorf("external id = %d, want 8801", prop.ExternalID)
	}
	if prop.DetailJSON == "" || prop.DetailCachedAt == nil {
		t.Errorf("detail payload not cached: %+v", prop)
	}

	// A second detail lookup inside the TTL is served from the cache.
	again, err := svc.LookupByAddress(ctx, rec.Address, true)
	if err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if again.DetailJSON != prop.DetailJSON {
		t.Errorf("cached detail = %q, want %q", again.DetailJSON, prop.DetailJSON)
	}
	if stub.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", stub.calls)
	}
}

func TestLookupByAddress_NotFound(t *testing.T) {
	svc := newTestPropertyService(t, &stubAddressSearcher{err: listing.ErrNotFound})

	_, err := svc.LookupByAddress(context.Background(), "1 Nowhere Ln", false)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestManualMembershipEdits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCollection(t, s)
	svc := NewPropertyService(s, &stubAddressSearcher{}, slog.New(slog.DiscardHandler))

	prop, ok := recordToProperty(record("9901", 425000))
	if !ok {
		t.Fatal("record rejected")
	}
	if _, err := s.UpsertProperty(ctx, prop); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := svc.AddToCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Adding again is a no-op, not an error.
	if err := svc.AddToCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	// A non-owner sees the collection as missing.
	if err := svc.AddToCollection(ctx, "usr-stranger", c.ID, prop.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("stranger add err = %v, want not found", err)
	}

	if err := svc.RemoveFromCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveFromCollection(ctx, c.OwnerID, c.ID, prop.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second remove err = %v, want not found", err)
	}
}

func TestSharedFeedback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCollection(t, s)
	svc := NewPropertyService(s, &stubAddressSearcher{}, slog.New(slog.DiscardHandler))

	collections := NewCollectionService(s, slog.New(slog.DiscardHandler), 10)
	shared, err := collections.Share(ctx, c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	prop, _ := recordToProperty(record("9950", 500000))
	if _, err := s.UpsertProperty(ctx, prop); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.AddToCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.InteractShared(ctx, shared.ShareToken, prop.ID, InteractionInput{Liked: true, Disliked: true}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("liked+disliked err = %v, want validation", err)
	}

	first, err := svc.InteractShared(ctx, shared.ShareToken, prop.ID, InteractionInput{Liked: true})
	if err != nil {
		t.Fatalf("interact: %v", err)
	}
	if !first.Liked {
		t.Errorf("first interaction = %+v", first)
	}
	// A later reaction replaces the earlier one for the same property.
	second, err := svc.InteractShared(ctx, shared.ShareToken, prop.ID, InteractionInput{Favorited: true})
	if err != nil {
		t.Fatalf("second interact: %v", err)
	}
	if second.Liked || !second.Favorited {
		t.Errorf("second interaction = %+v", second)
	}

	if _, err := svc.CommentShared(ctx, shared.ShareToken, prop.ID, CommentInput{VisitorName: "Pat", Content: "Love the porch"}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	// Unknown properties on the share link 404 rather than leaking.
	if _, err := svc.CommentShared(ctx, shared.ShareToken, "prop-missing", CommentInput{Content: "x"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing property err = %v, want not found", err)
	}

	fb, err := svc.Feedback(ctx, c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if len(fb.Interactions) != 1 {
		t.Errorf("interactions = %d, want 1 after replacement", len(fb.Interactions))
	}
	if len(fb.Comments[prop.ID]) != 1 {
		t.Errorf("comments = %+v, want one note on the property", fb.Comments)
	}
	deadline := time.Now().Add(-time.Minute)
	if fb.Interactions[0].UpdatedAt.Before(deadline) {
		t.Errorf("interaction timestamp not set: %+v", fb.Interactions[0])
	}
}

func TestRequestTourShared(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCollection(t, s)
	svc := NewPropertyService(s, &stubAddressSearcher{}, slog.New(slog.DiscardHandler))

	collections := NewCollectionService(s, slog.New(slog.DiscardHandler), 10)
	shared, err := collections.Share(ctx, c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	prop, _ := recordToProperty(record("4410", 675000))
	if _, err := s.UpsertProperty(ctx, prop); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.AddToCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	input := TourInput{PreferredDate: "2026-09-12", PreferredTime: "10:00", Message: "Weekend works best"}

	// The agent cannot follow up without complete visitor contact.
	if _, err := svc.RequestTourShared(ctx, shared.ShareToken, prop.ID, input); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("no contact err = %v, want validation", err)
	}

	shared.VisitorName = "Pat Walsh"
	shared.VisitorEmail = "pat@example.com"
	shared.VisitorPhone = "512-555-0102"
	if err := s.UpdateCollection(ctx, shared); err != nil {
		t.Fatalf("update collection: %v", err)
	}

	if _, err := svc.RequestTourShared(ctx, shared.ShareToken, prop.ID, TourInput{PreferredTime: "10:00"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing date err = %v, want validation", err)
	}

	tour, err := svc.RequestTourShared(ctx, shared.ShareToken, prop.ID, input)
	if err != nil {
		t.Fatalf("request tour: %v", err)
	}
	if tour.Status != domain.TourPending {
		t.Errorf("status = %q, want pending", tour.Status)
	}
	if tour.VisitorEmail != "pat@example.com" || tour.VisitorPhone != "512-555-0102" {
		t.Errorf("visitor contact not copied from collection: %+v", tour)
	}

	// One open request per property on a collection.
	if _, err := svc.RequestTourShared(ctx, shared.ShareToken, prop.ID, input); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v, want already exists", err)
	}

	// Properties outside the share link 404 rather than leaking.
	if _, err := svc.RequestTourShared(ctx, shared.ShareToken, "prop-missing", input); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing property err = %v, want not found", err)
	}
}

func TestTourLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCollection(t, s)
	svc := NewPropertyService(s, &stubAddressSearcher{}, slog.New(slog.DiscardHandler))

	collections := NewCollectionService(s, slog.New(slog.DiscardHandler), 10)
	shared, err := collections.Share(ctx, c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	shared.VisitorName = "Pat Walsh"
	shared.VisitorEmail = "pat@example.com"
	shared.VisitorPhone = "512-555-0102"
	if err := s.UpdateCollection(ctx, shared); err != nil {
		t.Fatalf("update collection: %v", err)
	}

	prop, _ := recordToProperty(record("4411", 450000))
	if _, err := s.UpsertProperty(ctx, prop); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.AddToCollection(ctx, c.OwnerID, c.ID, prop.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	tour, err := svc.RequestTourShared(ctx, shared.ShareToken, prop.ID, TourInput{PreferredDate: "2026-09-12", PreferredTime: "10:00"})
	if err != nil {
		t.Fatalf("request tour: %v", err)
	}

	tours, err := svc.ListTours(ctx, c.OwnerID, c.ID)
	if err != nil {
		t.Fatalf("list tours: %v", err)
	}
	if len(tours) != 1 || tours[0].ID != tour.ID {
		t.Errorf("tours = %+v, want the one request", tours)
	}

	// Other agents see neither the collection nor its tours.
	if _, err := svc.ListTours(ctx, "usr-stranger", c.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("stranger list err = %v, want not found", err)
	}
	if _, err := svc.UpdateTourStatus(ctx, "usr-stranger", tour.ID, domain.TourConfirmed); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("stranger update err = %v, want not found", err)
	}

	if _, err := svc.UpdateTourStatus(ctx, c.OwnerID, tour.ID, domain.TourStatus("MAYBE")); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("bad status err = %v, want validation", err)
	}

	updated, err := svc.UpdateTourStatus(ctx, c.OwnerID, tour.ID, domain.TourConfirmed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.TourConfirmed {
		t.Errorf("status = %q, want confirmed", updated.Status)
	}
	got, err := s.GetTourRequest(ctx, tour.ID)
	if err != nil {
		t.Fatalf("get tour: %v", err)
	}
	if got.Status != domain.TourConfirmed {
		t.Errorf("stored status = %q, want confirmed", got.Status)
	}
}
