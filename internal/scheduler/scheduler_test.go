package scheduler

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/id"
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

func seedCollection(t *testing.T, s *sqlite.Store, status domain.CollectionStatus, visitorEmail string) *domain.Collection {
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
		ID:           id.MustGenerate("col"),
		Name:         "Test",
		OwnerID:      u.ID,
		Status:       status,
		VisitorEmail: visitorEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	return c
}

// recordingSyncer scripts outcomes per collection and records call order.
type recordingSyncer struct {
	mu       sync.Mutex
	calls    []string
	outcomes map[string]domain.SyncOutcome
}

func (r *recordingSyncer) SyncCollection(ctx context.Context, collectionID string) domain.SyncOutcome {
	r.mu.Lock()
	r.calls = append(r.calls, collectionID)
	r.mu.Unlock()
	if out, ok := r.outcomes[collectionID]; ok {
		return out
	}
	return domain.SyncOutcome{Success: true, CollectionID: collectionID}
}

type recordingNotifier struct {
	mu         sync.Mutex
	newMatches []string
	summaries  int
}

func (r *recordingNotifier) NewMatches(ctx context.Context, c *domain.Collection, o domain.SyncOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newMatches = append(r.newMatches, c.ID)
	return nil
}

func (r *recordingNotifier) RunSummary(ctx context.Context, report *domain.SyncRunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries++
	return nil
}

func TestRunOnce_SyncsStalestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	never := seedCollection(t, s, domain.CollectionActive, "")
	stale := seedCollection(t, s, domain.CollectionActive, "")
	fresh := seedCollection(t, s, domain.CollectionActive, "")
	seedCollection(t, s, domain.CollectionInactive, "")

	if err := s.TouchLastSynced(ctx, stale.ID, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := s.TouchLastSynced(ctx, fresh.ID, time.Now()); err != nil {
		t.Fatalf("touch: %v", err)
	}

	syncer := &recordingSyncer{}
	sched := New(s, syncer, nil, slog.New(slog.DiscardHandler), Options{
		BatchSize:       2,
		CollectionDelay: -1,
	})

	report := sched.RunOnce(ctx)
	if !report.Success {
		t.Fatalf("report = %+v", report)
	}
	if report.CollectionsProcessed != 2 {
		t.Fatalf("processed = %d, want 2", report.CollectionsProcessed)
	}
	if len(syncer.calls) != 2 || syncer.calls[0] != never.ID || syncer.calls[1] != stale.ID {
		t.Errorf("calls = %v, want [never-synced, stalest]", syncer.calls)
	}
}

func TestRunOnce_NotifiesVisitorsOnNewMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	withVisitor := seedCollection(t, s, domain.CollectionActive, "visitor@example.com")
	noVisitor := seedCollection(t, s, domain.CollectionActive, "")
	noNews := seedCollection(t, s, domain.CollectionActive, "other@example.com")

	syncer := &recordingSyncer{
		outcomes: map[string]domain.SyncOutcome{
			withVisitor.ID: {Success: true, CollectionID: withVisitor.ID, NewProperties: 3, TotalProperties: 3},
			noVisitor.ID:   {Success: true, CollectionID: noVisitor.ID, NewProperties: 2, TotalProperties: 2},
			noNews.ID:      {Success: true, CollectionID: noNews.ID, NewProperties: 0, TotalProperties: 4},
		},
	}
	notifier := &recordingNotifier{}
	sched := New(s, syncer, notifier, slog.New(slog.DiscardHandler), Options{CollectionDelay: -1})

	report := sched.RunOnce(ctx)
	if report.TotalNewProperties != 5 {
		t.Errorf("TotalNewProperties = %d, want 5", report.TotalNewProperties)
	}
	if len(notifier.newMatches) != 1 || notifier.newMatches[0] != withVisitor.ID {
		t.Errorf("notifications = %v, want only the collection with a visitor and news", notifier.newMatches)
	}
}

func TestRunOnce_FailuresDoNotAbortPass(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	failing := seedCollection(t, s, domain.CollectionActive, "")
	healthy := seedCollection(t, s, domain.CollectionActive, "")

	syncer := &recordingSyncer{
		outcomes: map[string]domain.SyncOutcome{
			failing.ID: domain.FailedSync(failing.ID, "upstream down"),
			healthy.ID: {Success: true, CollectionID: healthy.ID, NewProperties: 1, TotalProperties: 1},
		},
	}
	sched := New(s, syncer, nil, slog.New(slog.DiscardHandler), Options{CollectionDelay: -1})

	report := sched.RunOnce(ctx)
	if report.CollectionsProcessed != 2 {
		t.Errorf("processed = %d, want 2", report.CollectionsProcessed)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", report.Errors)
	}
	if report.TotalNewProperties != 1 {
		t.Errorf("TotalNewProperties = %d, want 1", report.TotalNewProperties)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestStore(t)
	syncer := &recordingSyncer{}
	notifier := &recordingNotifier{}
	sched := New(s, syncer, notifier, slog.New(slog.DiscardHandler), Options{
		Interval:        20 * time.Millisecond,
		CollectionDelay: -1,
	})

	sched.Start()
	sched.Start() // second start is a no-op
	time.Sleep(60 * time.Millisecond)
	sched.Stop()
	sched.Stop() // second stop is a no-op

	notifier.mu.Lock()
	summaries := notifier.summaries
	notifier.mu.Unlock()
	if summaries == 0 {
		t.Error("expected at least one pass summary")
	}
}
