package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
	"github.com/nestfolio/nestfolio-server/internal/id"
	"github.com/nestfolio/nestfolio-server/internal/store"
)

func TestUpsertProperty_CreateThenMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProperty(1001)
	created, err := s.UpsertProperty(ctx, p)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Error("expected created=true on first upsert")
	}
	firstID := p.ID

	// Second upsert with the same external ID merges, keeping the row.
	newPrice := int64(425000)
	update := &domain.Property{
		ID:         id.MustGenerate("prop"),
		ExternalID: 1001,
		Price:      &newPrice,
	}
	created, err = s.UpsertProperty(ctx, update)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("expected created=false on merge")
	}
	if update.ID != firstID {
		t.Errorf("merge rewrote ID to %q, want original %q", update.ID, firstID)
	}

	got, err := s.GetProperty(ctx, firstID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price == nil || *got.Price != 425000 {
		t.Errorf("Price = %v, want 425000", got.Price)
	}
	// Fields absent from the update keep their stored values.
	if got.StreetAddress != "1 Test St" {
		t.Errorf("StreetAddress = %q, want preserved value", got.StreetAddress)
	}
	if got.Bedrooms == nil || *got.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v, want preserved 3", got.Bedrooms)
	}
}

func TestUpsertProperty_NoExternalID(t *testing.T) {
	s := newTestStore(t)
	p := &domain.Property{ID: id.MustGenerate("prop")}
	if _, err := s.UpsertProperty(context.Background(), p); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAddPropertyToCollection_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	p := testProperty(2001)
	if _, err := s.UpsertProperty(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	added, err := s.AddPropertyToCollection(ctx, c.ID, p.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Error("expected added=true on first add")
	}

	added, err = s.AddPropertyToCollection(ctx, c.ID, p.ID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if added {
		t.Error("expected added=false on duplicate add")
	}

	n, err := s.CountCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRemoveAllFromCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	for i := int64(1); i <= 3; i++ {
		p := testProperty(3000 + i)
		if _, err := s.UpsertProperty(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if _, err := s.AddPropertyToCollection(ctx, c.ID, p.ID); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	removed, err := s.RemoveAllFromCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	n, _ := s.CountCollectionProperties(ctx, c.ID)
	if n != 0 {
		t.Errorf("count after clear = %d, want 0", n)
	}

	// Property rows survive the clear.
	if _, err := s.GetPropertyByExternalID(ctx, 3001); err != nil {
		t.Errorf("property should survive membership clear: %v", err)
	}
}

func TestListCollectionProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	var ids []string
	for i := int64(1); i <= 2; i++ {
		p := testProperty(4000 + i)
		if _, err := s.UpsertProperty(ctx, p); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if _, err := s.AddPropertyToCollection(ctx, c.ID, p.ID); err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, p.ID)
	}

	got, err := s.ListCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d properties, want 2", len(got))
	}
	for _, p := range got {
		if p.ID != ids[0] && p.ID != ids[1] {
			t.Errorf("unexpected property %q", p.ID)
		}
	}
}

func TestFindOrphanProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	member := testProperty(5001)
	if _, err := s.UpsertProperty(ctx, member); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AddPropertyToCollection(ctx, c.ID, member.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	orphan := testProperty(5002)
	if _, err := s.UpsertProperty(ctx, orphan); err != nil {
		t.Fatalf("upsert orphan: %v", err)
	}

	ids, err := s.FindOrphanProperties(ctx, 10)
	if err != nil {
		t.Fatalf("find orphans: %v", err)
	}
	if len(ids) != 1 || ids[0] != orphan.ID {
		t.Fatalf("orphans = %v, want just %q", ids, orphan.ID)
	}
}

func TestDeletePropertiesWithDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	p := testProperty(6001)
	if _, err := s.UpsertProperty(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AddPropertyToCollection(ctx, c.ID, p.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Attach dependent rows, then orphan the property.
	in := &domain.PropertyInteraction{
		ID:           id.MustGenerate("int"),
		CollectionID: c.ID,
		PropertyID:   p.ID,
		Liked:        true,
	}
	if err := s.UpsertInteraction(ctx, in); err != nil {
		t.Fatalf("interaction: %v", err)
	}
	comment := &domain.PropertyComment{
		ID:           id.MustGenerate("cmt"),
		CollectionID: c.ID,
		PropertyID:   p.ID,
		Content:      "love the backyard",
	}
	if err := s.CreateComment(ctx, comment); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := s.RemoveAllFromCollection(ctx, c.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}

	deleted, err := s.DeletePropertiesWithDependencies(ctx, []string{p.ID})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := s.GetProperty(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("property still present after delete: %v", err)
	}
}

func TestDeletePropertiesWithDependencies_SkipsReattached(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	p := testProperty(7001)
	if _, err := s.UpsertProperty(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AddPropertyToCollection(ctx, c.ID, p.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Still referenced: the guarded delete must leave it alone.
	deleted, err := s.DeletePropertiesWithDependencies(ctx, []string{p.ID})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 for referenced property", deleted)
	}
	if _, err := s.GetProperty(ctx, p.ID); err != nil {
		t.Errorf("referenced property should survive: %v", err)
	}
}

func TestCachePropertyDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testProperty(8001)
	if _, err := s.UpsertProperty(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	at := time.Now()
	if err := s.CachePropertyDetail(ctx, p.ID, `{"raw": true}`, at); err != nil {
		t.Fatalf("cache detail: %v", err)
	}

	got, err := s.GetProperty(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DetailJSON != `{"raw": true}` {
		t.Errorf("DetailJSON = %q", got.DetailJSON)
	}
	if got.DetailCachedAt == nil {
		t.Error("DetailCachedAt not set")
	}
}

func TestTx_ReplaceFlowRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	p := testProperty(9001)
	if _, err := s.UpsertProperty(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AddPropertyToCollection(ctx, c.ID, p.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.RemoveAllFromCollection(ctx, c.ID); err != nil {
		t.Fatalf("tx clear: %v", err)
	}
	replacement := testProperty(9002)
	if _, err := tx.UpsertProperty(ctx, replacement); err != nil {
		t.Fatalf("tx upsert: %v", err)
	}
	if _, err := tx.AddPropertyToCollection(ctx, c.ID, replacement.ID); err != nil {
		t.Fatalf("tx add: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	// Original membership intact, replacement never landed.
	n, _ := s.CountCollectionProperties(ctx, c.ID)
	if n != 1 {
		t.Fatalf("count = %d, want 1 after rollback", n)
	}
	if _, err := s.GetPropertyByExternalID(ctx, 9002); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("replacement property should not exist after rollback: %v", err)
	}
}

func TestTx_ReplaceFlowCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	c := createTestCollection(t, s, u.ID)

	old := testProperty(9101)
	if _, err := s.UpsertProperty(ctx, old); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.AddPropertyToCollection(ctx, c.ID, old.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.RemoveAllFromCollection(ctx, c.ID); err != nil {
		t.Fatalf("tx clear: %v", err)
	}
	replacement := testProperty(9102)
	if _, err := tx.UpsertProperty(ctx, replacement); err != nil {
		t.Fatalf("tx upsert: %v", err)
	}
	if _, err := tx.AddPropertyToCollection(ctx, c.ID, replacement.ID); err != nil {
		t.Fatalf("tx add: %v", err)
	}
	total, err := tx.CountCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("tx count: %v", err)
	}
	if total != 1 {
		t.Fatalf("tx count = %d, want 1", total)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	props, err := s.ListCollectionProperties(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(props) != 1 || props[0].ExternalID != 9102 {
		t.Fatalf("membership = %+v, want only replacement", props)
	}
}
