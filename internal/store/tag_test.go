package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
	"orbit/internal/models"
)

// contentTags loads the tags joined onto a content row.
func contentTags(t *testing.T, db *sqlx.DB, id int64) []models.Tag {
	t.Helper()
	c, err := NewContentStore(db).FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if c == nil {
		t.Fatalf("content %d not found", id)
	}
	return c.Tags
}

func TestTagFindOrCreate(t *testing.T) {
	db := testDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	first, err := s.FindOrCreate(ctx, "  Machine Learning ")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if first.Slug != "machine-learning" || first.Name != "Machine Learning" {
		t.Errorf("created tag: %+v", first)
	}

	second, err := s.FindOrCreate(ctx, "machine learning")
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same tag, got %d and %d", first.ID, second.ID)
	}

	if _, err := s.FindOrCreate(ctx, "!!!"); err == nil {
		t.Error("expected error for a name without usable characters")
	}
}

func TestTagDuplicateSlug(t *testing.T) {
	db := testDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	if err := s.Save(ctx, &models.Tag{Name: "Go", Slug: "go"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	err := s.Save(ctx, &models.Tag{Name: "Golang", Slug: "go"})
	if !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("duplicate: got %v, want ErrDuplicate", err)
	}
}

func TestTagSyncAndUsageCounts(t *testing.T) {
	db := testDB(t)
	tags := NewTagStore(db)
	content := NewContentStore(db)
	ctx := context.Background()

	one := newContent("post", "one")
	two := newContent("post", "two")
	for _, c := range []*models.Content{one, two} {
		if err := content.Save(ctx, c); err != nil {
			t.Fatalf("save content: %v", err)
		}
	}

	goTag, _ := tags.FindOrCreate(ctx, "Go")
	sqlTag, _ := tags.FindOrCreate(ctx, "SQL")

	if err := tags.SyncContentTags(ctx, one.ID, []int64{goTag.ID, sqlTag.ID, goTag.ID}); err != nil {
		t.Fatalf("SyncContentTags one: %v", err)
	}
	if err := tags.SyncContentTags(ctx, two.ID, []int64{goTag.ID}); err != nil {
		t.Fatalf("SyncContentTags two: %v", err)
	}

	all, err := tags.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	counts := map[string]int{}
	for _, tg := range all {
		counts[tg.Slug] = tg.UsageCount
	}
	if counts["go"] != 2 || counts["sql"] != 1 {
		t.Errorf("usage counts: %v", counts)
	}

	// Replacing the set drops old links.
	if err := tags.SyncContentTags(ctx, one.ID, []int64{sqlTag.ID}); err != nil {
		t.Fatalf("SyncContentTags replace: %v", err)
	}
	onTags := contentTags(t, db, one.ID)
	if len(onTags) != 1 || onTags[0].Slug != "sql" {
		t.Errorf("tags after replace: %+v", onTags)
	}

	if err := tags.SyncContentTags(ctx, one.ID, nil); err != nil {
		t.Fatalf("SyncContentTags clear: %v", err)
	}
	onTags = contentTags(t, db, one.ID)
	if len(onTags) != 0 {
		t.Errorf("expected no tags, got %d", len(onTags))
	}
}

func TestTagSyncRollsBack(t *testing.T) {
	db := testDB(t)
	tags := NewTagStore(db)
	content := NewContentStore(db)
	ctx := context.Background()

	c := newContent("post", "rollback")
	if err := content.Save(ctx, c); err != nil {
		t.Fatalf("save content: %v", err)
	}
	goTag, _ := tags.FindOrCreate(ctx, "Go")
	if err := tags.SyncContentTags(ctx, c.ID, []int64{goTag.ID}); err != nil {
		t.Fatalf("SyncContentTags: %v", err)
	}

	// Tag 9999 violates the foreign key, so the whole sync is undone.
	if err := tags.SyncContentTags(ctx, c.ID, []int64{9999}); err == nil {
		t.Fatal("expected foreign key failure")
	}

	onTags := contentTags(t, db, c.ID)
	if len(onTags) != 1 || onTags[0].ID != goTag.ID {
		t.Errorf("tags after failed sync: %+v", onTags)
	}
}

func TestTagDelete(t *testing.T) {
	db := testDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	tg, err := s.FindOrCreate(ctx, "Temp")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if err := s.Delete(ctx, tg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	found, err := s.FindByID(ctx, tg.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found != nil {
		t.Error("expected tag to be deleted")
	}
}
