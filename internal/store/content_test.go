package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"orbit/internal/database"
	"orbit/internal/models"
)

func newContent(typ, slug string) *models.Content {
	return &models.Content{
		Type:     typ,
		Slug:     slug,
		Title:    "Title " + slug,
		FilePath: "content/" + typ + "/" + slug + ".md",
		Meta:     map[string]any{"description": "about " + slug},
	}
}

func TestContentStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	c := newContent(models.ContentTypePage, "about-us")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}
	if c.PublishedAt != nil {
		t.Error("expected nil published_at for draft")
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil {
		t.Fatal("expected content, got nil")
	}
	if found.Slug != "about-us" {
		t.Errorf("slug: got %q, want %q", found.Slug, "about-us")
	}
	if found.Meta["description"] != "about about-us" {
		t.Errorf("meta: got %v", found.Meta)
	}
	if found.Published {
		t.Error("expected draft")
	}

	bySlug, err := s.FindByTypeAndSlug(ctx, models.ContentTypePage, "about-us")
	if err != nil {
		t.Fatalf("FindByTypeAndSlug: %v", err)
	}
	if bySlug == nil || bySlug.ID != c.ID {
		t.Errorf("FindByTypeAndSlug: got %+v", bySlug)
	}
}

func TestContentStoreNotFound(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	c, err := s.FindByID(ctx, 999)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil, got %+v", c)
	}

	c, err = s.FindByTypeAndSlug(ctx, "page", "missing")
	if err != nil {
		t.Fatalf("FindByTypeAndSlug: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil, got %+v", c)
	}
}

func TestContentStoreDuplicateSlug(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	if err := s.Save(ctx, newContent("page", "dup")); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	err := s.Save(ctx, newContent("page", "dup"))
	if !errors.Is(err, database.ErrDuplicate) {
		t.Fatalf("second Save: got %v, want ErrDuplicate", err)
	}

	// Same slug under another type is fine.
	if err := s.Save(ctx, newContent("post", "dup")); err != nil {
		t.Fatalf("Save other type: %v", err)
	}

	exists, err := s.SlugExists(ctx, "post", "dup")
	if err != nil {
		t.Fatalf("SlugExists: %v", err)
	}
	if !exists {
		t.Error("expected slug to exist")
	}
}

func TestContentStoreUpdateStampsPublishedAt(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	c := newContent("post", "hello")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c.Published = true
	c.Title = "Hello again"
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.PublishedAt == nil {
		t.Fatal("expected published_at to be stamped")
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !found.Published || found.PublishedAt == nil {
		t.Errorf("published state not persisted: %+v", found)
	}
	if found.Title != "Hello again" {
		t.Errorf("title: got %q", found.Title)
	}
}

func TestContentStoreUpdateMissingRow(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)

	c := newContent("post", "ghost")
	c.ID = 42
	if err := s.Save(context.Background(), c); err == nil {
		t.Error("expected error updating a missing row")
	}
}

func TestContentStoreFindAllOrderingAndFilters(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []struct {
		typ       string
		slug      string
		published bool
		at        time.Time
	}{
		{"post", "oldest", true, base},
		{"post", "middle", false, base.Add(time.Hour)},
		{"post", "newest", true, base.Add(2 * time.Hour)},
		{"page", "page-one", true, base.Add(3 * time.Hour)},
	}
	for _, it := range items {
		c := newContent(it.typ, it.slug)
		c.Published = it.published
		c.CreatedAt = it.at
		if it.published {
			at := it.at
			c.PublishedAt = &at
		}
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save %s: %v", it.slug, err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"page-one", "newest", "middle", "oldest"}},
		{"posts", ListOptions{Type: "post"}, []string{"newest", "middle", "oldest"}},
		{"published posts", ListOptions{Type: "post", PublishedOnly: true}, []string{"newest", "oldest"}},
		{"limit", ListOptions{Limit: 2}, []string{"page-one", "newest"}},
		{"offset", ListOptions{Limit: 2, Offset: 2}, []string{"middle", "oldest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindAll(ctx, tt.opts)
			if err != nil {
				t.Fatalf("FindAll: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FindAll: got %d items, want %d", len(got), len(tt.want))
			}
			for i, slug := range tt.want {
				if got[i].Slug != slug {
					t.Errorf("item %d: got %q, want %q", i, got[i].Slug, slug)
				}
			}
		})
	}
}

func TestContentStoreFeatured(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	for _, it := range []struct {
		slug                string
		featured, published bool
	}{
		{"a", true, true},
		{"b", true, false},
		{"c", false, true},
		{"d", true, true},
	} {
		c := newContent("post", it.slug)
		c.Featured = it.featured
		c.Published = it.published
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.FindFeatured(ctx, "post", 0)
	if err != nil {
		t.Fatalf("FindFeatured: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("featured: got %d, want 2", len(got))
	}
	if got[0].Slug != "d" || got[1].Slug != "a" {
		t.Errorf("featured order: got %q, %q", got[0].Slug, got[1].Slug)
	}

	got, err = s.FindFeatured(ctx, "", 1)
	if err != nil {
		t.Fatalf("FindFeatured limit: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("featured limit: got %d, want 1", len(got))
	}
}

func TestContentStoreCategoryAndTags(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	cats := NewCategoryStore(db)
	tags := NewTagStore(db)
	ctx := context.Background()

	cat := &models.Category{Name: "Guides", Slug: "guides", Active: true}
	if err := cats.Save(ctx, cat); err != nil {
		t.Fatalf("save category: %v", err)
	}

	c := newContent("docs", "install")
	c.CategoryID = &cat.ID
	c.Published = true
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	draft := newContent("docs", "draft")
	draft.CategoryID = &cat.ID
	if err := s.Save(ctx, draft); err != nil {
		t.Fatalf("Save draft: %v", err)
	}

	goTag, err := tags.FindOrCreate(ctx, "Go")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	dbTag, err := tags.FindOrCreate(ctx, "Databases")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if err := tags.SyncContentTags(ctx, c.ID, []int64{goTag.ID, dbTag.ID}); err != nil {
		t.Fatalf("SyncContentTags: %v", err)
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Category == nil || found.Category.Slug != "guides" {
		t.Errorf("category not joined: %+v", found.Category)
	}
	if len(found.Tags) != 2 || found.Tags[0].Name != "Databases" || found.Tags[1].Name != "Go" {
		t.Errorf("tags: got %+v", found.Tags)
	}

	byCat, err := s.FindByCategory(ctx, cat.ID, true)
	if err != nil {
		t.Fatalf("FindByCategory: %v", err)
	}
	if len(byCat) != 1 || byCat[0].ID != c.ID {
		t.Errorf("FindByCategory published: got %d items", len(byCat))
	}
	byCat, err = s.FindByCategory(ctx, cat.ID, false)
	if err != nil {
		t.Fatalf("FindByCategory: %v", err)
	}
	if len(byCat) != 2 {
		t.Errorf("FindByCategory all: got %d, want 2", len(byCat))
	}

	byTag, err := s.FindByTag(ctx, goTag.ID, true)
	if err != nil {
		t.Fatalf("FindByTag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].ID != c.ID {
		t.Errorf("FindByTag: got %+v", byTag)
	}
}

func TestContentStoreDeleteIsIdempotent(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	c := newContent("page", "gone")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, c); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := s.Delete(ctx, c); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found != nil {
		t.Error("expected content to be deleted")
	}
}

func TestContentStoreCountByType(t *testing.T) {
	db := testDB(t)
	s := NewContentStore(db)
	ctx := context.Background()

	for _, sl := range []string{"b", "a", "c"} {
		if err := s.Save(ctx, newContent("page", sl)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := s.Save(ctx, newContent("post", "a")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := s.CountByType(ctx, "page")
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if n != 3 {
		t.Errorf("CountByType: got %d, want 3", n)
	}
}
