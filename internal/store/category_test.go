// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"orbit/internal/models"
)

// saveCategory creates a category under parent (nil for a root).
func saveCategory(t *testing.T, s *CategoryStore, name, slug string, parent *models.Category) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug, Active: true}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	if err := s.Save(context.Background(), c); err != nil {
		t.Fatalf("save category %s: %v", slug, err)
	}
	return c
}

func TestCategoryHierarchyChain(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	a := saveCategory(t, s, "A", "a", nil)
	b := saveCategory(t, s, "B", "b", a)
	c := saveCategory(t, s, "C", "c", b)

	rows, err := s.Hierarchy(ctx, c.ID)
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	want := []struct {
		ancestor int64
		depth    int
	}{
		{c.ID, 0},
		{b.ID, 1},
		{a.ID, 2},
	}
	if len(rows) != len(want) {
		t.Fatalf("hierarchy rows: got %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].AncestorID != w.ancestor || rows[i].Depth != w.depth {
			t.Errorf("row %d: got (ancestor %d, depth %d), want (%d, %d)",
				i, rows[i].AncestorID, rows[i].Depth, w.ancestor, w.depth)
		}
		if rows[i].Path != "/a/b/c" {
			t.Errorf("row %d path: got %q, want %q", i, rows[i].Path, "/a/b/c")
		}
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Path != "/a/b/c" || found.Depth != 2 {
		t.Errorf("derived fields: path %q depth %d", found.Path, found.Depth)
	}

	ancestors, err := s.FindAncestors(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindAncestors: %v", err)
	}
	if len(ancestors) != 2 || ancestors[0].Slug != "a" || ancestors[1].Slug != "b" {
		t.Errorf("ancestors: got %+v", ancestors)
	}

	contents := NewContentStore(db)
	for _, cat := range []*models.Category{a, c} {
		item := newContent("docs", "in-"+cat.Slug)
		item.CategoryID = &cat.ID
		if err := contents.Save(ctx, item); err != nil {
			t.Fatalf("save content: %v", err)
		}
	}
	inTree, err := contents.FindInCategoryTree(ctx, a.ID, false)
	if err != nil {
		t.Fatalf("FindInCategoryTree: %v", err)
	}
	if len(inTree) != 2 {
		t.Errorf("content under a: got %d, want 2", len(inTree))
	}
	inTree, err = contents.FindInCategoryTree(ctx, b.ID, false)
	if err != nil {
		t.Fatalf("FindInCategoryTree: %v", err)
	}
	if len(inTree) != 1 || inTree[0].Slug != "in-c" {
		t.Errorf("content under b: got %+v", inTree)
	}
}

func TestCategoryRenameRebuildsPaths(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	docs := saveCategory(t, s, "Docs", "docs", nil)
	sk := saveCategory(t, s, "Slovak", "sk", docs)

	docs.Slug = "documentation"
	if err := s.Save(ctx, docs); err != nil {
		t.Fatalf("rename: %v", err)
	}

	found, err := s.FindByID(ctx, sk.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Path != "/documentation/sk" {
		t.Errorf("path after rename: got %q", found.Path)
	}
}

func TestCategoryCycleRejected(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	a := saveCategory(t, s, "A", "a", nil)
	b := saveCategory(t, s, "B", "b", a)
	c := saveCategory(t, s, "C", "c", b)

	a.ParentID = &c.ID
	if err := s.Save(ctx, a); !errors.Is(err, ErrCycle) {
		t.Errorf("cycle: got %v, want ErrCycle", err)
	}

	self := b.ID
	b.ParentID = &self
	if err := s.Save(ctx, b); !errors.Is(err, ErrCycle) {
		t.Errorf("self parent: got %v, want ErrCycle", err)
	}

	missing := int64(9999)
	orphan := &models.Category{Name: "X", Slug: "x", ParentID: &missing}
	if err := s.Save(ctx, orphan); !errors.Is(err, ErrParentNotFound) {
		t.Errorf("missing parent: got %v, want ErrParentNotFound", err)
	}
}

func TestCategoryDeleteOrphansChildren(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	content := NewContentStore(db)
	ctx := context.Background()

	a := saveCategory(t, s, "A", "a", nil)
	b := saveCategory(t, s, "B", "b", a)
	c := saveCategory(t, s, "C", "c", b)

	item := newContent("post", "in-b")
	item.CategoryID = &b.ID
	if err := content.Save(ctx, item); err != nil {
		t.Fatalf("save content: %v", err)
	}

	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	found, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.ParentID != nil {
		t.Errorf("child should be a root, parent = %d", *found.ParentID)
	}
	if found.Path != "/c" || found.Depth != 0 {
		t.Errorf("child hierarchy: path %q depth %d", found.Path, found.Depth)
	}

	reloaded, err := content.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("content FindByID: %v", err)
	}
	if reloaded.CategoryID != nil {
		t.Error("content category should be cleared")
	}

	gone, err := s.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID deleted: %v", err)
	}
	if gone != nil {
		t.Error("expected deleted category to be gone")
	}
}

func TestCategoryTree(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	docs := saveCategory(t, s, "Docs", "docs", nil)
	blog := saveCategory(t, s, "Blog", "blog", nil)
	saveCategory(t, s, "Install", "install", docs)
	api := saveCategory(t, s, "API", "api", docs)
	saveCategory(t, s, "Auth", "auth", api)

	tree, err := s.GetTree(ctx)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("roots: got %d, want 2", len(tree))
	}
	// sort_order ties break on name
	if tree[0].ID != blog.ID || tree[1].ID != docs.ID {
		t.Errorf("root order: got %q, %q", tree[0].Slug, tree[1].Slug)
	}
	if len(tree[1].Children) != 2 {
		t.Fatalf("docs children: got %d, want 2", len(tree[1].Children))
	}
	if tree[1].Children[0].Slug != "api" || len(tree[1].Children[0].Children) != 1 {
		t.Errorf("api subtree: %+v", tree[1].Children[0])
	}

	children, err := s.FindChildren(ctx, docs.ID)
	if err != nil {
		t.Fatalf("FindChildren: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("FindChildren: got %d, want 2", len(children))
	}

	flat, err := s.FlatTree(ctx)
	if err != nil {
		t.Fatalf("FlatTree: %v", err)
	}
	wantOrder := []string{"blog", "docs", "api", "auth", "install"}
	if len(flat) != len(wantOrder) {
		t.Fatalf("FlatTree: got %d, want %d", len(flat), len(wantOrder))
	}
	for i, sl := range wantOrder {
		if flat[i].Slug != sl {
			t.Errorf("FlatTree[%d]: got %q, want %q", i, flat[i].Slug, sl)
		}
	}
}

func TestCategoryFindAllActiveOnly(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	saveCategory(t, s, "Visible", "visible", nil)
	hidden := &models.Category{Name: "Hidden", Slug: "hidden", Active: false}
	if err := s.Save(ctx, hidden); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := s.FindAll(ctx, false)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	active, err := s.FindAll(ctx, true)
	if err != nil {
		t.Fatalf("FindAll active: %v", err)
	}
	if len(all) != 2 || len(active) != 1 || active[0].Slug != "visible" {
		t.Errorf("all=%d active=%d", len(all), len(active))
	}

	bySlug, err := s.FindBySlug(ctx, "hidden")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if bySlug == nil || bySlug.Active {
		t.Errorf("FindBySlug: got %+v", bySlug)
	}
}

func TestCategoryReorder(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	a := saveCategory(t, s, "A", "a", nil)
	b := saveCategory(t, s, "B", "b", nil)

	err := s.Reorder(ctx, []ReorderItem{
		{ID: b.ID, ParentID: &a.ID, Order: 1},
		{ID: a.ID, Order: 0},
	})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	found, err := s.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Path != "/a/b" || found.SortOrder != 1 {
		t.Errorf("after reorder: path %q order %d", found.Path, found.SortOrder)
	}
}

func TestCategoryReorderRejectsUnknownIDs(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	a := saveCategory(t, s, "A", "a", nil)
	b := saveCategory(t, s, "B", "b", nil)
	missing := int64(999)

	tests := []struct {
		name  string
		items []ReorderItem
		want  error
	}{
		{"unknown parent", []ReorderItem{{ID: a.ID, Order: 3}, {ID: b.ID, ParentID: &missing}}, ErrParentNotFound},
		{"unknown category", []ReorderItem{{ID: a.ID, Order: 3}, {ID: missing, ParentID: &a.ID}}, ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Reorder(ctx, tt.items); !errors.Is(err, tt.want) {
				t.Fatalf("Reorder: got %v, want %v", err, tt.want)
			}
			found, err := s.FindByID(ctx, a.ID)
			if err != nil {
				t.Fatalf("FindByID: %v", err)
			}
			if found.SortOrder != 0 {
				t.Errorf("batch was partly applied: order %d", found.SortOrder)
			}
		})
	}
}

func TestCategorySaveMissing(t *testing.T) {
	s := NewCategoryStore(testDB(t))
	ghost := &models.Category{ID: 42, Name: "Ghost", Slug: "ghost"}
	if err := s.Save(context.Background(), ghost); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("Save: got %v, want ErrCategoryNotFound", err)
	}
}
