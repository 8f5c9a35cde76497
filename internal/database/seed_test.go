package database

import (
	"context"
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := Seed(ctx, db); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM categories"); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if count != len(defaultCategories) {
		t.Errorf("categories: got %d, want %d", count, len(defaultCategories))
	}

	var path string
	if err := db.Get(&path, `
		SELECT h.path FROM category_hierarchy h
		JOIN categories c ON c.id = h.category_id
		WHERE c.slug = 'documentation' AND h.depth = 0
	`); err != nil {
		t.Fatalf("hierarchy row: %v", err)
	}
	if path != "/documentation" {
		t.Errorf("path: got %q, want %q", path, "/documentation")
	}
}
