// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// seedCategory is a root category inserted into an empty database.
type seedCategory struct {
	name, slug, description, color, icon string
	sortOrder                            int
}

var defaultCategories = []seedCategory{
	{"General", "general", "Uncategorised content", "#6b7280", "folder", 0},
	{"Documentation", "documentation", "Guides and reference", "#2563eb", "book", 10},
}

// Seed populates an empty database with the default root categories and
// their self rows in the hierarchy table. It does nothing when any category
// already exists.
func Seed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM categories"); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	now := time.Now().UTC()
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, c := range defaultCategories {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO categories (name, slug, description, color, icon, sort_order, active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			`, c.name, c.slug, c.description, c.color, c.icon, c.sortOrder, now, now)
			if err != nil {
				return fmt.Errorf("seed insert category %s: %w", c.slug, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("seed category id: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO category_hierarchy (category_id, ancestor_id, depth, path)
				VALUES (?, ?, 0, ?)
			`, id, id, "/"+c.slug); err != nil {
				return fmt.Errorf("seed hierarchy %s: %w", c.slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("database seeded with default categories", "count", len(defaultCategories))
	return nil
}
