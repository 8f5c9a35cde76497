// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Category is a node in the single category tree.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ParentID    *int64    `json:"parent_id"`
	Color       string    `json:"color,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	SortOrder   int       `json:"sort_order"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Virtual fields populated by store methods.
	Path         string     `json:"path,omitempty"`
	Depth        int        `json:"depth"`
	ContentCount int        `json:"content_count"`
	Children     []Category `json:"children,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryHierarchy is one closure-table row: AncestorID is the category
// itself (depth 0) or one of its ancestors. Path is the materialized path of
// CategoryID.
type CategoryHierarchy struct {
	CategoryID int64  `json:"category_id" db:"category_id"`
	AncestorID int64  `json:"ancestor_id" db:"ancestor_id"`
	Depth      int    `json:"depth" db:"depth"`
	Path       string `json:"path" db:"path"`
}
