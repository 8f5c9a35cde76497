// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// SearchResult is one hit from the search index. It is not a hydrated
// Content; callers format it directly.
type SearchResult struct {
	ID          int64      `json:"id" db:"id"`
	Type        string     `json:"type" db:"type"`
	Slug        string     `json:"slug" db:"slug"`
	Title       string     `json:"title" db:"title"`
	Snippet     string     `json:"snippet,omitempty" db:"snippet"`
	Rank        float64    `json:"rank" db:"rank"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	// Fallback is set when the substring path produced the result.
	Fallback bool `json:"fallback,omitempty" db:"-"`
}
