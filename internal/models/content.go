// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"
)

// Built-in content types. Further types can be added through configuration.
const (
	ContentTypePage = "page"
	ContentTypePost = "post"
	ContentTypeDocs = "docs"
)

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
)

// Content is a unit of publishable material. The body lives in the file at
// FilePath; the row holds the queryable projection. Slug and FilePath are
// only changed together by the content manager.
type Content struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	FilePath    string         `json:"file_path"`
	Meta        map[string]any `json:"meta"`
	ContentHash string         `json:"content_hash"`
	Published   bool           `json:"published"`
	Featured    bool           `json:"featured"`
	CategoryID  *int64         `json:"category_id,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Joined on read paths.
	Category *Category `json:"category,omitempty"`
	Tags     []Tag     `json:"tags,omitempty"`

	// Transient; populated only when the body file is loaded.
	RawBody      string `json:"raw_body,omitempty"`
	RenderedBody string `json:"rendered_body,omitempty"`
}

// Status maps the published flag onto the two-state workflow.
func (c *Content) Status() ContentStatus {
	if c.Published {
		return ContentStatusPublished
	}
	return ContentStatusDraft
}

// MetaString returns a metadata value rendered as a string, or "" when the
// key is absent.
func (c *Content) MetaString(key string) string {
	v, ok := c.Meta[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Keywords returns the "keywords" metadata entry.
func (c *Content) Keywords() string {
	return c.MetaString("keywords")
}

// TagNames returns the names of the attached tags.
func (c *Content) TagNames() []string {
	names := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		names = append(names, t.Name)
	}
	return names
}
