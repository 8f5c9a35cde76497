// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"orbit/internal/database"
	"orbit/internal/filedriver"
	"orbit/internal/models"
	"orbit/internal/slug"
)

// maxSlugAttempts bounds the retries when a concurrent writer takes the
// slug between the availability check and the insert.
const maxSlugAttempts = 5

// Front-matter keys the manager writes and reads back itself. They never
// appear in the stored meta map.
const (
	keyTitle     = "title"
	keyPublished = "published"
	keyFeatured  = "featured"
	keyTags      = "tags"
	keyCategory  = "category"
)

var reservedKeys = []string{keyTitle, keyPublished, keyFeatured, keyTags, keyCategory}

// CreateInput holds the fields of a new content item. Published defaults
// to false.
type CreateInput struct {
	Title       string
	Slug        string
	Body        string
	Meta        map[string]any
	Published   bool
	Featured    bool
	CategoryID  *int64
	Tags        []string
	PublishedAt *time.Time
}

// UpdateInput is a partial update: nil fields are left unchanged.
type UpdateInput struct {
	Title         *string
	Slug          *string
	Body          *string
	Meta          map[string]any
	Published     *bool
	Featured      *bool
	CategoryID    *int64
	ClearCategory bool
	Tags          *[]string
	PublishedAt   *time.Time
}

// userMeta copies meta without the reserved keys.
func userMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	for _, k := range reservedKeys {
		delete(out, k)
	}
	return out
}

// document builds the file representation of c.
func (m *Manager) document(ctx context.Context, c *models.Content, body string) (*filedriver.Document, error) {
	meta := userMeta(c.Meta)
	meta[keyTitle] = c.Title
	meta[keyPublished] = c.Published
	meta[keyFeatured] = c.Featured
	if names := c.TagNames(); len(names) > 0 {
		meta[keyTags] = strings.Join(names, ", ")
	}
	if c.CategoryID != nil {
		cat, err := m.categories.FindByID(ctx, *c.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			meta[keyCategory] = cat.Slug
		}
	}
	return &filedriver.Document{Meta: meta, Content: body}, nil
}

// checkCategory rejects a reference to a missing category.
func (m *Manager) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	cat, err := m.categories.FindByID(ctx, *id)
	if err != nil {
		return err
	}
	if cat == nil {
		return &ValidationError{Field: "category_id", Msg: fmt.Sprintf("category %d does not exist", *id)}
	}
	return nil
}

// resolveTags finds or creates the tags named in names, skipping blanks
// and duplicates.
func (m *Manager) resolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := m.tags.FindOrCreate(ctx, name)
		if err != nil {
			return nil, &ValidationError{Field: "tags", Msg: err.Error()}
		}
		if slices.ContainsFunc(tags, func(have models.Tag) bool { return have.ID == t.ID }) {
			continue
		}
		tags = append(tags, *t)
	}
	return tags, nil
}

// linkTags replaces the tag links of c with tags and sets c.Tags.
func (m *Manager) linkTags(ctx context.Context, c *models.Content, tags []models.Tag) error {
	ids := make([]int64, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	if err := m.tags.SyncContentTags(ctx, c.ID, ids); err != nil {
		return err
	}
	c.Tags = tags
	return nil
}

// setTags resolves tag names, links them to c and sets c.Tags.
func (m *Manager) setTags(ctx context.Context, c *models.Content, names []string) error {
	tags, err := m.resolveTags(ctx, names)
	if err != nil {
		return err
	}
	return m.linkTags(ctx, c, tags)
}

// CreateContent validates and stores a new content item. The row is
// inserted before its tags and body file; a failed tag sync or file write
// removes what was already stored. Indexing comes last.
func (m *Manager) CreateContent(ctx context.Context, typ string, in CreateInput) (c *models.Content, err error) {
	ctx, span := m.startSpan(ctx, "CreateContent", attribute.String("content.type", typ))
	defer func() { endSpan(span, err) }()

	d, ok := m.registry.Driver(typ)
	if !ok {
		return nil, &UnknownTypeError{Type: typ}
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Msg: "must not be empty"}
	}

	base := strings.TrimSpace(in.Slug)
	explicit := base != ""
	if explicit {
		if !slug.Valid(base) {
			return nil, &ValidationError{Field: "slug", Msg: fmt.Sprintf("%q is not a valid slug", base)}
		}
	} else {
		base = slug.Generate(title)
		if base == "" {
			return nil, &ValidationError{Field: "title", Msg: "has no characters usable in a slug"}
		}
	}
	if err := m.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	body := d.Normalize(in.Body)
	hash := hashBody(body)
	if explicit {
		existing, err := m.contents.FindByTypeAndSlug(ctx, typ, base)
		if err != nil {
			return nil, err
		}
		// A repeated request returns what the first one stored.
		if existing != nil && existing.Title == title && existing.ContentHash == hash {
			return existing, nil
		}
	}

	c = &models.Content{
		Type:        typ,
		Title:       title,
		Meta:        userMeta(in.Meta),
		ContentHash: hash,
		Published:   in.Published,
		Featured:    in.Featured,
		CategoryID:  in.CategoryID,
		PublishedAt: in.PublishedAt,
	}
	if err := m.insertWithUniqueSlug(ctx, c, base); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("content.id", c.ID), attribute.String("content.slug", c.Slug))

	undo := func() {
		if err := d.Delete(c.FilePath); err != nil {
			slog.Warn("remove content file after failed create", "path", c.FilePath, "error", err)
		}
		if err := m.contents.Delete(ctx, c); err != nil {
			slog.Error("remove content row after failed create", "id", c.ID, "error", err)
		}
	}

	// Tags first so the file records them.
	if len(in.Tags) > 0 {
		if err := m.setTags(ctx, c, in.Tags); err != nil {
			undo()
			return nil, fmt.Errorf("sync content tags: %w", err)
		}
	}
	doc, err := m.document(ctx, c, body)
	if err != nil {
		undo()
		return nil, err
	}
	if err := d.Write(c.FilePath, doc); err != nil {
		undo()
		return nil, &FileError{Op: "write", Path: c.FilePath, Err: err}
	}

	c.RawBody = body
	m.index.IndexContent(ctx, c)
	slog.Info("content created", "id", c.ID, "type", c.Type, "slug", c.Slug, "status", c.Status())
	return c, nil
}

// insertWithUniqueSlug picks the first free slug derived from base and
// inserts c, retrying when another writer wins the race for it.
func (m *Manager) insertWithUniqueSlug(ctx context.Context, c *models.Content, base string) error {
	taken := func(candidate string) (bool, error) {
		return m.contents.SlugExists(ctx, c.Type, candidate)
	}
	for attempt := 1; ; attempt++ {
		s, err := slug.Unique(base, taken)
		if err != nil {
			return err
		}
		c.Slug = s
		if c.FilePath, err = m.registry.FilePath(c.Type, s); err != nil {
			return &UnknownTypeError{Type: c.Type}
		}

		err = m.contents.Save(ctx, c)
		if err == nil {
			return nil
		}
		if !database.IsDuplicate(err) {
			return err
		}
		if attempt == maxSlugAttempts {
			return &SlugConflictError{Type: c.Type, Slug: s}
		}
		slog.Debug("slug taken concurrently, retrying", "type", c.Type, "slug", s, "attempt", attempt)
	}
}

// UpdateContent applies a partial update. Tags are resolved before
// anything is stored. A slug change moves the body file, then the row, the
// tag links and the file are written in that order; a failure at any step
// restores the previous row, links and file location. An update that keeps
// the body fails with ErrBodyUnavailable when the body file is missing.
// The search entry is refreshed when anything it derives from changed.
// The stored item is returned; c itself is not modified.
func (m *Manager) UpdateContent(ctx context.Context, c *models.Content, in UpdateInput) (updated *models.Content, err error) {
	ctx, span := m.startSpan(ctx, "UpdateContent",
		attribute.Int64("content.id", c.ID), attribute.String("content.type", c.Type))
	defer func() { endSpan(span, err) }()

	d, err := m.driverFor(c)
	if err != nil {
		return nil, err
	}

	next := *c
	next.Meta = userMeta(c.Meta)
	next.Tags = append([]models.Tag(nil), c.Tags...)
	reindex := false

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Msg: "must not be empty"}
		}
		reindex = reindex || title != c.Title
		next.Title = title
	}
	if in.Slug != nil {
		if s := strings.TrimSpace(*in.Slug); s != c.Slug {
			if !slug.Valid(s) {
				return nil, &ValidationError{Field: "slug", Msg: fmt.Sprintf("%q is not a valid slug", s)}
			}
			exists, err := m.contents.SlugExists(ctx, c.Type, s)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, &SlugConflictError{Type: c.Type, Slug: s}
			}
			next.Slug = s
			if next.FilePath, err = m.registry.FilePath(c.Type, s); err != nil {
				return nil, &UnknownTypeError{Type: c.Type}
			}
		}
	}
	if in.Meta != nil {
		next.Meta = userMeta(in.Meta)
		reindex = true
	}
	if in.Published != nil {
		next.Published = *in.Published
		reindex = reindex || next.Published != c.Published
	}
	if in.Featured != nil {
		next.Featured = *in.Featured
	}
	if in.PublishedAt != nil {
		next.PublishedAt = in.PublishedAt
	}
	switch {
	case in.ClearCategory:
		next.CategoryID = nil
		next.Category = nil
	case in.CategoryID != nil:
		if err := m.checkCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		next.CategoryID = in.CategoryID
		next.Category = nil
	}

	var tags []models.Tag
	if in.Tags != nil {
		if tags, err = m.resolveTags(ctx, *in.Tags); err != nil {
			return nil, err
		}
		reindex = true
	}

	old, err := d.Read(c.FilePath)
	if err != nil && !errors.Is(err, filedriver.ErrNotExist) {
		return nil, &FileError{Op: "read", Path: c.FilePath, Err: err}
	}
	var body string
	switch {
	case in.Body != nil:
		body = d.Normalize(*in.Body)
		next.ContentHash = hashBody(body)
		reindex = reindex || next.ContentHash != c.ContentHash
	case old == nil:
		return nil, fmt.Errorf("content %d: %w", c.ID, ErrBodyUnavailable)
	default:
		body = old.Content
	}

	moved := false
	if next.FilePath != c.FilePath && old != nil {
		if err := filedriver.Move(c.FilePath, next.FilePath); err != nil {
			return nil, &FileError{Op: "move", Path: next.FilePath, Err: err}
		}
		moved = true
	}
	moveBack := func() {
		if !moved {
			return
		}
		if err := filedriver.Move(next.FilePath, c.FilePath); err != nil {
			slog.Error("move content file back after failed update", "path", c.FilePath, "error", err)
		}
	}

	if err := m.contents.Save(ctx, &next); err != nil {
		moveBack()
		if database.IsDuplicate(err) {
			return nil, &SlugConflictError{Type: next.Type, Slug: next.Slug}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("content %d: %w", c.ID, ErrNotFound)
		}
		return nil, err
	}

	undo := func() {
		prev := *c
		if err := m.contents.Save(ctx, &prev); err != nil {
			slog.Error("restore content row after failed update", "id", c.ID, "error", err)
		}
		if in.Tags != nil {
			if err := m.linkTags(ctx, &prev, c.Tags); err != nil {
				slog.Error("restore content tags after failed update", "id", c.ID, "error", err)
			}
		}
		if old == nil {
			if err := d.Delete(next.FilePath); err != nil {
				slog.Warn("remove content file after failed update", "path", next.FilePath, "error", err)
			}
			return
		}
		moveBack()
		if err := d.Write(c.FilePath, old); err != nil {
			slog.Error("restore content file after failed update", "path", c.FilePath, "error", err)
		}
	}

	if in.Tags != nil {
		if err := m.linkTags(ctx, &next, tags); err != nil {
			undo()
			return nil, fmt.Errorf("sync content tags: %w", err)
		}
	}

	doc, err := m.document(ctx, &next, body)
	if err != nil {
		undo()
		return nil, err
	}
	if err := d.Write(next.FilePath, doc); err != nil {
		undo()
		return nil, &FileError{Op: "write", Path: next.FilePath, Err: err}
	}
	if reindex || next.Slug != c.Slug {
		next.RawBody = body
		m.index.IndexContent(ctx, &next)
	}
	if next.ContentHash != c.ContentHash {
		m.cache.Invalidate(ctx, c.ContentHash)
	}

	slog.Info("content updated", "id", next.ID, "type", next.Type, "slug", next.Slug, "status", next.Status())
	return m.contents.FindByID(ctx, next.ID)
}

// DeleteContent removes the body file, the search entry and the row, in
// that order. Deleting content that is already gone is a no-op.
func (m *Manager) DeleteContent(ctx context.Context, c *models.Content) (err error) {
	ctx, span := m.startSpan(ctx, "DeleteContent",
		attribute.Int64("content.id", c.ID), attribute.String("content.type", c.Type))
	defer func() { endSpan(span, err) }()

	d, err := m.driverFor(c)
	if err != nil {
		return err
	}
	if err := d.Delete(c.FilePath); err != nil {
		return &FileError{Op: "delete", Path: c.FilePath, Err: err}
	}
	m.index.RemoveFromIndex(ctx, c)
	if err := m.contents.Delete(ctx, c); err != nil {
		return err
	}
	m.cache.Invalidate(ctx, c.ContentHash)

	slog.Info("content deleted", "id", c.ID, "type", c.Type, "slug", c.Slug)
	return nil
}

// DeleteContentByID deletes the item with id if it exists.
func (m *Manager) DeleteContentByID(ctx context.Context, id int64) error {
	c, err := m.contents.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	return m.DeleteContent(ctx, c)
}
