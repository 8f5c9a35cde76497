// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"orbit/internal/database"
	"orbit/internal/models"
	"orbit/internal/slug"
	"orbit/internal/store"
)

// ListOptions filters GetAllContent.
type ListOptions = store.ListOptions

// FindContent returns the item of typ with slug, or nil if there is none.
func (m *Manager) FindContent(ctx context.Context, typ, s string) (*models.Content, error) {
	if !m.registry.Has(typ) {
		return nil, &UnknownTypeError{Type: typ}
	}
	return m.contents.FindByTypeAndSlug(ctx, typ, s)
}

// FindContentByID returns the item with id, or nil if there is none.
func (m *Manager) FindContentByID(ctx context.Context, id int64) (*models.Content, error) {
	return m.contents.FindByID(ctx, id)
}

// GetAllContent lists content newest first.
func (m *Manager) GetAllContent(ctx context.Context, opts ListOptions) ([]models.Content, error) {
	if opts.Type != "" && !m.registry.Has(opts.Type) {
		return nil, &UnknownTypeError{Type: opts.Type}
	}
	return m.contents.FindAll(ctx, opts)
}

// GetFeaturedContent lists published featured content of typ, or of every
// type when typ is empty.
func (m *Manager) GetFeaturedContent(ctx context.Context, typ string, limit uint64) ([]models.Content, error) {
	if typ != "" && !m.registry.Has(typ) {
		return nil, &UnknownTypeError{Type: typ}
	}
	return m.contents.FindFeatured(ctx, typ, limit)
}

// GetContentByCategory lists the content of a category. With
// includeDescendants it also covers every subcategory.
func (m *Manager) GetContentByCategory(ctx context.Context, categoryID int64, includeDescendants, publishedOnly bool) ([]models.Content, error) {
	if includeDescendants {
		return m.contents.FindInCategoryTree(ctx, categoryID, publishedOnly)
	}
	return m.contents.FindByCategory(ctx, categoryID, publishedOnly)
}

// GetContentByTag lists the content carrying the tag with tagSlug. An
// unknown tag yields an empty list.
func (m *Manager) GetContentByTag(ctx context.Context, tagSlug string, publishedOnly bool) ([]models.Content, error) {
	t, err := m.tags.FindBySlug(ctx, tagSlug)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []models.Content{}, nil
	}
	return m.contents.FindByTag(ctx, t.ID, publishedOnly)
}

// Categories lists categories ordered by sort order and name.
func (m *Manager) Categories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return m.categories.FindAll(ctx, activeOnly)
}

// CategoryTree returns the categories nested under their parents.
func (m *Manager) CategoryTree(ctx context.Context) ([]models.Category, error) {
	return m.categories.GetTree(ctx)
}

// FlatCategories returns the categories in depth-first display order with
// Depth set.
func (m *Manager) FlatCategories(ctx context.Context) ([]models.Category, error) {
	return m.categories.FlatTree(ctx)
}

// CategoryDetail is a category with its place in the hierarchy.
type CategoryDetail struct {
	models.Category
	Ancestors []models.Category          `json:"ancestors"`
	Children  []models.Category          `json:"children"`
	Hierarchy []models.CategoryHierarchy `json:"hierarchy"`
}

// CategoryDetail returns the category with slug together with its
// ancestors (root first), direct children and closure rows, or nil.
func (m *Manager) CategoryDetail(ctx context.Context, s string) (*CategoryDetail, error) {
	cat, err := m.categories.FindBySlug(ctx, s)
	if err != nil || cat == nil {
		return nil, err
	}
	d := &CategoryDetail{Category: *cat}
	if d.Ancestors, err = m.categories.FindAncestors(ctx, cat.ID); err != nil {
		return nil, err
	}
	if d.Children, err = m.categories.FindChildren(ctx, cat.ID); err != nil {
		return nil, err
	}
	if d.Hierarchy, err = m.categories.Hierarchy(ctx, cat.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// CountContent returns the number of items of every configured type.
func (m *Manager) CountContent(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(m.registry.Types()))
	for _, typ := range m.registry.Types() {
		n, err := m.contents.CountByType(ctx, typ)
		if err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, nil
}

// FindCategory returns the category with id, or nil.
func (m *Manager) FindCategory(ctx context.Context, id int64) (*models.Category, error) {
	return m.categories.FindByID(ctx, id)
}

// FindCategoryBySlug returns the category with slug, or nil.
func (m *Manager) FindCategoryBySlug(ctx context.Context, s string) (*models.Category, error) {
	return m.categories.FindBySlug(ctx, s)
}

// SaveCategory creates or updates a category. An empty slug is derived
// from the name.
func (m *Manager) SaveCategory(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Name)
	}
	if !slug.Valid(c.Slug) {
		return &ValidationError{Field: "slug", Msg: "is not a valid slug"}
	}

	err := m.categories.Save(ctx, c)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCycle):
		return &ValidationError{Field: "parent_id", Msg: err.Error()}
	case errors.Is(err, store.ErrParentNotFound):
		return &ValidationError{Field: "parent_id", Msg: err.Error()}
	case errors.Is(err, store.ErrCategoryNotFound):
		return fmt.Errorf("category %d: %w", c.ID, ErrNotFound)
	case database.IsDuplicate(err):
		return &SlugConflictError{Type: "category", Slug: c.Slug}
	default:
		return err
	}
}

// DeleteCategory removes a category. Its children become roots and its
// content is left uncategorised.
func (m *Manager) DeleteCategory(ctx context.Context, id int64) error {
	return m.categories.Delete(ctx, id)
}

// CategoryOrder places one category under a parent at a sort position.
type CategoryOrder = store.ReorderItem

// ReorderCategories moves several categories at once. An unknown id or
// parent, or a move that would create a cycle, rejects the whole batch.
func (m *Manager) ReorderCategories(ctx context.Context, items []CategoryOrder) error {
	err := m.categories.Reorder(ctx, items)
	switch {
	case errors.Is(err, store.ErrCycle), errors.Is(err, store.ErrParentNotFound):
		return &ValidationError{Field: "parent_id", Msg: err.Error()}
	case errors.Is(err, store.ErrCategoryNotFound):
		return &ValidationError{Field: "id", Msg: err.Error()}
	default:
		return err
	}
}

// Tags lists every tag with its usage count.
func (m *Manager) Tags(ctx context.Context) ([]models.Tag, error) {
	return m.tags.FindAll(ctx)
}

// FindTagBySlug returns the tag with slug, or nil.
func (m *Manager) FindTagBySlug(ctx context.Context, s string) (*models.Tag, error) {
	return m.tags.FindBySlug(ctx, s)
}
