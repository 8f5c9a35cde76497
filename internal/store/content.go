// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
	"orbit/internal/models"
)

// ContentStore handles all content-related database operations. It is a
// plain persistence adapter: slug allocation, file paths and search
// indexing belong to the content manager.
type ContentStore struct {
	db *sqlx.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// ListOptions filters content listings. Zero values mean "no filter".
type ListOptions struct {
	Type          string
	PublishedOnly bool
	Limit         uint64
	Offset        uint64
}

// contentRow mirrors a content row joined with its category.
type contentRow struct {
	ID           int64          `db:"id"`
	Type         string         `db:"type"`
	Slug         string         `db:"slug"`
	Title        string         `db:"title"`
	FilePath     string         `db:"file_path"`
	MetaData     string         `db:"meta_data"`
	ContentHash  string         `db:"content_hash"`
	Published    bool           `db:"published"`
	Featured     bool           `db:"featured"`
	CategoryID   sql.NullInt64  `db:"category_id"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	PublishedAt  sql.NullTime   `db:"published_at"`
	CategoryName sql.NullString `db:"category_name"`
	CategorySlug sql.NullString `db:"category_slug"`
}

// hydrate converts a row into a Content entity.
func (r contentRow) hydrate() (models.Content, error) {
	c := models.Content{
		ID:          r.ID,
		Type:        r.Type,
		Slug:        r.Slug,
		Title:       r.Title,
		FilePath:    r.FilePath,
		ContentHash: r.ContentHash,
		Published:   r.Published,
		Featured:    r.Featured,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Meta:        map[string]any{},
	}
	if r.MetaData != "" {
		if err := json.Unmarshal([]byte(r.MetaData), &c.Meta); err != nil {
			return c, fmt.Errorf("decode meta for content %d: %w", r.ID, err)
		}
		if c.Meta == nil {
			c.Meta = map[string]any{}
		}
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		c.CategoryID = &id
		c.Category = &models.Category{ID: id, Name: r.CategoryName.String, Slug: r.CategorySlug.String}
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time
		c.PublishedAt = &t
	}
	return c, nil
}

// selectContent is the base query shared by every read path.
func selectContent() sq.SelectBuilder {
	return sq.Select(
		"c.id", "c.type", "c.slug", "c.title", "c.file_path", "c.meta_data",
		"c.content_hash", "c.published", "c.featured", "c.category_id",
		"c.created_at", "c.updated_at", "c.published_at",
		"cat.name AS category_name", "cat.slug AS category_slug",
	).
		From("content c").
		LeftJoin("categories cat ON cat.id = c.category_id")
}

// newestFirst orders by publish date falling back to creation date.
func newestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("COALESCE(c.published_at, c.created_at) DESC", "c.id DESC")
}

// list runs a content query and attaches tags to every result.
func (s *ContentStore) list(ctx context.Context, b sq.SelectBuilder) ([]models.Content, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build content query: %w", err)
	}

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}

	items := make([]models.Content, 0, len(rows))
	for _, r := range rows {
		c, err := r.hydrate()
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}

	if err := s.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// one runs a query expected to match at most one row. Returns nil if not found.
func (s *ContentStore) one(ctx context.Context, b sq.SelectBuilder) (*models.Content, error) {
	items, err := s.list(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// tagRow is a tag joined with the content it is attached to.
type tagRow struct {
	ContentID   int64     `db:"content_id"`
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// attachTags loads the tags of all items with one query.
func (s *ContentStore) attachTags(ctx context.Context, items []models.Content) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = i
	}

	query, args, err := sq.Select(
		"ct.content_id", "t.id", "t.name", "t.slug", "t.color", "t.description", "t.created_at",
	).
		From("content_tags ct").
		Join("tags t ON t.id = ct.tag_id").
		Where(sq.Eq{"ct.content_id": ids}).
		OrderBy("t.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}

	var rows []tagRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load content tags: %w", err)
	}
	for _, r := range rows {
		i := index[r.ContentID]
		items[i].Tags = append(items[i].Tags, models.Tag{
			ID: r.ID, Name: r.Name, Slug: r.Slug, Color: r.Color,
			Description: r.Description, CreatedAt: r.CreatedAt,
		})
	}
	return nil
}

// FindByID retrieves a content item by its ID. Returns nil if not found.
func (s *ContentStore) FindByID(ctx context.Context, id int64) (*models.Content, error) {
	c, err := s.one(ctx, selectContent().Where(sq.Eq{"c.id": id}))
	if err != nil {
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	return c, nil
}

// FindByTypeAndSlug retrieves a content item regardless of its published
// state. Returns nil if not found.
func (s *ContentStore) FindByTypeAndSlug(ctx context.Context, typ, slug string) (*models.Content, error) {
	c, err := s.one(ctx, selectContent().Where(sq.Eq{"c.type": typ, "c.slug": slug}))
	if err != nil {
		return nil, fmt.Errorf("find content by slug: %w", err)
	}
	return c, nil
}

// FindAll returns content newest first, optionally filtered by type and
// published state.
func (s *ContentStore) FindAll(ctx context.Context, opts ListOptions) ([]models.Content, error) {
	b := selectContent()
	if opts.Type != "" {
		b = b.Where(sq.Eq{"c.type": opts.Type})
	}
	if opts.PublishedOnly {
		b = b.Where(sq.Eq{"c.published": true})
	}
	if opts.Limit > 0 {
		b = b.Limit(opts.Limit).Offset(opts.Offset)
	}
	items, err := s.list(ctx, newestFirst(b))
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// FindFeatured returns published, featured content newest first. An empty
// type matches every type; a zero limit returns everything.
func (s *ContentStore) FindFeatured(ctx context.Context, typ string, limit uint64) ([]models.Content, error) {
	b := selectContent().Where(sq.Eq{"c.featured": true, "c.published": true})
	if typ != "" {
		b = b.Where(sq.Eq{"c.type": typ})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}
	items, err := s.list(ctx, newestFirst(b))
	if err != nil {
		return nil, fmt.Errorf("list featured content: %w", err)
	}
	return items, nil
}

// FindByCategory returns the content assigned to a category.
func (s *ContentStore) FindByCategory(ctx context.Context, categoryID int64, publishedOnly bool) ([]models.Content, error) {
	b := selectContent().Where(sq.Eq{"c.category_id": categoryID})
	if publishedOnly {
		b = b.Where(sq.Eq{"c.published": true})
	}
	items, err := s.list(ctx, newestFirst(b))
	if err != nil {
		return nil, fmt.Errorf("list content by category: %w", err)
	}
	return items, nil
}

// FindInCategoryTree returns the content assigned to a category or any
// of its descendants, resolved through the closure table.
func (s *ContentStore) FindInCategoryTree(ctx context.Context, categoryID int64, publishedOnly bool) ([]models.Content, error) {
	b := selectContent().Where(
		"c.category_id IN (SELECT category_id FROM category_hierarchy WHERE ancestor_id = ?)", categoryID)
	if publishedOnly {
		b = b.Where(sq.Eq{"c.published": true})
	}
	items, err := s.list(ctx, newestFirst(b))
	if err != nil {
		return nil, fmt.Errorf("list content by category tree: %w", err)
	}
	return items, nil
}

// FindByTag returns the content carrying a tag.
func (s *ContentStore) FindByTag(ctx context.Context, tagID int64, publishedOnly bool) ([]models.Content, error) {
	b := selectContent().
		Join("content_tags ctg ON ctg.content_id = c.id").
		Where(sq.Eq{"ctg.tag_id": tagID})
	if publishedOnly {
		b = b.Where(sq.Eq{"c.published": true})
	}
	items, err := s.list(ctx, newestFirst(b))
	if err != nil {
		return nil, fmt.Errorf("list content by tag: %w", err)
	}
	return items, nil
}

// SlugExists reports whether a content item of typ already uses slug.
func (s *ContentStore) SlugExists(ctx context.Context, typ, slug string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM content WHERE type = ? AND slug = ?`, typ, slug)
	if err != nil {
		return false, fmt.Errorf("check content slug: %w", err)
	}
	return n > 0, nil
}

// CountByType returns the number of content items of the given type.
func (s *ContentStore) CountByType(ctx context.Context, typ string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM content WHERE type = ?`, typ)
	if err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return count, nil
}

// Save inserts c when it has no ID and updates it otherwise. There is no
// concurrency token: the last write wins. Timestamps are set here, and an
// item that is published without a publish date gets the current time.
// A (type, slug) collision is returned as database.ErrDuplicate.
func (s *ContentStore) Save(ctx context.Context, c *models.Content) error {
	now := time.Now().UTC()
	if c.Published && c.PublishedAt == nil {
		c.PublishedAt = &now
	}
	if c.Meta == nil {
		c.Meta = map[string]any{}
	}
	meta, err := json.Marshal(c.Meta)
	if err != nil {
		return fmt.Errorf("encode content meta: %w", err)
	}

	if c.ID == 0 {
		return s.insert(ctx, c, string(meta), now)
	}
	return s.update(ctx, c, string(meta), now)
}

func (s *ContentStore) insert(ctx context.Context, c *models.Content, meta string, now time.Time) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query, args, err := sq.Insert("content").
		Columns("type", "slug", "title", "file_path", "meta_data", "content_hash",
			"published", "featured", "category_id", "created_at", "updated_at", "published_at").
		Values(c.Type, c.Slug, c.Title, c.FilePath, meta, c.ContentHash,
			c.Published, c.Featured, c.CategoryID, c.CreatedAt, c.UpdatedAt, c.PublishedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build content insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("create content: %w", database.MapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create content id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *ContentStore) update(ctx context.Context, c *models.Content, meta string, now time.Time) error {
	c.UpdatedAt = now

	query, args, err := sq.Update("content").
		SetMap(map[string]any{
			"type":         c.Type,
			"slug":         c.Slug,
			"title":        c.Title,
			"file_path":    c.FilePath,
			"meta_data":    meta,
			"content_hash": c.ContentHash,
			"published":    c.Published,
			"featured":     c.Featured,
			"category_id":  c.CategoryID,
			"updated_at":   c.UpdatedAt,
			"published_at": c.PublishedAt,
		}).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build content update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update content: %w", database.MapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update content %d: %w", c.ID, sql.ErrNoRows)
	}
	return nil
}

// Delete removes a content item. Deleting a missing row is not an error.
// Tag links and the plain search row go with it through foreign keys.
func (s *ContentStore) Delete(ctx context.Context, c *models.Content) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, c.ID); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}
