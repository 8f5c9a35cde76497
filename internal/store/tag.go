// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
	"orbit/internal/models"
	"orbit/internal/slug"
)

// TagStore manages tags and their links to content.
type TagStore struct {
	db *sqlx.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

type tagCountRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UsageCount  int       `db:"usage_count"`
}

func (r tagCountRow) hydrate() models.Tag {
	return models.Tag{
		ID: r.ID, Name: r.Name, Slug: r.Slug, Color: r.Color,
		Description: r.Description, CreatedAt: r.CreatedAt, UsageCount: r.UsageCount,
	}
}

func selectTags() sq.SelectBuilder {
	return sq.Select(
		"t.id", "t.name", "t.slug", "t.color", "t.description", "t.created_at",
		"(SELECT COUNT(*) FROM content_tags ct WHERE ct.tag_id = t.id) AS usage_count",
	).From("tags t")
}

func (s *TagStore) list(ctx context.Context, b sq.SelectBuilder) ([]models.Tag, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tag query: %w", err)
	}
	var rows []tagCountRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	items := make([]models.Tag, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.hydrate())
	}
	return items, nil
}

func (s *TagStore) one(ctx context.Context, b sq.SelectBuilder) (*models.Tag, error) {
	items, err := s.list(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FindByID retrieves a tag by ID. Returns nil if not found.
func (s *TagStore) FindByID(ctx context.Context, id int64) (*models.Tag, error) {
	t, err := s.one(ctx, selectTags().Where(sq.Eq{"t.id": id}))
	if err != nil {
		return nil, fmt.Errorf("find tag by id: %w", err)
	}
	return t, nil
}

// FindBySlug retrieves a tag by slug. Returns nil if not found.
func (s *TagStore) FindBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	t, err := s.one(ctx, selectTags().Where(sq.Eq{"t.slug": slug}))
	if err != nil {
		return nil, fmt.Errorf("find tag by slug: %w", err)
	}
	return t, nil
}

// FindAll returns every tag with its usage count, ordered by name.
func (s *TagStore) FindAll(ctx context.Context) ([]models.Tag, error) {
	items, err := s.list(ctx, selectTags().OrderBy("t.name"))
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return items, nil
}

// Save inserts or updates a tag. A slug collision is returned as
// database.ErrDuplicate.
func (s *TagStore) Save(ctx context.Context, t *models.Tag) error {
	if t.ID == 0 {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		query, args, err := sq.Insert("tags").
			Columns("name", "slug", "color", "description", "created_at").
			Values(t.Name, t.Slug, t.Color, t.Description, t.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build tag insert: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("create tag: %w", database.MapError(err))
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("create tag id: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, slug = ?, color = ?, description = ?
		WHERE id = ?
	`, t.Name, t.Slug, t.Color, t.Description, t.ID)
	if err != nil {
		return fmt.Errorf("update tag: %w", database.MapError(err))
	}
	return nil
}

// Delete removes a tag and its content links.
func (s *TagStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// FindOrCreate returns the tag whose slug matches name, creating it when
// none exists.
func (s *TagStore) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	sl := slug.Generate(name)
	if sl == "" {
		return nil, fmt.Errorf("tag name %q has no usable characters", name)
	}

	existing, err := s.FindBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	t := &models.Tag{Name: name, Slug: sl}
	if err := s.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SyncContentTags replaces the tag links of a content item. The delete and
// inserts run in one transaction and roll back together on failure.
func (s *TagStore) SyncContentTags(ctx context.Context, contentID int64, tagIDs []int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_tags WHERE content_id = ?`, contentID); err != nil {
			return fmt.Errorf("clear content tags: %w", err)
		}
		if len(tagIDs) == 0 {
			return nil
		}

		seen := make(map[int64]bool, len(tagIDs))
		b := sq.Insert("content_tags").Columns("content_id", "tag_id")
		for _, id := range tagIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			b = b.Values(contentID, id)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("build content tags insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert content tags: %w", err)
		}
		return nil
	})
}
