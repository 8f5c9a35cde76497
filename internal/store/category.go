// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
	"orbit/internal/models"
)

var (
	// ErrParentNotFound is returned when a category names a parent that
	// does not exist.
	ErrParentNotFound = errors.New("parent category not found")
	// ErrCategoryNotFound is returned when an update or reorder names a
	// category that does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCycle is returned when a parent assignment would make a category
	// its own ancestor.
	ErrCycle = errors.New("category cycle")
)

// CategoryStore manages categories and the category_hierarchy closure
// table. The closure table is always rebuilt wholesale after a structural
// change; it is never patched.
type CategoryStore struct {
	db *sqlx.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

type categoryRow struct {
	ID           int64         `db:"id"`
	Name         string        `db:"name"`
	Slug         string        `db:"slug"`
	Description  string        `db:"description"`
	ParentID     sql.NullInt64 `db:"parent_id"`
	Color        string        `db:"color"`
	Icon         string        `db:"icon"`
	SortOrder    int           `db:"sort_order"`
	Active       bool          `db:"active"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
	Path         string        `db:"path"`
	Depth        int           `db:"depth"`
	ContentCount int           `db:"content_count"`
}

func (r categoryRow) hydrate() models.Category {
	c := models.Category{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  r.Description,
		Color:        r.Color,
		Icon:         r.Icon,
		SortOrder:    r.SortOrder,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Path:         r.Path,
		Depth:        r.Depth,
		ContentCount: r.ContentCount,
	}
	if r.ParentID.Valid {
		id := r.ParentID.Int64
		c.ParentID = &id
	}
	return c
}

// selectCategories joins the self row of the closure table for the path
// and derives depth and content count.
func selectCategories() sq.SelectBuilder {
	return sq.Select(
		"c.id", "c.name", "c.slug", "c.description", "c.parent_id", "c.color",
		"c.icon", "c.sort_order", "c.active", "c.created_at", "c.updated_at",
		"COALESCE(h.path, '') AS path",
		"COALESCE((SELECT MAX(h2.depth) FROM category_hierarchy h2 WHERE h2.category_id = c.id), 0) AS depth",
		"(SELECT COUNT(*) FROM content ct WHERE ct.category_id = c.id) AS content_count",
	).
		From("categories c").
		LeftJoin("category_hierarchy h ON h.category_id = c.id AND h.depth = 0")
}

func (s *CategoryStore) list(ctx context.Context, b sq.SelectBuilder) ([]models.Category, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}
	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	items := make([]models.Category, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.hydrate())
	}
	return items, nil
}

func (s *CategoryStore) one(ctx context.Context, b sq.SelectBuilder) (*models.Category, error) {
	items, err := s.list(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	c, err := s.one(ctx, selectCategories().Where(sq.Eq{"c.id": id}))
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.one(ctx, selectCategories().Where(sq.Eq{"c.slug": slug}))
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// FindAll returns categories ordered by sort order and name.
func (s *CategoryStore) FindAll(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	b := selectCategories()
	if activeOnly {
		b = b.Where(sq.Eq{"c.active": true})
	}
	items, err := s.list(ctx, b.OrderBy("c.sort_order", "c.name"))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// FindChildren returns the direct children of a category.
func (s *CategoryStore) FindChildren(ctx context.Context, parentID int64) ([]models.Category, error) {
	items, err := s.list(ctx, selectCategories().
		Where(sq.Eq{"c.parent_id": parentID}).
		OrderBy("c.sort_order", "c.name"))
	if err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}
	return items, nil
}

// FindAncestors returns the ancestors of a category from the root down,
// excluding the category itself.
func (s *CategoryStore) FindAncestors(ctx context.Context, id int64) ([]models.Category, error) {
	items, err := s.list(ctx, selectCategories().
		Join("category_hierarchy anc ON anc.ancestor_id = c.id").
		Where(sq.And{sq.Eq{"anc.category_id": id}, sq.Gt{"anc.depth": 0}}).
		OrderBy("anc.depth DESC"))
	if err != nil {
		return nil, fmt.Errorf("list category ancestors: %w", err)
	}
	return items, nil
}

// Hierarchy returns the closure rows of a category, self first.
func (s *CategoryStore) Hierarchy(ctx context.Context, id int64) ([]models.CategoryHierarchy, error) {
	var rows []models.CategoryHierarchy
	err := s.db.SelectContext(ctx, &rows, `
		SELECT category_id, ancestor_id, depth, path
		FROM category_hierarchy
		WHERE category_id = ?
		ORDER BY depth
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list category hierarchy: %w", err)
	}
	return rows, nil
}

// GetTree returns the active and inactive categories as a forest of root
// nodes with nested children. The flat list is loaded with one query and
// linked through an id-keyed map.
func (s *CategoryStore) GetTree(ctx context.Context) ([]models.Category, error) {
	flat, err := s.FindAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return buildTree(flat), nil
}

// buildTree links a flat, ordered list into trees. A category whose parent
// is not in the list becomes a root.
func buildTree(flat []models.Category) []models.Category {
	known := make(map[int64]bool, len(flat))
	for _, c := range flat {
		known[c.ID] = true
	}

	children := make(map[int64][]int, len(flat))
	var roots []int
	for i, c := range flat {
		if c.IsRoot() || !known[*c.ParentID] {
			roots = append(roots, i)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], i)
	}

	var build func(i int) models.Category
	build = func(i int) models.Category {
		c := flat[i]
		for _, j := range children[c.ID] {
			c.Children = append(c.Children, build(j))
		}
		return c
	}

	result := make([]models.Category, 0, len(roots))
	for _, i := range roots {
		result = append(result, build(i))
	}
	return result
}

// FlatTree returns categories in depth-first display order with Depth
// set, useful for indented listings.
func (s *CategoryStore) FlatTree(ctx context.Context) ([]models.Category, error) {
	tree, err := s.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	var result []models.Category
	flattenTree(tree, &result)
	return result, nil
}

// flattenTree walks a category tree depth-first, appending to result.
func flattenTree(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		children := c.Children
		c.Children = nil
		*result = append(*result, c)
		if len(children) > 0 {
			flattenTree(children, result)
		}
	}
}

// Save inserts or updates a category. The parent must exist and must not
// be the category itself or one of its descendants. The closure table is
// rebuilt after an insert and after any change of parent or slug.
func (s *CategoryStore) Save(ctx context.Context, c *models.Category) error {
	if err := s.checkParent(ctx, c); err != nil {
		return err
	}

	now := time.Now().UTC()
	c.UpdatedAt = now

	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rebuild := false
		if c.ID == 0 {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			query, args, err := sq.Insert("categories").
				Columns("name", "slug", "description", "parent_id", "color", "icon",
					"sort_order", "active", "created_at", "updated_at").
				Values(c.Name, c.Slug, c.Description, c.ParentID, c.Color, c.Icon,
					c.SortOrder, c.Active, c.CreatedAt, c.UpdatedAt).
				ToSql()
			if err != nil {
				return fmt.Errorf("build category insert: %w", err)
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("create category: %w", database.MapError(err))
			}
			if c.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("create category id: %w", err)
			}
			rebuild = true
		} else {
			var prev struct {
				Slug     string        `db:"slug"`
				ParentID sql.NullInt64 `db:"parent_id"`
			}
			err := tx.GetContext(ctx, &prev, `SELECT slug, parent_id FROM categories WHERE id = ?`, c.ID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("category %d: %w", c.ID, ErrCategoryNotFound)
			}
			if err != nil {
				return fmt.Errorf("load category %d: %w", c.ID, err)
			}
			rebuild = prev.Slug != c.Slug || !sameParent(prev.ParentID, c.ParentID)

			query, args, err := sq.Update("categories").
				SetMap(map[string]any{
					"name":        c.Name,
					"slug":        c.Slug,
					"description": c.Description,
					"parent_id":   c.ParentID,
					"color":       c.Color,
					"icon":        c.Icon,
					"sort_order":  c.SortOrder,
					"active":      c.Active,
					"updated_at":  c.UpdatedAt,
				}).
				Where(sq.Eq{"id": c.ID}).
				ToSql()
			if err != nil {
				return fmt.Errorf("build category update: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("update category: %w", database.MapError(err))
			}
		}

		if !rebuild {
			return nil
		}
		return rebuildHierarchy(ctx, tx)
	})
}

func sameParent(prev sql.NullInt64, next *int64) bool {
	if !prev.Valid || next == nil {
		return !prev.Valid && next == nil
	}
	return prev.Int64 == *next
}

// checkParent walks up from the proposed parent; reaching c means the
// assignment would close a cycle.
func (s *CategoryStore) checkParent(ctx context.Context, c *models.Category) error {
	if c.ParentID == nil {
		return nil
	}
	if c.ID != 0 && *c.ParentID == c.ID {
		return fmt.Errorf("category %q: %w", c.Slug, ErrCycle)
	}

	parents, err := loadParents(ctx, s.db)
	if err != nil {
		return err
	}
	if _, ok := parents[*c.ParentID]; !ok {
		return fmt.Errorf("category %q parent %d: %w", c.Slug, *c.ParentID, ErrParentNotFound)
	}
	if c.ID == 0 {
		return nil
	}

	seen := map[int64]bool{}
	for id := *c.ParentID; ; {
		if id == c.ID {
			return fmt.Errorf("category %q: %w", c.Slug, ErrCycle)
		}
		if seen[id] {
			return fmt.Errorf("category %d: %w", id, ErrCycle)
		}
		seen[id] = true
		node := parents[id]
		if node.parent == nil {
			return nil
		}
		id = *node.parent
	}
}

type categoryNode struct {
	slug   string
	parent *int64
}

func loadParents(ctx context.Context, q sqlx.QueryerContext) (map[int64]categoryNode, error) {
	var rows []struct {
		ID       int64         `db:"id"`
		Slug     string        `db:"slug"`
		ParentID sql.NullInt64 `db:"parent_id"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT id, slug, parent_id FROM categories`); err != nil {
		return nil, fmt.Errorf("load category parents: %w", err)
	}
	out := make(map[int64]categoryNode, len(rows))
	for _, r := range rows {
		n := categoryNode{slug: r.Slug}
		if r.ParentID.Valid {
			p := r.ParentID.Int64
			n.parent = &p
		}
		out[r.ID] = n
	}
	return out, nil
}

// Delete removes a category. Its children become roots and its content
// loses the category assignment.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE categories SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
			return fmt.Errorf("orphan child categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE content SET category_id = NULL WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("clear content category: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return rebuildHierarchy(ctx, tx)
	})
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id"`
	Order    int    `json:"order"`
}

// Reorder updates sort order and parent for several categories in one
// transaction, then rebuilds the hierarchy. Every id and parent id must
// exist and the resulting tree must be acyclic; otherwise nothing changes.
func (s *CategoryStore) Reorder(ctx context.Context, items []ReorderItem) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		nodes, err := loadParents(ctx, tx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, ok := nodes[item.ID]; !ok {
				return fmt.Errorf("category %d: %w", item.ID, ErrCategoryNotFound)
			}
			if item.ParentID == nil {
				continue
			}
			if _, ok := nodes[*item.ParentID]; !ok {
				return fmt.Errorf("category %d parent %d: %w", item.ID, *item.ParentID, ErrParentNotFound)
			}
		}

		now := time.Now().UTC()
		for _, item := range items {
			_, err := tx.ExecContext(ctx, `
				UPDATE categories SET parent_id = ?, sort_order = ?, updated_at = ?
				WHERE id = ?
			`, item.ParentID, item.Order, now, item.ID)
			if err != nil {
				return fmt.Errorf("reorder category %d: %w", item.ID, err)
			}
		}
		return rebuildHierarchy(ctx, tx)
	})
}

// RebuildHierarchy replaces the whole closure table.
func (s *CategoryStore) RebuildHierarchy(ctx context.Context) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return rebuildHierarchy(ctx, tx)
	})
}

// rebuildHierarchy walks every category up to its root, building the
// slash-joined slug path, and writes one row per (category, ancestor)
// pair including the category itself at depth 0.
func rebuildHierarchy(ctx context.Context, tx *sqlx.Tx) error {
	nodes, err := loadParents(ctx, tx)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_hierarchy`); err != nil {
		return fmt.Errorf("clear category hierarchy: %w", err)
	}

	for id := range nodes {
		chain := []int64{id}
		seen := map[int64]bool{id: true}
		for cur := nodes[id]; cur.parent != nil; cur = nodes[*cur.parent] {
			p := *cur.parent
			if seen[p] {
				return fmt.Errorf("rebuild hierarchy at category %d: %w", id, ErrCycle)
			}
			if _, ok := nodes[p]; !ok {
				break
			}
			seen[p] = true
			chain = append(chain, p)
		}

		segments := make([]string, len(chain))
		for i, anc := range chain {
			segments[len(chain)-1-i] = nodes[anc].slug
		}
		path := "/" + strings.Join(segments, "/")

		for depth, anc := range chain {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO category_hierarchy (category_id, ancestor_id, depth, path)
				VALUES (?, ?, ?, ?)
			`, id, anc, depth, path); err != nil {
				return fmt.Errorf("insert category hierarchy: %w", err)
			}
		}
	}
	return nil
}
