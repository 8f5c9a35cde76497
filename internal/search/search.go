// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package search maintains the full-text projection of content and answers
// ranked queries against it. The plain search_index table is always
// written; the FTS5 table search_index_fts mirrors it when the SQLite
// build supports FTS5. Without FTS5, or when a full-text query fails,
// searches degrade to a substring match on title and slug.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"orbit/internal/database"
	"orbit/internal/filedriver"
	"orbit/internal/markdown"
	"orbit/internal/models"
	"orbit/internal/store"
)

const ftsTable = "search_index_fts"

// Options tunes query handling and snippet output.
type Options struct {
	MinQueryLength int
	SnippetTokens  int
	HighlightOpen  string
	HighlightClose string
	DefaultLimit   int
}

// DefaultOptions returns the stock search settings.
func DefaultOptions() Options {
	return Options{
		MinQueryLength: 3,
		SnippetTokens:  32,
		HighlightOpen:  "<mark>",
		HighlightClose: "</mark>",
		DefaultLimit:   20,
	}
}

// Filters narrows a search. Only published content is ever returned.
type Filters struct {
	Type  string
	Limit int
}

// BodySource returns the raw body of a content item for reindexing.
type BodySource func(ctx context.Context, c *models.Content) (string, error)

// Index is the search index over content.
type Index struct {
	db       *sqlx.DB
	contents *store.ContentStore
	body     BodySource
	opts     Options
	fts      atomic.Bool
}

// New creates an Index. body may be nil, in which case reindexing uses
// empty bodies. Call EnsureFullText before use to enable FTS5.
func New(db *sqlx.DB, contents *store.ContentStore, body BodySource, opts Options) *Index {
	def := DefaultOptions()
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = def.MinQueryLength
	}
	if opts.SnippetTokens <= 0 || opts.SnippetTokens > 64 {
		opts.SnippetTokens = def.SnippetTokens
	}
	if opts.HighlightOpen == "" && opts.HighlightClose == "" {
		opts.HighlightOpen, opts.HighlightClose = def.HighlightOpen, def.HighlightClose
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	return &Index{db: db, contents: contents, body: body, opts: opts}
}

// EnsureFullText creates the FTS5 table when the SQLite build supports it
// and backfills it from the plain index. A build without FTS5 is not an
// error: the index runs in fallback-only mode.
func (ix *Index) EnsureFullText(ctx context.Context) error {
	var existing int
	if err := ix.db.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, ftsTable); err != nil {
		return fmt.Errorf("check full-text table: %w", err)
	}

	_, err := ix.db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS `+ftsTable+` USING fts5(
			title, content, tags, meta_keywords,
			tokenize = 'unicode61 remove_diacritics 2'
		)`)
	if err != nil {
		if strings.Contains(err.Error(), "no such module") {
			ix.fts.Store(false)
			slog.Warn("sqlite built without fts5, search uses substring fallback")
			return nil
		}
		return fmt.Errorf("create full-text table: %w", err)
	}

	if existing == 0 {
		if _, err := ix.db.ExecContext(ctx, `
			INSERT INTO `+ftsTable+` (rowid, title, content, tags, meta_keywords)
			SELECT content_id, title, content, tags, meta_keywords FROM search_index
		`); err != nil {
			return fmt.Errorf("backfill full-text table: %w", err)
		}
	}

	ix.fts.Store(true)
	slog.Info("full-text search enabled")
	return nil
}

// FullTextAvailable reports whether queries go through FTS5.
func (ix *Index) FullTextAvailable() bool {
	return ix.fts.Load()
}

// Search returns published content matching query, best match first.
// Queries shorter than the minimum length return no results. Full-text
// failures fall back to a case-insensitive substring match on title and
// slug; only a failure of that fallback is returned as an error.
func (ix *Index) Search(ctx context.Context, query string, f Filters) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < ix.opts.MinQueryLength {
		return []models.SearchResult{}, nil
	}
	if f.Limit <= 0 {
		f.Limit = ix.opts.DefaultLimit
	}

	if ix.fts.Load() {
		if match := prepareQuery(query); match != "" {
			results, err := ix.fullText(ctx, match, f)
			if err == nil {
				return results, nil
			}
			slog.Warn("full-text search failed, using fallback", "query", query, "error", err)
		}
	}

	results, err := ix.fallback(ctx, query, f)
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	return results, nil
}

var nonQueryChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)

// prepareQuery turns user input into an FTS5 expression: punctuation is
// stripped, tokens shorter than two characters are dropped and every
// remaining token becomes a quoted prefix term. Terms are ANDed.
func prepareQuery(query string) string {
	cleaned := nonQueryChars.ReplaceAllString(query, " ")

	var terms []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		terms = append(terms, `"`+tok+`"*`)
	}
	return strings.Join(terms, " AND ")
}

func (ix *Index) fullText(ctx context.Context, match string, f Filters) ([]models.SearchResult, error) {
	b := sq.Select("c.id", "c.type", "c.slug", "c.title", "c.published_at", "c.created_at").
		Column(sq.Expr("snippet("+ftsTable+", 1, ?, ?, '...', ?) AS snippet",
			ix.opts.HighlightOpen, ix.opts.HighlightClose, ix.opts.SnippetTokens)).
		Column("bm25(" + ftsTable + ") AS rank").
		From(ftsTable).
		Join("content c ON c.id = " + ftsTable + ".rowid").
		Where(ftsTable+" MATCH ?", match).
		Where(sq.Eq{"c.published": true}).
		OrderBy("rank").
		Limit(uint64(f.Limit))
	if f.Type != "" {
		b = b.Where(sq.Eq{"c.type": f.Type})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build full-text query: %w", err)
	}
	results := []models.SearchResult{}
	if err := ix.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (ix *Index) fallback(ctx context.Context, query string, f Filters) ([]models.SearchResult, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	b := sq.Select("c.id", "c.type", "c.slug", "c.title", "c.published_at", "c.created_at",
		"'' AS snippet", "0.0 AS rank").
		From("content c").
		Where(sq.Or{
			sq.Expr(`LOWER(c.title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(c.slug) LIKE ? ESCAPE '\'`, pattern),
		}).
		Where(sq.Eq{"c.published": true}).
		OrderBy("COALESCE(c.published_at, c.created_at) DESC", "c.id DESC").
		Limit(uint64(f.Limit))
	if f.Type != "" {
		b = b.Where(sq.Eq{"c.type": f.Type})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fallback query: %w", err)
	}
	results := []models.SearchResult{}
	if err := ix.db.SelectContext(ctx, &results, q, args...); err != nil {
		return nil, fmt.Errorf("fallback query: %w", err)
	}
	for i := range results {
		results[i].Fallback = true
	}
	return results, nil
}

// IndexContent upserts the index entry of c from its title, RawBody, tags
// and keywords. Failures are logged and swallowed: indexing never blocks a
// content save.
func (ix *Index) IndexContent(ctx context.Context, c *models.Content) {
	if err := ix.index(ctx, c); err != nil {
		slog.Warn("search indexing failed", "content_id", c.ID, "error", err)
	}
}

// PlainBody strips the metadata block and all markup from a raw body.
func PlainBody(raw string) string {
	_, body := filedriver.ParseFrontMatter([]byte(raw))
	return markdown.PlainText(body)
}

func (ix *Index) index(ctx context.Context, c *models.Content) error {
	if c.ID == 0 {
		return fmt.Errorf("content has no id")
	}
	text := PlainBody(c.RawBody)
	tags := strings.Join(c.TagNames(), " ")
	keywords := c.Keywords()
	now := time.Now().UTC()

	return database.WithTx(ctx, ix.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO search_index (content_id, title, content, tags, meta_keywords, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(content_id) DO UPDATE SET
				title = excluded.title,
				content = excluded.content,
				tags = excluded.tags,
				meta_keywords = excluded.meta_keywords,
				updated_at = excluded.updated_at
		`, c.ID, c.Title, text, tags, keywords, now)
		if err != nil {
			return fmt.Errorf("upsert search entry: %w", err)
		}

		if !ix.fts.Load() {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+ftsTable+` WHERE rowid = ?`, c.ID); err != nil {
			return fmt.Errorf("clear full-text entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO `+ftsTable+` (rowid, title, content, tags, meta_keywords)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.Title, text, tags, keywords); err != nil {
			return fmt.Errorf("insert full-text entry: %w", err)
		}
		return nil
	})
}

// RemoveFromIndex deletes the index entry of c. Failures are logged and
// swallowed; a missing entry is not an error.
func (ix *Index) RemoveFromIndex(ctx context.Context, c *models.Content) {
	err := database.WithTx(ctx, ix.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_index WHERE content_id = ?`, c.ID); err != nil {
			return fmt.Errorf("delete search entry: %w", err)
		}
		if ix.fts.Load() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+ftsTable+` WHERE rowid = ?`, c.ID); err != nil {
				return fmt.Errorf("delete full-text entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("search removal failed", "content_id", c.ID, "error", err)
	}
}

// ReindexAll clears the index and rebuilds it from every published item,
// reading each body through the body source (an unavailable body indexes
// as empty text). It returns the number of items indexed.
func (ix *Index) ReindexAll(ctx context.Context) (int, error) {
	items, err := ix.contents.FindAll(ctx, store.ListOptions{PublishedOnly: true})
	if err != nil {
		return 0, fmt.Errorf("reindex load content: %w", err)
	}

	err = database.WithTx(ctx, ix.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_index`); err != nil {
			return fmt.Errorf("clear search index: %w", err)
		}
		if ix.fts.Load() {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+ftsTable); err != nil {
				return fmt.Errorf("clear full-text index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range items {
		c := &items[i]
		c.RawBody = ""
		if ix.body != nil {
			body, err := ix.body(ctx, c)
			if err != nil {
				slog.Debug("reindex body unavailable", "content_id", c.ID, "error", err)
			} else {
				c.RawBody = body
			}
		}
		if err := ix.index(ctx, c); err != nil {
			slog.Warn("reindex entry failed", "content_id", c.ID, "error", err)
			continue
		}
		count++
	}

	slog.Info("search index rebuilt", "count", count)
	return count, nil
}
