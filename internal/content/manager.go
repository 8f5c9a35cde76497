// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content is the only write path into Orbit. The Manager keeps the
// body files, the relational rows and the search index in step: files hold
// bodies and authoring metadata, rows are their queryable projection and
// the index is derived from both.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orbit/internal/cache"
	"orbit/internal/filedriver"
	"orbit/internal/models"
	"orbit/internal/search"
	"orbit/internal/store"
)

const tracerName = "orbit/internal/content"

// Options configures a Manager beyond its required dependencies.
type Options struct {
	Search search.Options
	// Cache is optional; nil disables render caching.
	Cache *cache.RenderCache
	// Tracer defaults to the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

// Manager orchestrates file drivers, stores and the search index.
type Manager struct {
	registry   *filedriver.Registry
	contents   *store.ContentStore
	categories *store.CategoryStore
	tags       *store.TagStore
	index      *search.Index
	cache      *cache.RenderCache
	tracer     trace.Tracer
}

// New wires a Manager over db and the content type registry.
func New(db *sqlx.DB, registry *filedriver.Registry, opts Options) *Manager {
	m := &Manager{
		registry:   registry,
		contents:   store.NewContentStore(db),
		categories: store.NewCategoryStore(db),
		tags:       store.NewTagStore(db),
		cache:      opts.Cache,
		tracer:     opts.Tracer,
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	m.index = search.New(db, m.contents, m.readBody, opts.Search)
	return m
}

// Init prepares the search index. It must be called once before serving.
func (m *Manager) Init(ctx context.Context) error {
	return m.index.EnsureFullText(ctx)
}

// Registry returns the content type registry.
func (m *Manager) Registry() *filedriver.Registry { return m.registry }

// FullTextAvailable reports whether search uses the FTS5 index.
func (m *Manager) FullTextAvailable() bool { return m.index.FullTextAvailable() }

// startSpan opens a span for a manager operation.
func (m *Manager) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "content."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// driverFor returns the driver of c's type. Content whose type has since
// been removed from configuration falls back to the driver matching its
// file extension.
func (m *Manager) driverFor(c *models.Content) (filedriver.Driver, error) {
	if d, ok := m.registry.Driver(c.Type); ok {
		return d, nil
	}
	ext := strings.TrimPrefix(filepath.Ext(c.FilePath), ".")
	for _, d := range []filedriver.Driver{filedriver.MarkdownDriver{}, filedriver.JSONDriver{}} {
		if ext == d.Extension() {
			return d, nil
		}
	}
	return nil, &UnknownTypeError{Type: c.Type}
}

// readBody returns the stored body of c, used by the search reindex.
func (m *Manager) readBody(_ context.Context, c *models.Content) (string, error) {
	d, err := m.driverFor(c)
	if err != nil {
		return "", err
	}
	doc, err := d.Read(c.FilePath)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// hashBody returns the content hash of a body.
func hashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// LoadContentFromFile hydrates RawBody and RenderedBody from the body file
// and merges the file's metadata into c.Meta; file keys overwrite entity
// keys of the same name. ContentHash is left untouched. A missing file
// yields ErrBodyUnavailable.
func (m *Manager) LoadContentFromFile(ctx context.Context, c *models.Content) (err error) {
	ctx, span := m.startSpan(ctx, "LoadContentFromFile", attribute.Int64("content.id", c.ID))
	defer func() { endSpan(span, err) }()

	d, err := m.driverFor(c)
	if err != nil {
		return err
	}
	doc, err := d.Read(c.FilePath)
	if err != nil {
		if errors.Is(err, filedriver.ErrNotExist) {
			return fmt.Errorf("content %d: %w", c.ID, ErrBodyUnavailable)
		}
		return &FileError{Op: "read", Path: c.FilePath, Err: err}
	}

	if c.Meta == nil {
		c.Meta = map[string]any{}
	}
	for k, v := range doc.Meta {
		c.Meta[k] = v
	}
	c.RawBody = doc.Content

	// Keyed by the body as read, so external edits never serve stale HTML.
	key := hashBody(doc.Content)
	if html, ok := m.cache.Get(ctx, key); ok {
		c.RenderedBody = html
		return nil
	}
	html, err := d.Render(doc.Content)
	if err != nil {
		return fmt.Errorf("render content %d: %w", c.ID, err)
	}
	c.RenderedBody = html
	m.cache.Set(ctx, key, html)
	return nil
}

// Search delegates to the search index. Results are not hydrated.
func (m *Manager) Search(ctx context.Context, query string, f search.Filters) (results []models.SearchResult, err error) {
	ctx, span := m.startSpan(ctx, "Search", attribute.String("search.type", f.Type))
	defer func() { endSpan(span, err) }()

	if f.Type != "" && !m.registry.Has(f.Type) {
		return nil, &UnknownTypeError{Type: f.Type}
	}
	return m.index.Search(ctx, query, f)
}

// ReindexAll rebuilds the search index from the stored bodies.
func (m *Manager) ReindexAll(ctx context.Context) (n int, err error) {
	ctx, span := m.startSpan(ctx, "ReindexAll")
	defer func() { endSpan(span, err) }()

	n, err = m.index.ReindexAll(ctx)
	span.SetAttributes(attribute.Int("search.indexed", n))
	return n, err
}

// PurgeRenderCache drops every cached rendering. Renderings are keyed by
// body hash, so this is only needed after the renderer itself changes.
func (m *Manager) PurgeRenderCache(ctx context.Context) {
	m.cache.InvalidateAll(ctx)
}
