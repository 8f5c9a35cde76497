// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"orbit/internal/filedriver"
	"orbit/internal/models"
	"orbit/internal/slug"
	"orbit/internal/store"
)

// SyncResult describes what SyncFile did with a file.
type SyncResult int

const (
	SyncSkipped SyncResult = iota
	SyncUnchanged
	SyncCreated
	SyncUpdated
	SyncRemoved
)

func (r SyncResult) String() string {
	switch r {
	case SyncUnchanged:
		return "unchanged"
	case SyncCreated:
		return "created"
	case SyncUpdated:
		return "updated"
	case SyncRemoved:
		return "removed"
	default:
		return "skipped"
	}
}

// Report summarises a Reconcile run.
type Report struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
	Indexed   int `json:"indexed"`
}

func (r *Report) add(res SyncResult) {
	switch res {
	case SyncCreated:
		r.Created++
	case SyncUpdated:
		r.Updated++
	case SyncUnchanged:
		r.Unchanged++
	case SyncRemoved:
		r.Removed++
	}
}

// Reconcile brings the database in line with the content directories:
// every body file gets a row and rows whose file is gone are removed. The
// category closure table and the search index are then rebuilt. A file
// that fails to sync is logged and counted; it does not stop the run.
func (m *Manager) Reconcile(ctx context.Context) (report Report, err error) {
	ctx, span := m.startSpan(ctx, "Reconcile")
	defer func() { endSpan(span, err) }()

	for _, typ := range m.registry.Types() {
		dir, _ := m.registry.Dir(typ)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return report, &FileError{Op: "list", Path: dir, Err: err}
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if _, _, ok := m.registry.Resolve(path); !ok {
				continue
			}
			res, err := m.SyncFile(ctx, path)
			if err != nil {
				slog.Warn("reconcile file failed", "path", path, "error", err)
				report.Failed++
				continue
			}
			report.add(res)
		}
	}

	rows, err := m.contents.FindAll(ctx, store.ListOptions{})
	if err != nil {
		return report, err
	}
	for i := range rows {
		c := &rows[i]
		d, err := m.driverFor(c)
		if err != nil || d.Exists(c.FilePath) {
			continue
		}
		if err := m.forget(ctx, c); err != nil {
			slog.Warn("reconcile remove failed", "id", c.ID, "error", err)
			report.Failed++
			continue
		}
		report.Removed++
	}

	if err := m.categories.RebuildHierarchy(ctx); err != nil {
		return report, err
	}
	if report.Indexed, err = m.index.ReindexAll(ctx); err != nil {
		return report, err
	}
	span.SetAttributes(
		attribute.Int("reconcile.created", report.Created),
		attribute.Int("reconcile.updated", report.Updated),
		attribute.Int("reconcile.removed", report.Removed),
	)
	slog.Info("content reconciled",
		"created", report.Created, "updated", report.Updated, "unchanged", report.Unchanged,
		"removed", report.Removed, "failed", report.Failed, "indexed", report.Indexed)
	return report, nil
}

// SyncFile updates the row of one body file from its contents, creating
// the row when the file is new. Files outside the content directories are
// skipped; a file that no longer exists is forgotten.
func (m *Manager) SyncFile(ctx context.Context, path string) (res SyncResult, err error) {
	ctx, span := m.startSpan(ctx, "SyncFile", attribute.String("file.path", path))
	defer func() { endSpan(span, err) }()

	typ, s, ok := m.registry.Resolve(path)
	if !ok || !slug.Valid(s) {
		return SyncSkipped, nil
	}
	d, _ := m.registry.Driver(typ)
	canonical, err := m.registry.FilePath(typ, s)
	if err != nil {
		return SyncSkipped, err
	}
	doc, err := d.Read(canonical)
	if errors.Is(err, filedriver.ErrNotExist) {
		return m.ForgetFile(ctx, canonical)
	}
	if err != nil {
		return SyncSkipped, &FileError{Op: "read", Path: canonical, Err: err}
	}

	existing, err := m.contents.FindByTypeAndSlug(ctx, typ, s)
	if err != nil {
		return SyncSkipped, err
	}

	c := &models.Content{Type: typ, Slug: s, Title: humanize(s), Meta: map[string]any{}}
	var oldTags []string
	if existing != nil {
		copied := *existing
		c = &copied
		oldTags = existing.TagNames()
	}
	c.FilePath = canonical
	c.Meta = userMeta(doc.Meta)
	c.ContentHash = hashBody(doc.Content)

	if v, ok := doc.Meta[keyTitle]; ok {
		if title := strings.TrimSpace(fmt.Sprint(v)); title != "" {
			c.Title = title
		}
	}
	if v, ok := boolValue(doc.Meta[keyPublished]); ok {
		c.Published = v
	}
	if v, ok := boolValue(doc.Meta[keyFeatured]); ok {
		c.Featured = v
	}
	if v, ok := doc.Meta[keyCategory]; ok {
		c.CategoryID, c.Category = nil, nil
		if catSlug := strings.TrimSpace(fmt.Sprint(v)); catSlug != "" {
			cat, err := m.categories.FindBySlug(ctx, catSlug)
			if err != nil {
				return SyncSkipped, err
			}
			if cat != nil {
				c.CategoryID = &cat.ID
			} else {
				slog.Warn("unknown category in front-matter", "path", canonical, "category", catSlug)
			}
		}
	}
	newTags := oldTags
	if v, ok := doc.Meta[keyTags]; ok {
		newTags = tagList(v)
	}

	tagsChanged := !sameTags(oldTags, newTags)
	if existing != nil && !tagsChanged && sameRow(existing, c) {
		return SyncUnchanged, nil
	}

	if err := m.contents.Save(ctx, c); err != nil {
		return SyncSkipped, err
	}
	if existing == nil || tagsChanged {
		if err := m.setTags(ctx, c, newTags); err != nil {
			return SyncSkipped, fmt.Errorf("sync content tags: %w", err)
		}
	}

	c.RawBody = doc.Content
	m.index.IndexContent(ctx, c)

	if existing == nil {
		slog.Info("content file added", "id", c.ID, "type", typ, "slug", s, "status", c.Status())
		return SyncCreated, nil
	}
	if existing.ContentHash != c.ContentHash {
		m.cache.Invalidate(ctx, existing.ContentHash)
	}
	slog.Info("content file changed", "id", c.ID, "type", typ, "slug", s, "status", c.Status())
	return SyncUpdated, nil
}

// ForgetFile removes the row of a body file that was deleted outside the
// manager. It does nothing while the file still exists.
func (m *Manager) ForgetFile(ctx context.Context, path string) (res SyncResult, err error) {
	ctx, span := m.startSpan(ctx, "ForgetFile", attribute.String("file.path", path))
	defer func() { endSpan(span, err) }()

	typ, s, ok := m.registry.Resolve(path)
	if !ok {
		return SyncSkipped, nil
	}
	c, err := m.contents.FindByTypeAndSlug(ctx, typ, s)
	if err != nil || c == nil {
		return SyncSkipped, err
	}
	if d, err := m.driverFor(c); err == nil && d.Exists(c.FilePath) {
		return SyncUnchanged, nil
	}
	if err := m.forget(ctx, c); err != nil {
		return SyncSkipped, err
	}
	slog.Info("content file removed", "id", c.ID, "type", typ, "slug", s)
	return SyncRemoved, nil
}

// forget drops the index entry, row and cached render of c.
func (m *Manager) forget(ctx context.Context, c *models.Content) error {
	m.index.RemoveFromIndex(ctx, c)
	if err := m.contents.Delete(ctx, c); err != nil {
		return err
	}
	m.cache.Invalidate(ctx, c.ContentHash)
	return nil
}

// sameRow reports whether syncing next over prev would change the row.
func sameRow(prev, next *models.Content) bool {
	if prev.Title != next.Title || prev.ContentHash != next.ContentHash ||
		prev.Published != next.Published || prev.Featured != next.Featured ||
		prev.FilePath != next.FilePath {
		return false
	}
	if (prev.CategoryID == nil) != (next.CategoryID == nil) ||
		(prev.CategoryID != nil && *prev.CategoryID != *next.CategoryID) {
		return false
	}
	// Compared through JSON so YAML and database number types agree.
	a, errA := json.Marshal(userMeta(prev.Meta))
	b, errB := json.Marshal(next.Meta)
	return errA == nil && errB == nil && string(a) == string(b)
}

// sameTags compares tag name lists by slug, ignoring order.
func sameTags(a, b []string) bool {
	norm := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if s := slug.Generate(n); s != "" {
				out = append(out, s)
			}
		}
		slices.Sort(out)
		return slices.Compact(out)
	}
	return slices.Equal(norm(a), norm(b))
}

// boolValue reads a front-matter flag written as a YAML bool or a string.
func boolValue(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

// tagList reads tags written as a comma separated string or a list.
func tagList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			raw = append(raw, fmt.Sprint(item))
		}
	case nil:
	default:
		raw = []string{fmt.Sprint(t)}
	}
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// humanize turns a slug into a title: "getting-started" gives
// "Getting started".
func humanize(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
