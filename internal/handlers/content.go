// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"orbit/internal/content"
	"orbit/internal/search"
)

const defaultFeaturedLimit = 10

type createRequest struct {
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Body        string         `json:"body"`
	Meta        map[string]any `json:"meta"`
	Published   bool           `json:"published"`
	Featured    bool           `json:"featured"`
	CategoryID  *int64         `json:"category_id"`
	Tags        []string       `json:"tags"`
	PublishedAt *time.Time     `json:"published_at"`
}

// updateRequest is a partial update; absent fields are left unchanged.
type updateRequest struct {
	Title         *string        `json:"title"`
	Slug          *string        `json:"slug"`
	Body          *string        `json:"body"`
	Meta          map[string]any `json:"meta"`
	Published     *bool          `json:"published"`
	Featured      *bool          `json:"featured"`
	CategoryID    *int64         `json:"category_id"`
	ClearCategory bool           `json:"clear_category"`
	Tags          *[]string      `json:"tags"`
	PublishedAt   *time.Time     `json:"published_at"`
}

// ListContent lists content newest first, optionally filtered by type and
// published state.
func (a *API) ListContent(w http.ResponseWriter, r *http.Request) {
	published, err := queryBool(r, "published", false)
	if err != nil {
		badRequest(w, r, "published must be a boolean")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	items, err := a.manager.GetAllContent(r.Context(), content.ListOptions{
		Type:          r.URL.Query().Get("type"),
		PublishedOnly: published,
		Limit:         uint64(limit),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// GetContent returns one item with its raw and rendered body.
func (a *API) GetContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := chi.URLParam(r, "type")
	slug := chi.URLParam(r, "slug")

	c, err := a.manager.FindContent(ctx, typ, slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		notFound(w, r, "content")
		return
	}
	if err := a.manager.LoadContentFromFile(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Featured lists published featured content.
func (a *API) Featured(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if limit == 0 {
		limit = defaultFeaturedLimit
	}

	items, err := a.manager.GetFeaturedContent(r.Context(), r.URL.Query().Get("type"), uint64(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// CreateContent creates an item of the type in the URL.
func (a *API) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if msg := validateContent(req.Title, req.Slug, req.Body); msg != "" {
		badRequest(w, r, msg)
		return
	}
	if msg := validateTags(req.Tags); msg != "" {
		badRequest(w, r, msg)
		return
	}

	c, err := a.manager.CreateContent(r.Context(), chi.URLParam(r, "type"), content.CreateInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Body:        req.Body,
		Meta:        req.Meta,
		Published:   req.Published,
		Featured:    req.Featured,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContent applies a partial update to the item with the URL id.
func (a *API) UpdateContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if msg := validateUpdate(&req); msg != "" {
		badRequest(w, r, msg)
		return
	}

	c, err := a.manager.FindContentByID(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		notFound(w, r, "content")
		return
	}

	updated, err := a.manager.UpdateContent(ctx, c, content.UpdateInput{
		Title:         req.Title,
		Slug:          req.Slug,
		Body:          req.Body,
		Meta:          req.Meta,
		Published:     req.Published,
		Featured:      req.Featured,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Tags:          req.Tags,
		PublishedAt:   req.PublishedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteContent removes the item with the URL id. Deleting a missing item
// succeeds.
func (a *API) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := a.manager.DeleteContentByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search runs a full-text query over published content.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if msg := validateQuery(q); msg != "" {
		badRequest(w, r, msg)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	results, err := a.manager.Search(r.Context(), q, search.Filters{
		Type:  r.URL.Query().Get("type"),
		Limit: limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

// parseID reads the id URL parameter, answering 400 when it is malformed.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, r, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
