// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"orbit/internal/content"
	"orbit/internal/models"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	SortOrder   int    `json:"sort_order"`
	Active      *bool  `json:"active"`
}

// Categories lists categories in display order. ?active=true hides
// inactive ones.
func (a *API) Categories(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active", false)
	if err != nil {
		badRequest(w, r, "active must be a boolean")
		return
	}
	cats, err := a.manager.Categories(r.Context(), active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

// CategoryTree returns the nested category hierarchy, or with ?flat=true
// the same categories depth-first with their depth set.
func (a *API) CategoryTree(w http.ResponseWriter, r *http.Request) {
	flat, err := queryBool(r, "flat", false)
	if err != nil {
		badRequest(w, r, "flat must be a boolean")
		return
	}
	var tree []models.Category
	if flat {
		tree, err = a.manager.FlatCategories(r.Context())
	} else {
		tree, err = a.manager.CategoryTree(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

// CreateCategory creates a category; an empty slug is derived from the
// name.
func (a *API) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}

	c := &models.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		Color:       req.Color,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		Active:      req.Active == nil || *req.Active,
	}
	if err := a.manager.SaveCategory(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCategory returns a category with its ancestors and children.
func (a *API) GetCategory(w http.ResponseWriter, r *http.Request) {
	d, err := a.manager.CategoryDetail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d == nil {
		notFound(w, r, "category")
		return
	}
	d.Ancestors = nonNil(d.Ancestors)
	d.Children = nonNil(d.Children)
	writeJSON(w, http.StatusOK, d)
}

// DeleteCategory removes a category. Its children become roots.
func (a *API) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	cat, err := a.manager.FindCategory(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cat == nil {
		notFound(w, r, "category")
		return
	}
	if err := a.manager.DeleteCategory(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderCategories moves categories in one batch. The body is a list of
// {id, parent_id, order} objects.
func (a *API) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var items []content.CategoryOrder
	if err := decodeJSON(w, r, &items); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if err := a.manager.ReorderCategories(r.Context(), items); err != nil {
		writeError(w, r, err)
		return
	}
	tree, err := a.manager.CategoryTree(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tree))
}

// CategoryContent lists the content of the category with the URL slug,
// including its subcategories unless ?descendants=false. Only published
// content is listed unless ?published=false.
func (a *API) CategoryContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	descendants, err := queryBool(r, "descendants", true)
	if err != nil {
		badRequest(w, r, "descendants must be a boolean")
		return
	}
	published, err := queryBool(r, "published", true)
	if err != nil {
		badRequest(w, r, "published must be a boolean")
		return
	}

	cat, err := a.manager.FindCategoryBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cat == nil {
		notFound(w, r, "category")
		return
	}

	items, err := a.manager.GetContentByCategory(ctx, cat.ID, descendants, published)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// Tags lists every tag with its usage count.
func (a *API) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.manager.Tags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

// TagContent lists the content carrying the tag with the URL slug.
func (a *API) TagContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	published, err := queryBool(r, "published", true)
	if err != nil {
		badRequest(w, r, "published must be a boolean")
		return
	}

	slug := chi.URLParam(r, "slug")
	tag, err := a.manager.FindTagBySlug(ctx, slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tag == nil {
		notFound(w, r, "tag")
		return
	}

	items, err := a.manager.GetContentByTag(ctx, slug, published)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}
