// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and the middleware chain for the
// Orbit API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"orbit/internal/handlers"
	"orbit/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and routes wired up.
func New(api *handlers.API) chi.Router {
	r := chi.NewRouter()

	// Global middleware, outermost first. RequestID runs before the
	// logger and recoverer so both can report the id.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/content", func(r chi.Router) {
			r.Get("/", api.ListContent)
			r.Get("/{type}/{slug}", api.GetContent)
			r.Post("/{type}", api.CreateContent)
			r.Patch("/{id}", api.UpdateContent)
			r.Delete("/{id}", api.DeleteContent)
		})

		r.Get("/featured", api.Featured)
		r.Get("/search", api.Search)
		r.Get("/stats", api.Stats)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", api.Categories)
			r.Post("/", api.CreateCategory)
			r.Get("/tree", api.CategoryTree)
			r.Put("/order", api.ReorderCategories)
			r.Get("/{slug}", api.GetCategory)
			r.Get("/{slug}/content", api.CategoryContent)
			r.Delete("/{id}", api.DeleteCategory)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", api.Tags)
			r.Get("/{slug}/content", api.TagContent)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
