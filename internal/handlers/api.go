// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Orbit JSON API.
// Handlers receive their dependencies through the API struct and delegate
// every read and write to the content manager.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"orbit/internal/content"
	"orbit/internal/middleware"
)

// maxRequestBody bounds JSON request bodies. It leaves room for a body at
// maxBodyLen runes plus metadata.
const maxRequestBody = 2 << 20

// API groups the JSON endpoints.
type API struct {
	manager *content.Manager
}

// NewAPI creates the API handler group.
func NewAPI(manager *content.Manager) *API {
	return &API{manager: manager}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON sends data as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// badRequest sends a 400 with msg.
func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     msg,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// notFound sends a 404 naming what was missing.
func notFound(w http.ResponseWriter, r *http.Request, what string) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:     what + " not found",
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// writeError maps a manager error onto a status code. Unexpected errors
// are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		msg = "internal server error"
		if errors.Is(err, content.ErrBodyUnavailable) {
			msg = content.ErrBodyUnavailable.Error()
		}
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetRequestID(r.Context())})
}

func statusFor(err error) int {
	switch {
	case content.IsNotFound(err):
		return http.StatusNotFound
	case content.IsInvalid(err):
		return http.StatusBadRequest
	case content.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// queryBool parses a boolean query parameter, returning fallback when it
// is absent.
func queryBool(r *http.Request, key string, fallback bool) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

// queryLimit parses the limit query parameter, capped at maxResultLimit.
// Zero means the caller's default.
func queryLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return min(n, maxResultLimit), nil
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// statsResponse summarises the stored content.
type statsResponse struct {
	Content  map[string]int `json:"content"`
	FullText bool           `json:"full_text"`
}

// Stats reports item counts per content type and whether full-text search
// is available.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.manager.CountContent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Content: counts, FullText: a.manager.FullTextAvailable()})
}
