// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecovererPanicValues(t *testing.T) {
	values := map[string]any{
		"string": "store exploded",
		"int":    42,
		"error":  errors.New("nil map write"),
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(v)
			})))

			req := httptest.NewRequest(http.MethodPost, "/api/content/post", nil)
			req.Header.Set(RequestIDHeader, "req-"+name)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status: got %d, want 500", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
			var body map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != "internal server error" {
				t.Errorf("error: got %q", body["error"])
			}
			if body["request_id"] != "req-"+name {
				t.Errorf("request_id: got %q, want %q", body["request_id"], "req-"+name)
			}
		})
	}
}

func TestRecovererRepanicsAbort(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search", nil))
	t.Error("ErrAbortHandler should propagate")
}

func TestRecovererPassThrough(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/api/content/post/first")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/content/post", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want 201", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/api/content/post/first" {
		t.Errorf("Location: got %q", got)
	}
	if rr.Body.String() != `{"id":1}` {
		t.Errorf("body: got %q", rr.Body.String())
	}
}
