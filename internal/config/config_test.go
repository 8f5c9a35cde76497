// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envVars = []string{
	"ORBIT_HOST", "ORBIT_PORT", "ORBIT_ENV", "ORBIT_LOG_LEVEL",
	"ORBIT_DB_PATH", "ORBIT_CONTENT_ROOT", "ORBIT_CONFIG_FILE",
	"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD",
	"ORBIT_SEARCH_MIN_LENGTH", "ORBIT_SEARCH_SNIPPET_TOKENS",
	"ORBIT_REQUIRE_FTS",
}

// clearEnv sets every variable Load reads to empty, which envOrDefault
// treats the same as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults verifies that Load returns sensible development defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	check := func(field, got, want string) {
		t.Helper()
		if got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	check("Host", cfg.Host, "0.0.0.0")
	check("Port", cfg.Port, "8080")
	check("Env", cfg.Env, "development")
	check("LogLevel", cfg.LogLevel, "info")
	check("DBPath", cfg.DBPath, "data/orbit.db")
	check("ContentRoot", cfg.ContentRoot, "content")
	check("ValkeyPort", cfg.ValkeyPort, "6379")
	check("Addr", cfg.Addr(), "0.0.0.0:8080")

	if !cfg.IsDev() {
		t.Error("IsDev() should be true by default")
	}
	if cfg.CacheEnabled() {
		t.Error("cache should be disabled without VALKEY_HOST")
	}
	if cfg.RequireFullText {
		t.Error("full-text search should be optional in development")
	}
	if cfg.Search.MinQueryLength != 3 || cfg.Search.SnippetTokens != 32 {
		t.Errorf("search defaults: %+v", cfg.Search)
	}

	specs := cfg.TypeSpecs()
	for _, typ := range []string{"page", "post", "docs"} {
		spec, ok := specs[typ]
		if !ok {
			t.Errorf("default content type %q missing", typ)
			continue
		}
		if spec.Driver != "markdown" || spec.Path != "" {
			t.Errorf("type %q: got %+v", typ, spec)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORBIT_PORT", "9090")
	t.Setenv("ORBIT_ENV", "production")
	t.Setenv("VALKEY_HOST", "cache")
	t.Setenv("ORBIT_SEARCH_MIN_LENGTH", "2")
	t.Setenv("ORBIT_SEARCH_SNIPPET_TOKENS", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.IsDev() || !cfg.CacheEnabled() {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.IsProduction() || !cfg.RequireFullText {
		t.Errorf("production should require full-text search: %+v", cfg)
	}
	opts := cfg.SearchOptions()
	if opts.MinQueryLength != 2 || opts.SnippetTokens != 16 || opts.HighlightOpen != "<mark>" {
		t.Errorf("search options: %+v", opts)
	}
}

func TestLoad_RequireFullTextOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORBIT_ENV", "production")
	t.Setenv("ORBIT_REQUIRE_FTS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.RequireFullText {
		t.Error("ORBIT_REQUIRE_FTS=false should override the production default")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "orbit.yaml")
	data := `
content_types:
  guide:
    path: guides
    driver: markdown
  snippet:
    driver: json
search:
  snippet_tokens: 20
  highlight_open: "<em>"
  highlight_close: "</em>"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORBIT_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if len(cfg.ContentTypes) != 2 {
		t.Fatalf("content types from file should replace defaults, got %v", cfg.ContentTypes)
	}
	if cfg.ContentTypes["guide"].Path != "guides" || cfg.ContentTypes["snippet"].Driver != "json" {
		t.Errorf("content types: %+v", cfg.ContentTypes)
	}
	if cfg.Search.SnippetTokens != 20 || cfg.Search.HighlightOpen != "<em>" {
		t.Errorf("search from file: %+v", cfg.Search)
	}
	if cfg.Search.MinQueryLength != 3 {
		t.Errorf("unset search keys keep defaults, got %d", cfg.Search.MinQueryLength)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
		want string
	}{
		{name: "port", env: map[string]string{"ORBIT_PORT": "http"}, want: "Port"},
		{name: "env", env: map[string]string{"ORBIT_ENV": "staging"}, want: "Env"},
		{name: "log level", env: map[string]string{"ORBIT_LOG_LEVEL": "loud"}, want: "LogLevel"},
		{name: "snippet tokens", env: map[string]string{"ORBIT_SEARCH_SNIPPET_TOKENS": "100"}, want: "SnippetTokens"},
		{name: "not a number", env: map[string]string{"ORBIT_SEARCH_MIN_LENGTH": "three"}, want: "ORBIT_SEARCH_MIN_LENGTH"},
		{name: "not a boolean", env: map[string]string{"ORBIT_REQUIRE_FTS": "maybe"}, want: "ORBIT_REQUIRE_FTS"},
		{name: "driver", file: "content_types:\n  page:\n    driver: xml\n", want: "Driver"},
		{name: "missing file", env: map[string]string{"ORBIT_CONFIG_FILE": "/does/not/exist.yaml"}, want: "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "orbit.yaml")
				if err := os.WriteFile(path, []byte(tt.file), 0o644); err != nil {
					t.Fatal(err)
				}
				t.Setenv("ORBIT_CONFIG_FILE", path)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}
