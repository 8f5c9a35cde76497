// Package config handles application configuration loading from environment
// variables and an optional YAML file. It provides a centralized Config
// struct used across the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"orbit/internal/filedriver"
	"orbit/internal/search"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
	Env  string `validate:"oneof=development production testing"`

	LogLevel string `validate:"oneof=debug info warn error"`

	// SQLite database file and the directory holding content bodies.
	DBPath      string `validate:"required"`
	ContentRoot string `validate:"required"`

	// ConfigFile is the optional YAML file with content types and search
	// settings.
	ConfigFile string

	// Valkey (Redis-compatible render cache). An empty host disables it.
	ValkeyHost     string
	ValkeyPort     string `validate:"required_with=ValkeyHost"`
	ValkeyPassword string

	// RequireFullText makes serve refuse to start on a SQLite build
	// without FTS5. It defaults to true in production.
	RequireFullText bool

	ContentTypes map[string]ContentType `yaml:"content_types" validate:"required,min=1,dive,keys,required,endkeys"`
	Search       SearchConfig           `yaml:"search"`
}

// ContentType configures where files of one type live and how they are
// encoded. An empty path defaults to the type name.
type ContentType struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver" validate:"omitempty,oneof=markdown md json"`
}

// SearchConfig tunes the search index.
type SearchConfig struct {
	MinQueryLength int    `yaml:"min_query_length" validate:"min=1"`
	SnippetTokens  int    `yaml:"snippet_tokens" validate:"min=1,max=64"`
	HighlightOpen  string `yaml:"highlight_open"`
	HighlightClose string `yaml:"highlight_close"`
	DefaultLimit   int    `yaml:"default_limit" validate:"min=1"`
}

// fileConfig is the shape of the YAML file.
type fileConfig struct {
	ContentTypes map[string]ContentType `yaml:"content_types"`
	Search       SearchConfig           `yaml:"search"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables, applying defaults
// for development where appropriate, merges the YAML file named by
// ORBIT_CONFIG_FILE and validates the result.
func Load() (*Config, error) {
	defaults := search.DefaultOptions()
	cfg := &Config{
		Host: envOrDefault("ORBIT_HOST", "0.0.0.0"),
		Port: envOrDefault("ORBIT_PORT", "8080"),
		Env:  envOrDefault("ORBIT_ENV", "development"),

		LogLevel: envOrDefault("ORBIT_LOG_LEVEL", "info"),

		DBPath:      envOrDefault("ORBIT_DB_PATH", "data/orbit.db"),
		ContentRoot: envOrDefault("ORBIT_CONTENT_ROOT", "content"),
		ConfigFile:  os.Getenv("ORBIT_CONFIG_FILE"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		ContentTypes: DefaultContentTypes(),
		Search: SearchConfig{
			MinQueryLength: defaults.MinQueryLength,
			SnippetTokens:  defaults.SnippetTokens,
			HighlightOpen:  defaults.HighlightOpen,
			HighlightClose: defaults.HighlightClose,
			DefaultLimit:   defaults.DefaultLimit,
		},
	}

	if cfg.ConfigFile != "" {
		if err := cfg.mergeFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.Search.MinQueryLength, err = envInt("ORBIT_SEARCH_MIN_LENGTH", cfg.Search.MinQueryLength); err != nil {
		return nil, err
	}
	if cfg.Search.SnippetTokens, err = envInt("ORBIT_SEARCH_SNIPPET_TOKENS", cfg.Search.SnippetTokens); err != nil {
		return nil, err
	}

	if cfg.RequireFullText, err = envBool("ORBIT_REQUIRE_FTS", cfg.IsProduction()); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

// DefaultContentTypes returns the built-in page, post and docs types, all
// stored as Markdown under a directory named after the type.
func DefaultContentTypes() map[string]ContentType {
	return map[string]ContentType{
		"page": {Driver: "markdown"},
		"post": {Driver: "markdown"},
		"docs": {Driver: "markdown"},
	}
}

// mergeFile overlays the YAML file at path. Content types in the file
// replace the defaults; search settings override only the keys present.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Pre-filled so keys missing from the file keep their values.
	fc := fileConfig{Search: c.Search}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.Search = fc.Search
	if len(fc.ContentTypes) > 0 {
		c.ContentTypes = fc.ContentTypes
	}
	return nil
}

// describe turns validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(msgs...))
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CacheEnabled reports whether a Valkey host is configured.
func (c *Config) CacheEnabled() bool {
	return c.ValkeyHost != ""
}

// TypeSpecs converts the content types for the file driver registry.
func (c *Config) TypeSpecs() map[string]filedriver.TypeSpec {
	specs := make(map[string]filedriver.TypeSpec, len(c.ContentTypes))
	for name, ct := range c.ContentTypes {
		specs[name] = filedriver.TypeSpec{Path: ct.Path, Driver: ct.Driver}
	}
	return specs
}

// SearchOptions converts the search settings for the search index.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		MinQueryLength: c.Search.MinQueryLength,
		SnippetTokens:  c.Search.SnippetTokens,
		HighlightOpen:  c.Search.HighlightOpen,
		HighlightClose: c.Search.HighlightClose,
		DefaultLimit:   c.Search.DefaultLimit,
	}
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt reads an integer environment variable, returning fallback if unset.
func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// envBool reads a boolean environment variable, returning fallback if unset.
func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
