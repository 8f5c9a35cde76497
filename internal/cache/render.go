// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// render.go provides a Valkey-backed cache of rendered content HTML.
// Entries are keyed by the content hash, so an edited body never hits a
// stale entry and invalidation is only needed to reclaim memory.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// renderKeyPrefix is the Valkey key prefix for rendered bodies.
	renderKeyPrefix = "render:"

	// DefaultRenderTTL is how long rendered HTML stays cached.
	DefaultRenderTTL = 30 * time.Minute
)

// RenderCache caches Markdown-to-HTML output. A nil *RenderCache is valid
// and behaves as an always-missing cache, so callers run unchanged without
// Valkey. Cache errors are logged and swallowed.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache creates a render cache backed by the given Valkey client.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	if ttl == 0 {
		ttl = DefaultRenderTTL
	}
	return &RenderCache{client: client, ttl: ttl}
}

// Get returns cached HTML for a content hash.
func (rc *RenderCache) Get(ctx context.Context, hash string) (string, bool) {
	if rc == nil || hash == "" {
		return "", false
	}
	val, err := rc.client.Get(ctx, renderKeyPrefix+hash).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("render cache get error", "hash", hash, "error", err)
		return "", false
	}
	slog.Debug("render cache hit", "hash", hash)
	return val, true
}

// Set stores rendered HTML for a content hash with the configured TTL.
func (rc *RenderCache) Set(ctx context.Context, hash, html string) {
	if rc == nil || hash == "" {
		return
	}
	if err := rc.client.Set(ctx, renderKeyPrefix+hash, html, rc.ttl).Err(); err != nil {
		slog.Warn("render cache set error", "hash", hash, "error", err)
	}
}

// Invalidate removes the entry of a content hash.
func (rc *RenderCache) Invalidate(ctx context.Context, hash string) {
	if rc == nil || hash == "" {
		return
	}
	if err := rc.client.Del(ctx, renderKeyPrefix+hash).Err(); err != nil {
		slog.Warn("render cache invalidate error", "hash", hash, "error", err)
		return
	}
	slog.Debug("render cache invalidated", "hash", hash)
}

// InvalidateAll removes every cached rendering by scanning for the prefix.
func (rc *RenderCache) InvalidateAll(ctx context.Context) {
	if rc == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, renderKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("render cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("render cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("render cache fully cleared", "deleted", deleted)
	}
}
