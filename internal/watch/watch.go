// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package watch keeps content rows in step with body files edited outside
// Orbit.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"orbit/internal/content"
	"orbit/internal/filedriver"
)

const (
	defaultDebounce = 150 * time.Millisecond
	tick            = 50 * time.Millisecond
)

// Syncer applies file changes. *content.Manager implements it.
type Syncer interface {
	SyncFile(ctx context.Context, path string) (content.SyncResult, error)
	ForgetFile(ctx context.Context, path string) (content.SyncResult, error)
}

// Watcher watches every content type directory of a registry.
type Watcher struct {
	registry *filedriver.Registry
	syncer   Syncer
	debounce time.Duration

	pending map[string]time.Time
}

// New creates a Watcher. A zero debounce uses the default; editors that
// save in several steps settle within it.
func New(registry *filedriver.Registry, syncer Syncer, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		registry: registry,
		syncer:   syncer,
		debounce: debounce,
		pending:  map[string]time.Time{},
	}
}

// Run watches until ctx is cancelled. Missing type directories are
// created so files added later are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	for _, typ := range w.registry.Types() {
		dir, _ := w.registry.Dir(typ)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create content directory: %w", err)
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		slog.Info("watching content directory", "type", typ, "dir", dir)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(ctx, time.Time{})
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.observe(event, time.Now())
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("content watcher error", "error", err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

// observe records a relevant event; the path is synced once it has been
// quiet for the debounce period.
func (w *Watcher) observe(event fsnotify.Event, now time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	if _, _, ok := w.registry.Resolve(event.Name); !ok {
		return
	}
	w.pending[event.Name] = now
}

// flush syncs every path whose last event is older than the debounce
// period. A zero now flushes everything.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	for path, at := range w.pending {
		if !now.IsZero() && now.Sub(at) < w.debounce {
			continue
		}
		delete(w.pending, path)
		w.apply(ctx, path)
	}
}

func (w *Watcher) apply(ctx context.Context, path string) {
	var (
		res content.SyncResult
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		res, err = w.syncer.SyncFile(ctx, path)
	} else {
		res, err = w.syncer.ForgetFile(ctx, path)
	}
	if err != nil {
		slog.Error("content sync failed", "path", path, "error", err)
		return
	}
	slog.Debug("content file synced", "path", path, "result", res.String())
}
