package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"orbit/internal/content"
	"orbit/internal/database"
	"orbit/internal/handlers"
	"orbit/internal/router"
	"orbit/internal/watch"
)

// NewServeCmd returns the `serve` command.
//
// Usage examples:
//
//	orbit serve
//	orbit serve --watch=false --sync
func NewServeCmd(deps *Deps) *cobra.Command {
	var (
		withWatch bool
		withSync  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if deps.Config.RequireFullText && !deps.Manager.FullTextAvailable() {
				return errors.New("sqlite built without fts5: rebuild with -tags sqlite_fts5 or set ORBIT_REQUIRE_FTS=false")
			}
			if withSync {
				if _, err := syncAll(ctx, deps); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:         deps.Config.Addr(),
				Handler:      router.New(handlers.NewAPI(deps.Manager)),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			watchDone := make(chan error, 1)
			watchCtx, stopWatch := context.WithCancel(ctx)
			defer stopWatch()
			if withWatch {
				w := watch.New(deps.Manager.Registry(), deps.Manager, 0)
				go func() { watchDone <- w.Run(watchCtx) }()
			} else {
				watchDone <- nil
			}

			serveErr := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
			case <-ctx.Done():
				slog.Info("shutdown signal received")
			}

			// Give active requests up to 30 seconds to complete.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			stopWatch()
			if err := <-watchDone; err != nil {
				slog.Error("content watcher stopped", "error", err)
			}
			slog.Info("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withWatch, "watch", true, "sync body files edited on disk while serving")
	cmd.Flags().BoolVar(&withSync, "sync", false, "reconcile rows with the content root before serving")
	return cmd
}

// NewSyncCmd returns the `sync` command.
func NewSyncCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "reconcile rows and the search index with the content root",
		Long: `Scan every content type directory, create or update rows for the files
found, remove rows whose file is gone, then rebuild the search index. Files
are treated as the source of truth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := syncAll(cmd.Context(), deps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"created %d, updated %d, unchanged %d, removed %d, failed %d, indexed %d\n",
				report.Created, report.Updated, report.Unchanged, report.Removed, report.Failed, report.Indexed)
			return nil
		},
	}
}

// NewReindexCmd returns the `reindex` command.
func NewReindexCmd(deps *Deps) *cobra.Command {
	var purgeCache bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the search index from the stored bodies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if purgeCache {
				deps.Manager.PurgeRenderCache(ctx)
			}
			n, err := deps.Manager.ReindexAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d items\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purgeCache, "purge-cache", false, "also drop every cached HTML rendering")
	return cmd
}

// NewWatchCmd returns the `watch` command.
func NewWatchCmd(deps *Deps) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "sync body files edited on disk until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := watch.New(deps.Manager.Registry(), deps.Manager, debounce)
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 150*time.Millisecond, "quiet period before a changed file is synced")
	return cmd
}

// NewSeedCmd returns the `seed` command.
func NewSeedCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "insert the default categories into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.Seed(cmd.Context(), deps.DB)
		},
	}
}

func syncAll(ctx context.Context, deps *Deps) (content.Report, error) {
	report, err := deps.Manager.Reconcile(ctx)
	if err != nil {
		return report, fmt.Errorf("reconcile content: %w", err)
	}
	slog.Info("content reconciled",
		"created", report.Created,
		"updated", report.Updated,
		"removed", report.Removed,
		"failed", report.Failed,
	)
	return report, nil
}
