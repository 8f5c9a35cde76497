// Package main is the entry point for the Orbit content engine. It loads
// configuration, opens the database and content root, and dispatches to
// the serve, sync, reindex, watch and seed commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"orbit/internal/cache"
	"orbit/internal/config"
	"orbit/internal/content"
	"orbit/internal/database"
	"orbit/internal/filedriver"
)

// Deps holds what every command needs. It is filled in by the root
// command before a subcommand runs.
type Deps struct {
	Config  *config.Config
	DB      *sqlx.DB
	Manager *content.Manager

	valkey *redis.Client
}

// Close releases the database and cache connections.
func (d *Deps) Close() {
	if d.valkey != nil {
		d.valkey.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := &Deps{}
	err := NewRootCmd(deps).ExecuteContext(ctx)
	deps.Close()
	if err != nil {
		slog.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// NewRootCmd returns the orbit root command with all subcommands attached.
func NewRootCmd(deps *Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "orbit",
		Short:         "file-backed content engine with full-text search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.open(cmd.Context())
		},
	}

	root.AddCommand(
		NewServeCmd(deps),
		NewSyncCmd(deps),
		NewReindexCmd(deps),
		NewWatchCmd(deps),
		NewSeedCmd(deps),
	)
	return root
}

// open loads configuration and connects every backing service.
func (d *Deps) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	d.Config = cfg
	setupLogger(cfg)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"db", cfg.DBPath,
	)

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	d.DB = db

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	registry, err := filedriver.NewRegistry(cfg.ContentRoot, cfg.TypeSpecs())
	if err != nil {
		return fmt.Errorf("content types: %w", err)
	}
	slog.Info("content types registered", "root", registry.Root(), "types", registry.Types())

	// The render cache is optional; the engine works without Valkey.
	var renderCache *cache.RenderCache
	if cfg.CacheEnabled() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Warn("valkey unavailable, render cache disabled", "error", err)
		} else {
			d.valkey = client
			renderCache = cache.NewRenderCache(client, 0)
		}
	} else {
		slog.Info("valkey not configured, render cache disabled")
	}

	d.Manager = content.New(db, registry, content.Options{
		Search: cfg.SearchOptions(),
		Cache:  renderCache,
	})
	if err := d.Manager.Init(ctx); err != nil {
		return fmt.Errorf("initialise content manager: %w", err)
	}
	if !d.Manager.FullTextAvailable() {
		level := slog.LevelWarn
		if cfg.IsProduction() {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "sqlite built without FTS5, search uses substring fallback",
			"hint", "build with -tags sqlite_fts5")
	}
	return nil
}

// setupLogger installs a text handler in development and a JSON handler
// otherwise.
func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
