package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/whiteboard"
	"github.com/meikuraledutech/whiteboard/config"
	"github.com/meikuraledutech/whiteboard/logsink"
	"github.com/meikuraledutech/whiteboard/postgres"
	"github.com/meikuraledutech/whiteboard/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "whiteboard",
	Short:         "Node canvas for composing image generation workflows",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, keysCmd)
}

// loadConfig reads .env and the TOML config.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return config.Load()
}

// openSettings connects the configured settings backend and makes sure its
// schema exists. The returned func releases it.
func openSettings(ctx context.Context, cfg *config.Config) (whiteboard.Settings, func(), error) {
	var (
		store   whiteboard.Settings
		closeFn func()
	)
	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, nil, errors.New("store backend postgres needs DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		store, closeFn = postgres.New(pool), pool.Close
	case "sqlite", "":
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = db, func() { db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if err := store.CreateSchema(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("schema: %w", err)
	}
	return store, closeFn, nil
}

// newLogger routes every record into sink and mirrors it to stderr.
func newLogger(cfg config.LogConfig, sink *logsink.Sink) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.JSON {
		base = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(sink.Handler(base))
}
