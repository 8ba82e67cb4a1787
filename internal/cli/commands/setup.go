package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tagmark-lang/tagmark/internal/config"
	"github.com/tagmark-lang/tagmark/internal/project"
	"github.com/tagmark-lang/tagmark/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Store   *state.SQLiteStore
	Project *project.Project
}

// NewCommandContext creates a CommandContext with an opened state store
// and a project. Returns the context and a cleanup function that must be
// called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	log := config.LoggerFromContext(cmd.Context())

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  log,
		Store:   store,
		Project: project.New(cfg, store, log),
	}, cleanup, nil
}

func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
