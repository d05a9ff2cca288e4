package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/clock"
	"github.com/strideapp/habitsync/internal/config"
	"github.com/strideapp/habitsync/internal/database"
	"github.com/strideapp/habitsync/internal/remote"
	syncengine "github.com/strideapp/habitsync/internal/sync"
)

// adminEnv bundles the connections the admin commands share.
type adminEnv struct {
	cfg         *config.Config
	db          *database.DB
	habits      *database.HabitRepository
	completions *database.CompletionRepository
	remote      remote.Store
	engine      *syncengine.Engine
}

func newAdminEnv() (*adminEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	habits := database.NewHabitRepository(db)
	completions := database.NewCompletionRepository(db)

	var remoteStore remote.Store
	if cfg.RemoteAPIURL != "" {
		remoteStore = remote.NewClient(cfg.RemoteAPIURL, cfg.RemoteAPIToken)
	} else {
		remoteStore = remote.NewNoop()
	}

	engine := syncengine.NewEngine(habits, completions, remoteStore, clock.System{}, nil)

	return &adminEnv{
		cfg:         cfg,
		db:          db,
		habits:      habits,
		completions: completions,
		remote:      remoteStore,
		engine:      engine,
	}, nil
}

func (e *adminEnv) close() {
	if err := e.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

func parseUserFlag(raw string) (uuid.UUID, error) {
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user value %q: %w", raw, err)
	}
	return userID, nil
}
