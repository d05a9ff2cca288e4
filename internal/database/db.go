package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err indicates a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// New opens a Postgres connection pool and verifies connectivity
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates the habit and completion tables if they do not exist.
// Completions cascade-delete with their habit and carry a uniqueness
// constraint on (habit_id, date) so a same-day insert overwrites rather than
// duplicating.
func (db *DB) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS habits (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			recurrence TEXT NOT NULL,
			target_weekdays JSONB NOT NULL DEFAULT '[]',
			priority TEXT NOT NULL DEFAULT 'medium',
			category TEXT NOT NULL DEFAULT '',
			current_streak INT NOT NULL DEFAULT 0,
			last_completed_date DATE,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			last_synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits (user_id);
		CREATE INDEX IF NOT EXISTS idx_habits_sync_status ON habits (user_id, sync_status);

		CREATE TABLE IF NOT EXISTS completions (
			id UUID PRIMARY KEY,
			habit_id UUID NOT NULL REFERENCES habits (id) ON DELETE CASCADE,
			date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT TRUE,
			completed_at TIMESTAMPTZ NOT NULL,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			last_synced_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (habit_id, date)
		);
		CREATE INDEX IF NOT EXISTS idx_completions_habit_id ON completions (habit_id);
		CREATE INDEX IF NOT EXISTS idx_completions_sync_status ON completions (sync_status);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
