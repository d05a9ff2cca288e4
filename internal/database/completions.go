package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

const completionColumns = `id, habit_id, date, completed, completed_at, sync_status, last_synced_at, updated_at`

// CompletionRepository handles completion database operations
type CompletionRepository struct {
	db *DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Upsert inserts a completion, overwriting any existing record for the same
// (habit_id, date). The uniqueness constraint makes same-day writes replace
// rather than duplicate, which is what keeps toggling idempotent under rapid
// double-invocation.
func (r *CompletionRepository) Upsert(ctx context.Context, completion *models.Completion) error {
	query := `
		INSERT INTO completions (` + completionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			sync_status = EXCLUDED.sync_status,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at
	`

	completion.Date = models.DateOnly(completion.Date)
	completion.UpdatedAt = time.Now().UTC()

	var lastSynced sql.NullTime
	if completion.LastSyncedAt != nil {
		lastSynced = sql.NullTime{Time: *completion.LastSyncedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		completion.ID,
		completion.HabitID,
		completion.Date,
		completion.Completed,
		completion.CompletedAt,
		completion.SyncStatus,
		lastSynced,
		completion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert completion: %w", err)
	}

	return nil
}

// GetByID retrieves a completion by id
func (r *CompletionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Completion, error) {
	query := `SELECT ` + completionColumns + ` FROM completions WHERE id = $1`
	return r.scanCompletion(r.db.QueryRowContext(ctx, query, id))
}

// GetByHabitAndDate retrieves the completion for a habit on a calendar date
func (r *CompletionRepository) GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Completion, error) {
	query := `SELECT ` + completionColumns + ` FROM completions WHERE habit_id = $1 AND date = $2`
	return r.scanCompletion(r.db.QueryRowContext(ctx, query, habitID, models.DateOnly(date)))
}

// ListByHabitID retrieves all completions for a habit
func (r *CompletionRepository) ListByHabitID(ctx context.Context, habitID uuid.UUID) ([]*models.Completion, error) {
	query := `SELECT ` + completionColumns + ` FROM completions WHERE habit_id = $1 ORDER BY date`
	return r.queryCompletions(ctx, query, habitID)
}

// ListPending retrieves the completions awaiting upload for a user's habits
func (r *CompletionRepository) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error) {
	query := `SELECT c.` + completionColumnsAliased("c") + ` FROM completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.user_id = $1 AND c.sync_status IN ($2, $3)
		ORDER BY c.date`
	return r.queryCompletions(ctx, query, userID, models.SyncStatusPending, models.SyncStatusFailed)
}

// Delete removes the completion for a habit on a calendar date
func (r *CompletionRepository) Delete(ctx context.Context, habitID uuid.UUID, date time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM completions WHERE habit_id = $1 AND date = $2`,
		habitID, models.DateOnly(date),
	)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("completion for habit %s on %s: %w", habitID, models.FormatDate(date), ErrNotFound)
	}
	return nil
}

// SetSyncStatus updates only a completion's sync lifecycle fields
func (r *CompletionRepository) SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error {
	var lastSynced sql.NullTime
	if lastSyncedAt != nil {
		lastSynced = sql.NullTime{Time: *lastSyncedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE completions SET sync_status = $2, last_synced_at = COALESCE($3, last_synced_at) WHERE id = $1`,
		id, status, lastSynced,
	)
	if err != nil {
		return fmt.Errorf("failed to update completion sync status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("completion %s: %w", id, ErrNotFound)
	}
	return nil
}

// ResetSyncing reverts completions stuck in the transient syncing state back
// to pending for a user's habits.
func (r *CompletionRepository) ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE completions SET sync_status = $3
		WHERE sync_status = $2 AND habit_id IN (SELECT id FROM habits WHERE user_id = $1)`,
		userID, models.SyncStatusSyncing, models.SyncStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset syncing completions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func (r *CompletionRepository) queryCompletions(ctx context.Context, query string, args ...any) ([]*models.Completion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []*models.Completion
	for rows.Next() {
		completion, err := r.scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, completion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completions: %w", err)
	}
	return completions, nil
}

func (r *CompletionRepository) scanCompletion(row rowScanner) (*models.Completion, error) {
	completion := &models.Completion{}
	var lastSynced sql.NullTime

	err := row.Scan(
		&completion.ID,
		&completion.HabitID,
		&completion.Date,
		&completion.Completed,
		&completion.CompletedAt,
		&completion.SyncStatus,
		&lastSynced,
		&completion.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("completion: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion: %w", err)
	}

	completion.Date = models.DateOnly(completion.Date)
	if lastSynced.Valid {
		completion.LastSyncedAt = &lastSynced.Time
	}

	return completion, nil
}

// completionColumnsAliased prefixes each completion column with a table alias
func completionColumnsAliased(alias string) string {
	return `id, ` + alias + `.habit_id, ` + alias + `.date, ` + alias + `.completed, ` +
		alias + `.completed_at, ` + alias + `.sync_status, ` + alias + `.last_synced_at, ` + alias + `.updated_at`
}
