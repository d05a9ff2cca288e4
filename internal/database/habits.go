package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

const habitColumns = `id, user_id, name, description, recurrence, target_weekdays, priority, category,
	current_streak, last_completed_date, sync_status, last_synced_at, created_at, updated_at`

// HabitRepository handles habit database operations
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Upsert inserts or replaces a habit keyed by id
func (r *HabitRepository) Upsert(ctx context.Context, habit *models.Habit) error {
	query := `
		INSERT INTO habits (` + habitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			recurrence = EXCLUDED.recurrence,
			target_weekdays = EXCLUDED.target_weekdays,
			priority = EXCLUDED.priority,
			category = EXCLUDED.category,
			current_streak = EXCLUDED.current_streak,
			last_completed_date = EXCLUDED.last_completed_date,
			sync_status = EXCLUDED.sync_status,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at
	`

	weekdaysJSON, err := json.Marshal(habit.TargetWeekdays)
	if err != nil {
		return fmt.Errorf("failed to marshal target weekdays: %w", err)
	}

	now := time.Now().UTC()
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = now
	}
	habit.UpdatedAt = now

	var lastCompleted sql.NullTime
	if habit.LastCompletedDate != nil {
		lastCompleted = sql.NullTime{Time: *habit.LastCompletedDate, Valid: true}
	}
	var lastSynced sql.NullTime
	if habit.LastSyncedAt != nil {
		lastSynced = sql.NullTime{Time: *habit.LastSyncedAt, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		habit.ID,
		habit.UserID,
		habit.Name,
		habit.Description,
		habit.Recurrence,
		weekdaysJSON,
		habit.Priority,
		habit.Category,
		habit.CurrentStreak,
		lastCompleted,
		habit.SyncStatus,
		lastSynced,
		habit.CreatedAt,
		habit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert habit: %w", err)
	}

	return nil
}

// GetByID retrieves a habit by id
func (r *HabitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`
	return r.scanHabit(r.db.QueryRowContext(ctx, query, id))
}

// ListByUserID retrieves all habits for a user
func (r *HabitRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryHabits(ctx, query, userID)
}

// ListPending retrieves the habits awaiting upload (pending or failed)
func (r *HabitRepository) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits
		WHERE user_id = $1 AND sync_status IN ($2, $3)
		ORDER BY created_at`
	return r.queryHabits(ctx, query, userID, models.SyncStatusPending, models.SyncStatusFailed)
}

// ListUserIDs returns the distinct user ids that own at least one habit
func (r *HabitRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM habits`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}
	return ids, nil
}

// SetSyncStatus updates only a habit's sync lifecycle fields
func (r *HabitRepository) SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error {
	var lastSynced sql.NullTime
	if lastSyncedAt != nil {
		lastSynced = sql.NullTime{Time: *lastSyncedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE habits SET sync_status = $2, last_synced_at = COALESCE($3, last_synced_at) WHERE id = $1`,
		id, status, lastSynced,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit sync status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateDerived persists the recomputed streak fields without touching
// user-visible fields or the sync lifecycle.
func (r *HabitRepository) UpdateDerived(ctx context.Context, id uuid.UUID, streak int, lastCompleted *time.Time) error {
	var last sql.NullTime
	if lastCompleted != nil {
		last = sql.NullTime{Time: *lastCompleted, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE habits SET current_streak = $2, last_completed_date = $3 WHERE id = $1`,
		id, streak, last,
	)
	if err != nil {
		return fmt.Errorf("failed to update derived habit fields: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}

// ResetSyncing reverts any habit stuck in the transient syncing state back to
// pending. Called at the end of a reconciliation run so no record is ever left
// syncing.
func (r *HabitRepository) ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE habits SET sync_status = $3 WHERE user_id = $1 AND sync_status = $2`,
		userID, models.SyncStatusSyncing, models.SyncStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset syncing habits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Delete deletes a habit; its completions cascade at the schema level
func (r *HabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *HabitRepository) queryHabits(ctx context.Context, query string, args ...any) ([]*models.Habit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []*models.Habit
	for rows.Next() {
		habit, err := r.scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *HabitRepository) scanHabit(row rowScanner) (*models.Habit, error) {
	habit := &models.Habit{}
	var weekdaysJSON []byte
	var lastCompleted, lastSynced sql.NullTime

	err := row.Scan(
		&habit.ID,
		&habit.UserID,
		&habit.Name,
		&habit.Description,
		&habit.Recurrence,
		&weekdaysJSON,
		&habit.Priority,
		&habit.Category,
		&habit.CurrentStreak,
		&lastCompleted,
		&habit.SyncStatus,
		&lastSynced,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("habit: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}

	if err := json.Unmarshal(weekdaysJSON, &habit.TargetWeekdays); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target weekdays: %w", err)
	}
	if lastCompleted.Valid {
		d := models.DateOnly(lastCompleted.Time)
		habit.LastCompletedDate = &d
	}
	if lastSynced.Valid {
		habit.LastSyncedAt = &lastSynced.Time
	}

	return habit, nil
}
