package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

// HabitStore defines the local store operations the sync engine and repository
// facade need for habits. The interface enables in-memory fakes in tests and
// keeps the engine independent of the persistence backend.
type HabitStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error)
	Upsert(ctx context.Context, habit *models.Habit) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error
	UpdateDerived(ctx context.Context, id uuid.UUID, streak int, lastCompleted *time.Time) error
	ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CompletionStore defines the local store operations for completions
type CompletionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Completion, error)
	GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Completion, error)
	ListByHabitID(ctx context.Context, habitID uuid.UUID) ([]*models.Completion, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error)
	Upsert(ctx context.Context, completion *models.Completion) error
	Delete(ctx context.Context, habitID uuid.UUID, date time.Time) error
	SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error
	ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Ensure concrete types implement the interfaces
var (
	_ HabitStore      = (*HabitRepository)(nil)
	_ CompletionStore = (*CompletionRepository)(nil)
)
