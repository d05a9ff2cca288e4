package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

// Noop is the remote half of a local-only deployment: every write is accepted
// and discarded, every fetch returns nothing. With a Noop store the sync
// engine still runs but reconciliation is trivially empty, so records settle
// into synced without ever leaving the machine.
type Noop struct{}

// NewNoop creates a no-op remote store
func NewNoop() Noop { return Noop{} }

func (Noop) UpsertHabit(ctx context.Context, habit *models.Habit, userID uuid.UUID) error {
	return nil
}

func (Noop) FetchHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	return nil, nil
}

func (Noop) DeleteHabit(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	return nil
}

func (Noop) UpsertCompletion(ctx context.Context, completion *models.Completion, userID uuid.UUID) error {
	return nil
}

func (Noop) FetchCompletions(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error) {
	return nil, nil
}

func (Noop) DeleteCompletion(ctx context.Context, habitID uuid.UUID, date time.Time, userID uuid.UUID) error {
	return nil
}

// Ensure Noop implements Store
var _ Store = Noop{}
