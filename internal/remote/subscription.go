package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strideapp/habitsync/internal/models"
)

// Snapshot is one delivery from a live subscription: the complete remote view
// of a user's habits and completions at poll time.
type Snapshot struct {
	Habits      []*models.Habit
	Completions []*models.Completion
	FetchedAt   time.Time
}

// Subscriber provides a live-updating query over a user's remote records
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID, interval time.Duration) (<-chan Snapshot, <-chan error)
}

// Subscribe polls the remote store on the given interval and delivers
// snapshots on the returned channel. Both channels close when the context is
// cancelled. Poll failures are reported on the error channel and polling
// continues; the subscription only ends with its context.
func (c *Client) Subscribe(ctx context.Context, userID uuid.UUID, interval time.Duration) (<-chan Snapshot, <-chan error) {
	snapshots := make(chan Snapshot, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snapshot, err := c.poll(ctx, userID)
			if err != nil {
				select {
				case errs <- err:
				default:
					// Drop when the consumer is not draining errors
				}
			} else {
				select {
				case <-ctx.Done():
					return
				case snapshots <- snapshot:
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return snapshots, errs
}

func (c *Client) poll(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	habits, err := c.FetchHabits(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	completions, err := c.FetchCompletions(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Habits:      habits,
		Completions: completions,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// Ensure Client implements Subscriber
var _ Subscriber = (*Client)(nil)
