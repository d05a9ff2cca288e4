package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strideapp/habitsync/internal/queue"
)

// UserLister enumerates the users that own records needing reconciliation
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Enqueuer is the subset of the job queue the scheduler publishes to
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// Scheduler enqueues a full_sync job per active user on a fixed interval.
// This is the background sweep that eventually pushes records whose
// fire-and-forget push was lost.
type Scheduler struct {
	users    UserLister
	jobQueue Enqueuer
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(users UserLister, jobQueue Enqueuer, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		users:    users,
		jobQueue: jobQueue,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the scheduling loop until ctx is cancelled. The first sweep runs
// immediately so a restart does not delay reconciliation by a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep enqueues one full_sync job per active user. Per-user enqueue failures
// are logged and skipped.
func (s *Scheduler) sweep(ctx context.Context) {
	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		s.logger.Error("failed_to_list_users_for_sync_sweep", zap.Error(err))
		return
	}

	enqueued := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if err := s.jobQueue.Enqueue(ctx, queue.NewFullSyncJob(userID)); err != nil {
			s.logger.Warn("failed_to_enqueue_full_sync",
				zap.String("user_id", userID.String()), zap.Error(err))
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info("sync_sweep_enqueued", zap.Int("jobs", enqueued))
	}
}
