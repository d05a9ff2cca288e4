// Package repository is the local-first data facade the HTTP handlers and the
// admin CLI talk to. Reads are served from the local store through a short
// TTL cache; writes land locally as pending and are pushed to the remote
// store in the background, so no user-facing operation ever waits on the
// network.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strideapp/habitsync/internal/clock"
	"github.com/strideapp/habitsync/internal/database"
	"github.com/strideapp/habitsync/internal/models"
	"github.com/strideapp/habitsync/internal/queue"
	"github.com/strideapp/habitsync/internal/remote"
	syncengine "github.com/strideapp/habitsync/internal/sync"
	"github.com/strideapp/habitsync/internal/validation"
)

// ErrValidation wraps input validation failures so handlers can map them to
// 400 responses.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when a record does not exist or belongs to another user
var ErrNotFound = database.ErrNotFound

// Enqueuer is the subset of the job queue the facade publishes to
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// PendingRecords lists the records still awaiting a successful push, the
// backing data for the "sync pending" affordance. Stale is set when any
// record has been waiting longer than the configured threshold; that is the
// one condition a client needs to surface to the user.
type PendingRecords struct {
	Habits      []*models.Habit      `json:"habits"`
	Completions []*models.Completion `json:"completions"`
	Stale       bool                 `json:"stale"`
}

// Facade coordinates the local store, remote pushes, the read cache and the
// optimistic overlay. All methods take an explicit userID.
type Facade struct {
	habits      database.HabitStore
	completions database.CompletionStore
	remote      remote.Store
	engine      *syncengine.Engine
	queue       Enqueuer
	cache       *Cache
	overlay     *Overlay
	staleAfter  time.Duration
	clock       clock.Clock
	logger      *zap.Logger
}

// NewFacade creates a facade. cache may be nil (reads go straight to the
// database) and queue may be nil (pushes wait for the periodic full sync).
// staleAfter is how long a record may wait unsynced before ListPending
// reports it stale; zero or negative disables the flag.
func NewFacade(
	habits database.HabitStore,
	completions database.CompletionStore,
	remoteStore remote.Store,
	engine *syncengine.Engine,
	q Enqueuer,
	cache *Cache,
	staleAfter time.Duration,
	clk clock.Clock,
	logger *zap.Logger,
) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		habits:      habits,
		completions: completions,
		remote:      remoteStore,
		engine:      engine,
		queue:       q,
		cache:       cache,
		overlay:     NewOverlay(),
		staleAfter:  staleAfter,
		clock:       clk,
		logger:      logger,
	}
}

// Overlay exposes the optimistic overlay for workers that confirm pushes
func (f *Facade) Overlay() *Overlay {
	return f.overlay
}

// CreateHabit validates and stores a new habit locally, then schedules a push
func (f *Facade) CreateHabit(ctx context.Context, userID uuid.UUID, habit *models.Habit) (*models.Habit, error) {
	if err := validation.ValidateHabit(habit); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	now := f.clock.Now()
	if habit.ID == uuid.Nil {
		habit.ID = uuid.New()
	}
	habit.UserID = userID
	habit.SyncStatus = models.SyncStatusPending
	habit.LastSyncedAt = nil
	habit.CreatedAt = now
	habit.UpdatedAt = now

	if err := f.habits.Upsert(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	f.afterWrite(ctx, userID, habit.ID, queue.RecordKindHabit)
	return habit, nil
}

// UpdateHabit validates and stores an edit to an existing habit, then
// schedules a push. Derived streak fields are recomputed, not taken from the
// caller.
func (f *Facade) UpdateHabit(ctx context.Context, userID uuid.UUID, habit *models.Habit) (*models.Habit, error) {
	existing, err := f.ownedHabit(ctx, userID, habit.ID)
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateHabit(habit); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	habit.UserID = userID
	habit.CreatedAt = existing.CreatedAt
	habit.LastSyncedAt = existing.LastSyncedAt
	habit.CurrentStreak = existing.CurrentStreak
	habit.LastCompletedDate = existing.LastCompletedDate
	habit.SyncStatus = models.SyncStatusPending
	habit.UpdatedAt = f.clock.Now()

	if err := f.habits.Upsert(ctx, habit); err != nil {
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}

	// A recurrence or weekday edit changes what the streak means
	if err := f.engine.RecomputeStreak(ctx, habit.ID); err != nil {
		f.logger.Warn("failed_to_recompute_streak_after_edit",
			zap.String("habit_id", habit.ID.String()), zap.Error(err))
	}

	f.afterWrite(ctx, userID, habit.ID, queue.RecordKindHabit)
	return f.habits.GetByID(ctx, habit.ID)
}

// DeleteHabit removes a habit and its completions locally, then fires a
// best-effort remote cascade delete. The local delete never waits on the
// network.
func (f *Facade) DeleteHabit(ctx context.Context, userID uuid.UUID, habitID uuid.UUID) error {
	if _, err := f.ownedHabit(ctx, userID, habitID); err != nil {
		return err
	}

	if err := f.habits.Delete(ctx, habitID); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	f.overlay.Discard(habitID)
	f.cache.Invalidate(ctx, userID)

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := f.remote.DeleteHabit(ctx, habitID, userID); err != nil {
			f.logger.Warn("remote_habit_delete_failed",
				zap.String("habit_id", habitID.String()), zap.Error(err))
		}
	}()

	return nil
}

// ToggleCompletion flips a habit's completion for a date. A completed date is
// deleted locally with a best-effort remote delete; an uncompleted date gets
// a pending completion record and a scheduled push. Both branches recompute
// the habit's streak. Defaults to today when date is zero.
func (f *Facade) ToggleCompletion(ctx context.Context, userID uuid.UUID, habitID uuid.UUID, date time.Time) (*models.Habit, error) {
	if _, err := f.ownedHabit(ctx, userID, habitID); err != nil {
		return nil, err
	}

	if date.IsZero() {
		date = f.clock.Today()
	}
	date = models.DateOnly(date)

	existing, err := f.completions.GetByHabitAndDate(ctx, habitID, date)
	switch {
	case err == nil && existing.Completed:
		if err := f.completions.Delete(ctx, habitID, date); err != nil {
			return nil, fmt.Errorf("failed to delete completion: %w", err)
		}
		f.overlay.Discard(existing.ID)

		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := f.remote.DeleteCompletion(ctx, habitID, date, userID); err != nil {
				f.logger.Warn("remote_completion_delete_failed",
					zap.String("habit_id", habitID.String()), zap.Error(err))
			}
		}()

	case err == nil || database.IsNotFound(err):
		now := f.clock.Now()
		completion := &models.Completion{
			ID:          uuid.New(),
			HabitID:     habitID,
			Date:        date,
			Completed:   true,
			CompletedAt: now,
			SyncStatus:  models.SyncStatusPending,
			UpdatedAt:   now,
		}
		if existing != nil {
			completion.ID = existing.ID
		}
		if err := f.completions.Upsert(ctx, completion); err != nil {
			return nil, fmt.Errorf("failed to record completion: %w", err)
		}
		f.overlay.MarkPending(completion.ID)
		f.enqueuePush(ctx, userID, queue.RecordKindCompletion, completion.ID)

	default:
		return nil, fmt.Errorf("failed to look up completion: %w", err)
	}

	if err := f.engine.RecomputeStreak(ctx, habitID); err != nil {
		return nil, fmt.Errorf("failed to recompute streak: %w", err)
	}
	f.cache.Invalidate(ctx, userID)

	return f.habits.GetByID(ctx, habitID)
}

// ListHabits returns all of a user's habits from the local store, served
// through the read cache when warm.
func (f *Facade) ListHabits(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	if habits, ok := f.cache.GetHabits(ctx, userID); ok {
		return habits, nil
	}

	habits, err := f.habits.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	f.cache.SetHabits(ctx, userID, habits)
	return habits, nil
}

// GetHabit returns one habit owned by the user
func (f *Facade) GetHabit(ctx context.Context, userID uuid.UUID, habitID uuid.UUID) (*models.Habit, error) {
	return f.ownedHabit(ctx, userID, habitID)
}

// ListCompletions returns the completion history for one habit
func (f *Facade) ListCompletions(ctx context.Context, userID uuid.UUID, habitID uuid.UUID) ([]*models.Completion, error) {
	if _, err := f.ownedHabit(ctx, userID, habitID); err != nil {
		return nil, err
	}
	return f.completions.ListByHabitID(ctx, habitID)
}

// ListPending returns the records still awaiting a successful push
func (f *Facade) ListPending(ctx context.Context, userID uuid.UUID) (*PendingRecords, error) {
	habits, err := f.habits.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending habits: %w", err)
	}
	completions, err := f.completions.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending completions: %w", err)
	}

	pending := &PendingRecords{Habits: habits, Completions: completions}
	if f.staleAfter > 0 {
		cutoff := f.clock.Now().Add(-f.staleAfter)
		for _, h := range habits {
			if h.UpdatedAt.Before(cutoff) {
				pending.Stale = true
			}
		}
		for _, c := range completions {
			if c.UpdatedAt.Before(cutoff) {
				pending.Stale = true
			}
		}
	}
	return pending, nil
}

// RequestSync enqueues a full reconciliation for the user
func (f *Facade) RequestSync(ctx context.Context, userID uuid.UUID) error {
	if f.queue == nil {
		return fmt.Errorf("sync queue not configured")
	}
	if err := f.queue.Enqueue(ctx, queue.NewFullSyncJob(userID)); err != nil {
		return fmt.Errorf("failed to enqueue sync: %w", err)
	}
	return nil
}

// WatchRemote consumes the live remote subscription and folds each snapshot
// into the local store. Records with an unconfirmed local edit are excluded
// from the merge so a stale remote copy cannot clobber them; once the local
// copy reaches synced the overlay entry is confirmed and the record merges
// normally again. Blocks until ctx is cancelled.
func (f *Facade) WatchRemote(ctx context.Context, userID uuid.UUID, subscriber remote.Subscriber, interval time.Duration) error {
	snapshots, errs := subscriber.Subscribe(ctx, userID, interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			f.logger.Warn("remote_subscription_error", zap.Error(err))
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			f.applySnapshot(ctx, userID, snapshot)
		}
	}
}

func (f *Facade) applySnapshot(ctx context.Context, userID uuid.UUID, snapshot remote.Snapshot) {
	habits := make([]*models.Habit, 0, len(snapshot.Habits))
	for _, h := range snapshot.Habits {
		if h != nil && f.settleOverlay(ctx, h.ID, queue.RecordKindHabit) {
			continue
		}
		habits = append(habits, h)
	}

	completions := make([]*models.Completion, 0, len(snapshot.Completions))
	for _, c := range snapshot.Completions {
		if c != nil && f.settleOverlay(ctx, c.ID, queue.RecordKindCompletion) {
			continue
		}
		completions = append(completions, c)
	}

	merged, touched := f.engine.MergeHabits(ctx, habits)
	completionsMerged, touchedByCompletions := f.engine.MergeCompletions(ctx, completions)
	merged += completionsMerged
	for id := range touchedByCompletions {
		touched[id] = struct{}{}
	}

	for habitID := range touched {
		if err := f.engine.RecomputeStreak(ctx, habitID); err != nil {
			f.logger.Warn("failed_to_recompute_streak_after_snapshot",
				zap.String("habit_id", habitID.String()), zap.Error(err))
		}
	}

	if merged > 0 {
		f.cache.Invalidate(ctx, userID)
		f.logger.Debug("remote_snapshot_applied",
			zap.String("user_id", userID.String()), zap.Int("merged", merged))
	}
}

// settleOverlay reports whether the record must be excluded from a merge. A
// pending entry whose local copy has reached synced means the push landed, so
// the entry is confirmed and merging resumes.
func (f *Facade) settleOverlay(ctx context.Context, id uuid.UUID, kind queue.RecordKind) bool {
	if !f.overlay.HasPending(id) {
		return false
	}

	var status models.SyncStatus
	switch kind {
	case queue.RecordKindHabit:
		local, err := f.habits.GetByID(ctx, id)
		if err != nil {
			return true
		}
		status = local.SyncStatus
	case queue.RecordKindCompletion:
		local, err := f.completions.GetByID(ctx, id)
		if err != nil {
			return true
		}
		status = local.SyncStatus
	}

	switch status {
	case models.SyncStatusSynced:
		f.overlay.Confirm(id)
		return false
	case models.SyncStatusFailed:
		f.overlay.RollBack(id)
		return false
	default:
		return true
	}
}

func (f *Facade) ownedHabit(ctx context.Context, userID uuid.UUID, habitID uuid.UUID) (*models.Habit, error) {
	habit, err := f.habits.GetByID(ctx, habitID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load habit: %w", err)
	}
	if habit.UserID != userID {
		return nil, ErrNotFound
	}
	return habit, nil
}

func (f *Facade) afterWrite(ctx context.Context, userID uuid.UUID, recordID uuid.UUID, kind queue.RecordKind) {
	f.overlay.MarkPending(recordID)
	f.cache.Invalidate(ctx, userID)
	f.enqueuePush(ctx, userID, kind, recordID)
}

// enqueuePush schedules a fire-and-forget push. Enqueue failure is only
// logged: the record stays pending and the periodic full sync sweeps it.
func (f *Facade) enqueuePush(ctx context.Context, userID uuid.UUID, kind queue.RecordKind, recordID uuid.UUID) {
	if f.queue == nil {
		return
	}
	if err := f.queue.Enqueue(ctx, queue.NewSyncRecordJob(userID, kind, recordID)); err != nil {
		f.logger.Warn("failed_to_enqueue_push",
			zap.String("record_id", recordID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
