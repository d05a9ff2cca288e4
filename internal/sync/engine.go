// Package sync implements the reconciliation engine that brings the local
// store and the remote store into agreement for one user's records. The
// engine drives per-record sync status transitions and resolves conflicts
// with last-writer-wins by timestamp; it performs no retries or backoff of
// its own, that policy belongs to the caller.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strideapp/habitsync/internal/clock"
	"github.com/strideapp/habitsync/internal/database"
	"github.com/strideapp/habitsync/internal/models"
	"github.com/strideapp/habitsync/internal/remote"
	"github.com/strideapp/habitsync/internal/streak"
)

// Engine reconciles local and remote stores
type Engine struct {
	habits      database.HabitStore
	completions database.CompletionStore
	remote      remote.Store
	clock       clock.Clock
	logger      *zap.Logger
}

// NewEngine creates a sync engine
func NewEngine(
	habits database.HabitStore,
	completions database.CompletionStore,
	remoteStore remote.Store,
	clk clock.Clock,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		habits:      habits,
		completions: completions,
		remote:      remoteStore,
		clock:       clk,
		logger:      logger,
	}
}

// FullSync pulls remote state, merges it, then pushes the local pending set.
// Pull runs first so a concurrent remote change is observed before deciding
// what still needs pushing. Whatever happens, no record is left in the
// transient syncing state once this returns.
func (e *Engine) FullSync(ctx context.Context, userID uuid.UUID) Result {
	defer e.resetSyncing(ctx, userID)

	pulled, err := e.PullRemote(ctx, userID)
	if err != nil {
		if remote.IsUnavailable(err) {
			e.logger.Info("full_sync_no_connectivity", zap.String("user_id", userID.String()))
			return Result{Status: StatusNoConnectivity, Err: err, Pulled: pulled}
		}
		return Result{Status: StatusError, Err: fmt.Errorf("pull failed: %w", err), Pulled: pulled}
	}

	pushed, failed, err := e.PushPending(ctx, userID)
	if err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("push failed: %w", err), Pulled: pulled, Pushed: pushed, Failed: failed}
	}

	e.logger.Info("full_sync_complete",
		zap.String("user_id", userID.String()),
		zap.Int("pulled", pulled),
		zap.Int("pushed", pushed),
		zap.Int("failed", failed),
	)
	return Result{Status: StatusSuccess, Pulled: pulled, Pushed: pushed, Failed: failed}
}

// PushPending uploads every local record awaiting sync (pending or failed).
// The pending set is snapshotted once at call start: records that become
// pending mid-run are picked up by the next call, which makes concurrent
// local mutations safe. Individual record failures are logged and counted,
// never propagated; the returned error covers only the snapshot queries.
func (e *Engine) PushPending(ctx context.Context, userID uuid.UUID) (pushed, failed int, err error) {
	pendingHabits, err := e.habits.ListPending(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list pending habits: %w", err)
	}
	pendingCompletions, err := e.completions.ListPending(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list pending completions: %w", err)
	}

	// Habits go first so a completion never lands remotely before its habit.
	for _, habit := range pendingHabits {
		if ctx.Err() != nil {
			return pushed, failed, nil
		}
		switch e.pushHabit(ctx, habit, userID) {
		case pushOK:
			pushed++
		case pushRejected:
			failed++
		}
	}

	for _, completion := range pendingCompletions {
		if ctx.Err() != nil {
			return pushed, failed, nil
		}
		switch e.pushCompletion(ctx, completion, userID) {
		case pushOK:
			pushed++
		case pushRejected:
			failed++
		}
	}

	return pushed, failed, nil
}

// PushHabitByID uploads a single habit if it still needs pushing. Re-pushing
// an already-synced record is a no-op, which keeps fire-and-forget jobs
// idempotent.
func (e *Engine) PushHabitByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	habit, err := e.habits.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load habit: %w", err)
	}
	if !habit.SyncStatus.NeedsPush() {
		return nil
	}
	if e.pushHabit(ctx, habit, userID) == pushDeferred {
		return fmt.Errorf("habit %s: %w", id, remote.ErrUnavailable)
	}
	return nil
}

// PushCompletionByID uploads a single completion if it still needs pushing
func (e *Engine) PushCompletionByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	completion, err := e.completions.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load completion: %w", err)
	}
	if !completion.SyncStatus.NeedsPush() {
		return nil
	}
	if e.pushCompletion(ctx, completion, userID) == pushDeferred {
		return fmt.Errorf("completion %s: %w", id, remote.ErrUnavailable)
	}
	return nil
}

type pushOutcome int

const (
	pushOK pushOutcome = iota
	pushDeferred
	pushRejected
)

func (e *Engine) pushHabit(ctx context.Context, habit *models.Habit, userID uuid.UUID) pushOutcome {
	if err := e.habits.SetSyncStatus(ctx, habit.ID, models.SyncStatusSyncing, nil); err != nil {
		e.logger.Warn("failed_to_mark_habit_syncing", zap.String("habit_id", habit.ID.String()), zap.Error(err))
	}

	err := e.remote.UpsertHabit(ctx, habit, userID)
	return e.settle(ctx, err, "habit", habit.ID, func(ctx context.Context, status models.SyncStatus, at *time.Time) error {
		return e.habits.SetSyncStatus(ctx, habit.ID, status, at)
	})
}

func (e *Engine) pushCompletion(ctx context.Context, completion *models.Completion, userID uuid.UUID) pushOutcome {
	if err := e.completions.SetSyncStatus(ctx, completion.ID, models.SyncStatusSyncing, nil); err != nil {
		e.logger.Warn("failed_to_mark_completion_syncing", zap.String("completion_id", completion.ID.String()), zap.Error(err))
	}

	err := e.remote.UpsertCompletion(ctx, completion, userID)
	return e.settle(ctx, err, "completion", completion.ID, func(ctx context.Context, status models.SyncStatus, at *time.Time) error {
		return e.completions.SetSyncStatus(ctx, completion.ID, status, at)
	})
}

// settle converts a remote upsert outcome into the record's next sync status.
// Transient failures revert to pending; only an explicit remote rejection
// escalates to failed.
func (e *Engine) settle(ctx context.Context, pushErr error, kind string, id uuid.UUID, setStatus func(context.Context, models.SyncStatus, *time.Time) error) pushOutcome {
	// Status writes must land even when the push was cancelled.
	ctx = context.WithoutCancel(ctx)
	switch {
	case pushErr == nil:
		now := e.clock.Now()
		if err := setStatus(ctx, models.SyncStatusSynced, &now); err != nil {
			e.logger.Error("failed_to_mark_record_synced",
				zap.String("kind", kind), zap.String("id", id.String()), zap.Error(err))
		}
		return pushOK

	case remote.IsRejected(pushErr):
		e.logger.Warn("record_rejected_by_remote",
			zap.String("kind", kind), zap.String("id", id.String()), zap.Error(pushErr))
		if err := setStatus(ctx, models.SyncStatusFailed, nil); err != nil {
			e.logger.Error("failed_to_mark_record_failed",
				zap.String("kind", kind), zap.String("id", id.String()), zap.Error(err))
		}
		return pushRejected

	default:
		e.logger.Debug("record_push_deferred",
			zap.String("kind", kind), zap.String("id", id.String()), zap.Error(pushErr))
		if err := setStatus(ctx, models.SyncStatusPending, nil); err != nil {
			e.logger.Error("failed_to_revert_record_to_pending",
				zap.String("kind", kind), zap.String("id", id.String()), zap.Error(err))
		}
		return pushDeferred
	}
}

// PullRemote fetches all remote records for the user and merges them into the
// local store with last-writer-wins. Habit streak fields are never taken from
// the remote copy: every habit whose completion set may have changed is
// recomputed locally after the merge.
func (e *Engine) PullRemote(ctx context.Context, userID uuid.UUID) (int, error) {
	remoteHabits, err := e.remote.FetchHabits(ctx, userID)
	if err != nil {
		return 0, err
	}
	remoteCompletions, err := e.remote.FetchCompletions(ctx, userID)
	if err != nil {
		return 0, err
	}

	merged, touched := e.MergeHabits(ctx, remoteHabits)
	completionsMerged, touchedByCompletions := e.MergeCompletions(ctx, remoteCompletions)
	merged += completionsMerged
	for id := range touchedByCompletions {
		touched[id] = struct{}{}
	}

	for habitID := range touched {
		if err := e.RecomputeStreak(ctx, habitID); err != nil {
			e.logger.Warn("failed_to_recompute_streak_after_merge",
				zap.String("habit_id", habitID.String()), zap.Error(err))
		}
	}

	return merged, nil
}

// MergeHabits applies last-writer-wins over a batch of remote habit records.
// A malformed or unsaveable record is logged and skipped, never aborting the
// batch. Returns the number of records written and the set of habit ids that
// changed (whose streaks need recomputing).
func (e *Engine) MergeHabits(ctx context.Context, remoteHabits []*models.Habit) (int, map[uuid.UUID]struct{}) {
	merged := 0
	touched := make(map[uuid.UUID]struct{})

	for _, rh := range remoteHabits {
		if rh == nil || rh.ID == uuid.Nil {
			e.logger.Warn("skipping_malformed_remote_habit")
			continue
		}

		local, err := e.habits.GetByID(ctx, rh.ID)
		switch {
		case err == nil:
			// The pending local edit wins unless the remote copy is strictly
			// newer; it will be uploaded by the next push.
			if !rh.UpdatedAt.After(local.FreshnessTimestamp()) {
				continue
			}
		case database.IsNotFound(err):
			local = nil
		default:
			e.logger.Warn("failed_to_load_local_habit_for_merge",
				zap.String("habit_id", rh.ID.String()), zap.Error(err))
			continue
		}

		incoming := *rh
		incoming.SyncStatus = models.SyncStatusSynced
		now := e.clock.Now()
		incoming.LastSyncedAt = &now
		if local != nil {
			// Derived fields stay local until the post-merge recompute.
			incoming.CurrentStreak = local.CurrentStreak
			incoming.LastCompletedDate = local.LastCompletedDate
		}

		if err := e.habits.Upsert(ctx, &incoming); err != nil {
			e.logger.Warn("failed_to_merge_remote_habit",
				zap.String("habit_id", rh.ID.String()), zap.Error(err))
			continue
		}
		merged++
		touched[rh.ID] = struct{}{}
	}

	return merged, touched
}

// MergeCompletions applies last-writer-wins over a batch of remote completion
// records, mirroring MergeHabits.
func (e *Engine) MergeCompletions(ctx context.Context, remoteCompletions []*models.Completion) (int, map[uuid.UUID]struct{}) {
	merged := 0
	touched := make(map[uuid.UUID]struct{})

	for _, rc := range remoteCompletions {
		if rc == nil || rc.ID == uuid.Nil || rc.HabitID == uuid.Nil {
			e.logger.Warn("skipping_malformed_remote_completion")
			continue
		}

		local, err := e.completions.GetByHabitAndDate(ctx, rc.HabitID, rc.Date)
		switch {
		case err == nil:
			if !rc.UpdatedAt.After(local.FreshnessTimestamp()) {
				continue
			}
		case database.IsNotFound(err):
		default:
			e.logger.Warn("failed_to_load_local_completion_for_merge",
				zap.String("completion_id", rc.ID.String()), zap.Error(err))
			continue
		}

		incoming := *rc
		incoming.Date = models.DateOnly(incoming.Date)
		incoming.SyncStatus = models.SyncStatusSynced
		now := e.clock.Now()
		incoming.LastSyncedAt = &now

		if err := e.completions.Upsert(ctx, &incoming); err != nil {
			e.logger.Warn("failed_to_merge_remote_completion",
				zap.String("completion_id", rc.ID.String()), zap.Error(err))
			continue
		}
		merged++
		touched[rc.HabitID] = struct{}{}
	}

	return merged, touched
}

// RecomputeStreak re-derives a habit's cached streak fields from its current
// completion set and persists them. This is the single recompute call-site:
// every completion mutation and every remote merge funnels through here.
func (e *Engine) RecomputeStreak(ctx context.Context, habitID uuid.UUID) error {
	habit, err := e.habits.GetByID(ctx, habitID)
	if err != nil {
		return fmt.Errorf("failed to load habit for recompute: %w", err)
	}

	completions, err := e.completions.ListByHabitID(ctx, habitID)
	if err != nil {
		return fmt.Errorf("failed to list completions for recompute: %w", err)
	}

	var completedDates []time.Time
	for _, c := range completions {
		if c.Completed {
			completedDates = append(completedDates, c.Date)
		}
	}

	result := streak.Calculate(habit.Recurrence, habit.TargetWeekdays, completedDates, e.clock.Today())
	if err := e.habits.UpdateDerived(ctx, habitID, result.Length, result.LastCompleted); err != nil {
		return fmt.Errorf("failed to persist derived streak fields: %w", err)
	}
	return nil
}

// resetSyncing clears any record stuck in the transient syncing state. It
// runs detached from the caller's context so the invariant holds even when
// the sync was cancelled mid-flight.
func (e *Engine) resetSyncing(ctx context.Context, userID uuid.UUID) {
	detached := context.WithoutCancel(ctx)

	if n, err := e.habits.ResetSyncing(detached, userID); err != nil {
		e.logger.Error("failed_to_reset_syncing_habits", zap.Error(err))
	} else if n > 0 {
		e.logger.Warn("reverted_stuck_syncing_habits", zap.Int64("count", n))
	}

	if n, err := e.completions.ResetSyncing(detached, userID); err != nil {
		e.logger.Error("failed_to_reset_syncing_completions", zap.Error(err))
	} else if n > 0 {
		e.logger.Warn("reverted_stuck_syncing_completions", zap.Int64("count", n))
	}
}
