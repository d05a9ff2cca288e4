package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/strideapp/habitsync/internal/database"
	"github.com/strideapp/habitsync/internal/queue"
	"github.com/strideapp/habitsync/internal/remote"
	syncengine "github.com/strideapp/habitsync/internal/sync"
)

// SyncWorker processes sync jobs from the queue. Retry policy lives here:
// the engine reports transient vs terminal outcomes, the worker decides when
// to try again.
type SyncWorker struct {
	engine   *syncengine.Engine
	jobQueue queue.JobQueue // For re-enqueueing jobs with delays
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(engine *syncengine.Engine, jobQueue queue.JobQueue) *SyncWorker {
	return &SyncWorker{
		engine:   engine,
		jobQueue: jobQueue,
	}
}

// ProcessSyncRecordJob pushes a single habit or completion to the remote store
func (w *SyncWorker) ProcessSyncRecordJob(ctx context.Context, job *queue.Job) error {
	if job.RecordID == nil {
		return fmt.Errorf("record_id is required for sync_record job")
	}

	var err error
	switch job.RecordKind {
	case queue.RecordKindHabit:
		err = w.engine.PushHabitByID(ctx, *job.RecordID, job.UserID)
	case queue.RecordKindCompletion:
		err = w.engine.PushCompletionByID(ctx, *job.RecordID, job.UserID)
	default:
		return fmt.Errorf("unknown record kind: %s", job.RecordKind)
	}

	if database.IsNotFound(err) {
		// Deleted locally before the push ran, nothing to sync
		log.Printf("Record %s gone before push, skipping", *job.RecordID)
		return nil
	}
	return err
}

// ProcessFullSyncJob runs a full reconciliation for the job's user
func (w *SyncWorker) ProcessFullSyncJob(ctx context.Context, job *queue.Job) error {
	result := w.engine.FullSync(ctx, job.UserID)

	switch result.Status {
	case syncengine.StatusSuccess:
		log.Printf("Full sync for user %s: pulled=%d pushed=%d failed=%d",
			job.UserID, result.Pulled, result.Pushed, result.Failed)
		return nil
	case syncengine.StatusNoConnectivity:
		return fmt.Errorf("remote unreachable: %w", result.Err)
	default:
		if remote.IsRejected(result.Err) {
			// Affected records are already marked failed and surface through
			// the pending listing. Retrying cannot help.
			log.Printf("Full sync for user %s rejected by remote: %v", job.UserID, result.Err)
			return nil
		}
		return fmt.Errorf("full sync failed: %w", result.Err)
	}
}

// ProcessJob processes a job based on its type
func (w *SyncWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), requeueing", job.ID, job.NotBefore)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to requeue early job: %v", nackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeSyncRecord:
		if err := w.ProcessSyncRecordJob(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err, "sync record")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeFullSync:
		if err := w.ProcessFullSyncJob(ctx, job); err != nil {
			return w.handleJobError(ctx, msg, job, err, "full sync")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack full sync job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing with retry logic
func (w *SyncWorker) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error, jobType string) error {
	// A transient remote outage gets a delayed retry so the worker does not
	// hammer an endpoint that is down
	if remote.IsUnavailable(err) && job.CanRetry() && w.jobQueue != nil {
		delay := retryDelay(job.RetryCount)
		notBefore := time.Now().Add(delay)

		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			UserID:     job.UserID,
			RecordKind: job.RecordKind,
			RecordID:   job.RecordID,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if enqueueErr := w.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			log.Printf("Failed to re-enqueue %s job %s with delay: %v", jobType, job.ID, enqueueErr)
			return fmt.Errorf("remote unavailable, failed to re-enqueue: %w", enqueueErr)
		}

		log.Printf("Remote unavailable: re-enqueued %s job %s for retry at %v (attempt %d/%d)",
			jobType, job.ID, notBefore, job.RetryCount+1, job.MaxRetries)
		return nil
	}

	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryDelay doubles per attempt from 30s, capped at 15 minutes
func retryDelay(retryCount int) time.Duration {
	delay := 30 * time.Second << uint(retryCount)
	if delay > 15*time.Minute {
		return 15 * time.Minute
	}
	return delay
}
