package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSyncRecord pushes a single habit or completion to the remote store
	JobTypeSyncRecord JobType = "sync_record"
	// JobTypeFullSync runs a full pull/merge/push reconciliation for a user
	JobTypeFullSync JobType = "full_sync"
)

// RecordKind identifies which table a sync_record job targets
type RecordKind string

const (
	// RecordKindHabit targets a habit record
	RecordKindHabit RecordKind = "habit"
	// RecordKindCompletion targets a completion record
	RecordKindCompletion RecordKind = "completion"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	RecordKind RecordKind `json:"record_kind,omitempty"` // Only for sync_record jobs
	RecordID   *uuid.UUID `json:"record_id,omitempty"`   // Only for sync_record jobs
	NotBefore  *time.Time `json:"not_before,omitempty"`  // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time `json:"not_after,omitempty"`   // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewSyncRecordJob creates a job that pushes one record to the remote store
func NewSyncRecordJob(userID uuid.UUID, kind RecordKind, recordID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeSyncRecord,
		UserID:     userID,
		RecordKind: kind,
		RecordID:   &recordID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 5,
	}
}

// NewFullSyncJob creates a job that reconciles all of a user's records
func NewFullSyncJob(userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeFullSync,
		UserID:     userID,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
