package models

// SyncStatus represents a record's position in the synchronization lifecycle
type SyncStatus string

const (
	// SyncStatusPending means the record was created or updated locally and has
	// not yet been confirmed present in the remote store.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSyncing means an upload is in flight. This state is transient:
	// no record may remain syncing once a reconciliation pass has completed.
	SyncStatusSyncing SyncStatus = "syncing"
	// SyncStatusSynced means the record is confirmed present remotely.
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusFailed means the remote store rejected the record with a
	// non-retryable error; the record needs manual intervention.
	SyncStatusFailed SyncStatus = "failed"
)

// NeedsPush reports whether the record should be included in a pending-set push
func (s SyncStatus) NeedsPush() bool {
	return s == SyncStatusPending || s == SyncStatusFailed
}

// Valid reports whether the status is one of the known lifecycle values
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSyncing, SyncStatusSynced, SyncStatusFailed:
		return true
	default:
		return false
	}
}
