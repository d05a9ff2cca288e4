package repository

import (
	"sync"

	"github.com/google/uuid"
)

// OverlayState tracks where a locally written record is in its push lifecycle
type OverlayState string

const (
	// StatePending means the local write has not been confirmed remotely yet
	StatePending OverlayState = "pending"
	// StateConfirmed means the push landed and the entry is about to be removed
	StateConfirmed OverlayState = "confirmed"
	// StateRolledBack means the remote rejected the write and the entry is
	// about to be removed
	StateRolledBack OverlayState = "rolled_back"
)

// Overlay is the in-memory optimistic write overlay. An entry exists while a
// local edit is in flight to the remote store; the live-subscription merge
// consults it so a stale remote copy never clobbers an unconfirmed local edit.
// Entries leave the map on Confirm or RollBack, both terminal.
type Overlay struct {
	mu      sync.Mutex
	entries map[uuid.UUID]OverlayState
}

// NewOverlay creates an empty overlay
func NewOverlay() *Overlay {
	return &Overlay{entries: make(map[uuid.UUID]OverlayState)}
}

// MarkPending records an in-flight local edit for the given record id.
// Re-marking an already pending record is a no-op.
func (o *Overlay) MarkPending(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[id] = StatePending
}

// Confirm transitions a pending entry to confirmed and removes it. Returns
// false if the record had no pending entry.
func (o *Overlay) Confirm(id uuid.UUID) bool {
	return o.finish(id, StateConfirmed)
}

// RollBack transitions a pending entry to rolled back and removes it. Returns
// false if the record had no pending entry.
func (o *Overlay) RollBack(id uuid.UUID) bool {
	return o.finish(id, StateRolledBack)
}

func (o *Overlay) finish(id uuid.UUID, terminal OverlayState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.entries[id] != StatePending {
		return false
	}
	o.entries[id] = terminal
	delete(o.entries, id)
	return true
}

// HasPending reports whether the record has an unconfirmed local edit
func (o *Overlay) HasPending(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entries[id] == StatePending
}

// Discard drops an entry regardless of state, used when the record itself is
// deleted locally.
func (o *Overlay) Discard(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, id)
}

// Len returns the number of in-flight entries
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}
