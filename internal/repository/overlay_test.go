package repository

import (
	"testing"

	"github.com/google/uuid"
)

func TestOverlayLifecycle(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	id := uuid.New()

	if o.HasPending(id) {
		t.Error("fresh overlay should have no pending entries")
	}

	o.MarkPending(id)
	if !o.HasPending(id) {
		t.Error("expected pending entry after MarkPending")
	}
	if o.Len() != 1 {
		t.Errorf("Len() = %d, want 1", o.Len())
	}

	if !o.Confirm(id) {
		t.Error("Confirm should succeed on a pending entry")
	}
	if o.HasPending(id) {
		t.Error("confirmed entry should be removed")
	}
	if o.Len() != 0 {
		t.Errorf("Len() after confirm = %d, want 0", o.Len())
	}
}

func TestOverlayRollBack(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	id := uuid.New()

	o.MarkPending(id)
	if !o.RollBack(id) {
		t.Error("RollBack should succeed on a pending entry")
	}
	if o.HasPending(id) {
		t.Error("rolled back entry should be removed")
	}
}

func TestOverlayTerminalTransitionsAreExclusive(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	id := uuid.New()

	o.MarkPending(id)
	if !o.Confirm(id) {
		t.Fatal("first Confirm should succeed")
	}
	if o.Confirm(id) {
		t.Error("second Confirm should report no pending entry")
	}
	if o.RollBack(id) {
		t.Error("RollBack after Confirm should report no pending entry")
	}
}

func TestOverlayDiscard(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	id := uuid.New()

	o.MarkPending(id)
	o.Discard(id)
	if o.HasPending(id) {
		t.Error("discarded entry should be gone")
	}
	// Discarding an unknown id is a no-op
	o.Discard(uuid.New())
}

func TestOverlayConfirmUnknownID(t *testing.T) {
	t.Parallel()

	o := NewOverlay()
	if o.Confirm(uuid.New()) {
		t.Error("Confirm on an unknown id should return false")
	}
	if o.RollBack(uuid.New()) {
		t.Error("RollBack on an unknown id should return false")
	}
}
