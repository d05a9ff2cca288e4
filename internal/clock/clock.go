package clock

import (
	"time"

	"github.com/strideapp/habitsync/internal/models"
)

// Clock supplies the current instant and calendar date. The sync engine and
// streak calculator take a Clock rather than calling time.Now directly so that
// tests can pin "today".
type Clock interface {
	// Now returns the current instant
	Now() time.Time
	// Today returns the current calendar date at UTC midnight
	Today() time.Time
}

// System is the real wall clock
type System struct{}

// NewSystem creates a system clock
func NewSystem() System { return System{} }

// Now returns the current instant
func (System) Now() time.Time { return time.Now().UTC() }

// Today returns the current calendar date
func (System) Today() time.Time { return models.DateOnly(time.Now()) }

// Fixed is a clock pinned to a single instant, for tests
type Fixed struct {
	Instant time.Time
}

// NewFixed creates a clock pinned to the given instant
func NewFixed(t time.Time) Fixed { return Fixed{Instant: t.UTC()} }

// Now returns the pinned instant
func (f Fixed) Now() time.Time { return f.Instant }

// Today returns the pinned instant's calendar date
func (f Fixed) Today() time.Time { return models.DateOnly(f.Instant) }
