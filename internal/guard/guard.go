// Package guard implements cooperative preemption for user scripts: a
// per-run elapsed-time guard, and a source rewriter that plants a guard
// check at the top of every loop body so runaway scripts abort themselves.
//
// This is not a security boundary. It bounds accidental infinite loops and
// slow code in a trusted, single-user setting; code that never reaches a
// check can only be caught by the caller's backstop timer.
package guard

import (
	"time"
)

// checkInterval is how many ShouldAbort calls elapse between wall-clock
// samples. Reading the clock on every iteration of a tight loop costs more
// than the loop body; sampling every Nth call trades up to N-1 extra
// iterations past the deadline for far lower steady-state overhead.
const checkInterval = 100

// Guard tracks one execution attempt against an elapsed-time budget. It is
// created fresh per attempt and discarded when the attempt ends, whatever
// the outcome. Not safe for concurrent use; a single script body owns it.
type Guard struct {
	start      time.Time
	budget     time.Duration
	checkCount uint64

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New returns a guard with the given elapsed-time budget, started now.
func New(budget time.Duration) *Guard {
	return NewWithClock(budget, time.Now)
}

// NewWithClock returns a guard reading time from now instead of the system
// clock.
func NewWithClock(budget time.Duration, now func() time.Time) *Guard {
	return &Guard{
		start:  now(),
		budget: budget,
		now:    now,
	}
}

// ShouldAbort reports whether the attempt has exceeded its budget. The
// clock is sampled only on every 100th call; all other calls return false
// immediately.
func (g *Guard) ShouldAbort() bool {
	g.checkCount++
	if g.checkCount%checkInterval != 0 {
		return false
	}
	return g.now().Sub(g.start) > g.budget
}

// Budget returns the configured elapsed-time budget.
func (g *Guard) Budget() time.Duration {
	return g.budget
}

// CheckCount returns how many times ShouldAbort has been called.
func (g *Guard) CheckCount() uint64 {
	return g.checkCount
}
