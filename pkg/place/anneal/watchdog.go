package anneal

import (
	"sync"
	"sync/atomic"
	"time"
)

// Watchdog turns a wall-clock budget into a flag the annealing loop polls.
// Cancellation is value based: once the budget is spent the loop notices the
// flag at its next check, keeps the best solution found so far, and returns.
// An optional emergency callback fires a margin after the main deadline for
// callers that need to salvage output even when the loop fails to wind down.
type Watchdog struct {
	timedOut atomic.Bool

	mu        sync.Mutex
	main      *time.Timer
	emergency *time.Timer
}

// NewWatchdog returns an idle watchdog. Start arms it.
func NewWatchdog() *Watchdog {
	return &Watchdog{}
}

// Start arms the deadline. After limit the timed-out flag goes up; margin
// later onEmergency runs, if non-nil. A non-positive limit disables the
// watchdog entirely.
func (w *Watchdog) Start(limit, margin time.Duration, onEmergency func()) {
	if limit <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.main = time.AfterFunc(limit, func() {
		w.timedOut.Store(true)
	})
	if onEmergency != nil {
		w.emergency = time.AfterFunc(limit+margin, onEmergency)
	}
}

// TimedOut reports whether the deadline has passed. Safe from any goroutine.
func (w *Watchdog) TimedOut() bool {
	return w.timedOut.Load()
}

// Trip raises the timed-out flag directly, ahead of any deadline.
func (w *Watchdog) Trip() {
	w.timedOut.Store(true)
}

// Stop disarms both timers. The timed-out flag keeps its value.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.main != nil {
		w.main.Stop()
		w.main = nil
	}
	if w.emergency != nil {
		w.emergency.Stop()
		w.emergency = nil
	}
}
