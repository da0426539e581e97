package ports

import "time"

// Scheduler is the host timer facility the engine schedules delayed
// emissions and auto-followups on. Each scheduled callback gets an
// independent token so a single pending phase can be cancelled without
// touching the rest.
//
// Callbacks may fire on a different goroutine than the scheduling
// call; the engine guards its own state accordingly.
type Scheduler interface {
	// ScheduleAfter runs fn after the delay and returns a cancellation
	// token.
	ScheduleAfter(delay time.Duration, fn func()) (string, error)

	// Cancel stops the scheduled callback for the token. Cancelling an
	// unknown or already-fired token is a no-op.
	Cancel(token string) error

	// Stop cancels every outstanding callback.
	Stop()
}
