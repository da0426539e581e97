// Package schedule provides implementations of ports.Scheduler: a real
// one backed by the standard time package and a manually advanced one
// for deterministic tests.
package schedule

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// timerEntry tracks one outstanding timer.
type timerEntry struct {
	timer       *time.Timer
	scheduledAt time.Time
	expiresAt   time.Time
}

// TimerScheduler implements ports.Scheduler on time.AfterFunc. Safe for
// concurrent use.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	nextID int64
	logger *slog.Logger
}

// Option configures a TimerScheduler.
type Option func(*TimerScheduler)

// WithLogger sets a structured logger for timer lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TimerScheduler) {
		s.logger = logger
	}
}

// NewTimerScheduler creates a scheduler with no outstanding timers.
func NewTimerScheduler(opts ...Option) *TimerScheduler {
	s := &TimerScheduler{
		timers: make(map[string]*timerEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleAfter runs fn after the delay. A non-positive delay still
// goes through the timer so callers get a consistent async contract.
func (s *TimerScheduler) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	s.mu.Lock()
	s.nextID++
	token := fmt.Sprintf("timer_%d", s.nextID)
	s.mu.Unlock()

	now := time.Now()
	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, token)
		s.mu.Unlock()
		fn()
	})

	s.mu.Lock()
	s.timers[token] = &timerEntry{
		timer:       timer,
		scheduledAt: now,
		expiresAt:   now.Add(delay),
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("scheduled timer", "token", token, "delay", delay)
	}
	return token, nil
}

// Cancel stops the timer for the token. Unknown tokens are a no-op.
func (s *TimerScheduler) Cancel(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[token]; ok {
		entry.timer.Stop()
		delete(s.timers, token)
		if s.logger != nil {
			s.logger.Debug("cancelled timer", "token", token)
		}
	}
	return nil
}

// Stop cancels all outstanding timers.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, token)
	}
	if s.logger != nil {
		s.logger.Debug("stopped all timers")
	}
}

// Pending returns the number of outstanding timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
