package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manual implements ports.Scheduler with a hand-cranked clock. Tests
// advance virtual time explicitly, which makes delay and predelay
// ordering assertions exact instead of sleep-based.
//
// Callbacks run synchronously on the goroutine calling Advance, in
// due-time order; ties fire in scheduling order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  int64
	pending []*manualEntry
}

type manualEntry struct {
	token string
	due   time.Duration
	seq   int64
	fn    func()
}

// NewManual creates a manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// ScheduleAfter registers fn to fire when virtual time reaches
// now+delay.
func (m *Manual) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry := &manualEntry{
		token: fmt.Sprintf("manual_%d", m.nextID),
		due:   m.now + delay,
		seq:   m.nextID,
		fn:    fn,
	}
	m.pending = append(m.pending, entry)
	return entry.token, nil
}

// Cancel drops the pending callback for the token.
func (m *Manual) Cancel(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.pending {
		if e.token == token {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return nil
}

// Stop drops every pending callback.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

// Advance moves virtual time forward and fires everything that came
// due, including callbacks scheduled by earlier callbacks within the
// same advance window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		entry := m.popDue(target)
		if entry == nil {
			break
		}
		entry.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// Pending returns the number of outstanding callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// popDue removes and returns the earliest entry due at or before
// target, advancing the virtual clock to its due time.
func (m *Manual) popDue(target time.Duration) *manualEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].seq < m.pending[j].seq
	})

	if len(m.pending) == 0 || m.pending[0].due > target {
		return nil
	}
	entry := m.pending[0]
	m.pending = m.pending[1:]
	if entry.due > m.now {
		m.now = entry.due
	}
	return entry
}
