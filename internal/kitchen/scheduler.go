package kitchen

import (
	"math"
	"sync"
	"time"
)

// ExpireFunc runs when a countdown reaches its deadline. Returning an error
// keeps the entry alive so the side effect is retried on the next sweep;
// returning nil disposes the entry.
type ExpireFunc func(orderID, kind string) error

type timerKey struct {
	orderID string
	kind    string
}

type timerEntry struct {
	expiresAt time.Time
	// firing marks an entry whose side effect is currently running, so an
	// overlapping sweep cannot fire it a second time.
	firing bool
}

// Scheduler manages every per-order countdown (cooking and rejection) with
// a single shared ticker sweeping the entry set, rather than one timer
// handle per order. Each entry carries its own absolute deadline, so sweeps
// are idempotent and tolerant of delayed ticks.
//
// At most one entry exists per (orderID, kind); Start replaces any previous
// countdown of the same kind.
type Scheduler struct {
	mu      sync.Mutex
	entries map[timerKey]*timerEntry
	expire  ExpireFunc

	interval time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler sweeping at the given interval. Call Run
// in a goroutine to start ticking, and Stop to release it.
func NewScheduler(interval time.Duration, expire ExpireFunc) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		entries:  make(map[timerKey]*timerEntry),
		expire:   expire,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Run ticks until Stop is called. Intended as a goroutine: go s.Run().
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Stop halts ticking and clears every entry. No expiry side effect fires
// after Stop returns. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[timerKey]*timerEntry)
}

// Start arms a countdown for (orderID, kind) expiring after d, cancelling
// any existing countdown of the same kind for the same order first.
func (s *Scheduler) Start(orderID, kind string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}
	s.entries[timerKey{orderID, kind}] = &timerEntry{expiresAt: s.now().Add(d)}
}

// Cancel removes a countdown. Cancelling a non-existent entry is a no-op.
func (s *Scheduler) Cancel(orderID, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, timerKey{orderID, kind})
}

// CancelAll removes every countdown for the given order.
func (s *Scheduler) CancelAll(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.orderID == orderID {
			delete(s.entries, k)
		}
	}
}

// Active reports whether a countdown is armed for (orderID, kind).
func (s *Scheduler) Active(orderID, kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[timerKey{orderID, kind}]
	return ok
}

// Remaining returns the whole minutes left on a countdown, rounded up and
// clamped to zero. A missing entry reads as zero.
func (s *Scheduler) Remaining(orderID, kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[timerKey{orderID, kind}]
	if !ok {
		return 0
	}
	left := e.expiresAt.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

// sweep fires the expiry side effect for every due entry. Entries are
// marked firing before their callback runs, then disposed on success or
// re-armed for retry on error.
func (s *Scheduler) sweep() {
	s.mu.Lock()
	now := s.now()
	var due []timerKey
	for k, e := range s.entries {
		if !e.firing && !now.Before(e.expiresAt) {
			e.firing = true
			due = append(due, k)
		}
	}
	s.mu.Unlock()

	for _, k := range due {
		var err error
		if s.expire != nil {
			err = s.expire(k.orderID, k.kind)
		}

		s.mu.Lock()
		if e, ok := s.entries[k]; ok {
			if err != nil {
				e.firing = false
			} else {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
}
