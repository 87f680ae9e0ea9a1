package proctor

import (
	"sync"
	"time"
)

// EventKind names the browser signals that feed the violation counter.
type EventKind string

const (
	EventVisibilityChange EventKind = "visibilitychange"
	EventWindowBlur       EventKind = "blur"
)

// ViolationTracker counts tab-switch violations across both browser
// signals. Two events inside the debounce window count once. When
// enforcement is on and the count reaches the limit, the tracker fires
// its termination callback exactly once.
type ViolationTracker struct {
	mu         sync.Mutex
	count      int
	last       time.Time
	window     time.Duration
	limit      int
	enforce    bool
	terminated bool
	onLimit    func()
}

func NewViolationTracker(window time.Duration, limit int, enforce bool, onLimit func()) *ViolationTracker {
	return &ViolationTracker{
		window:  window,
		limit:   limit,
		enforce: enforce,
		onLimit: onLimit,
	}
}

// Record registers one visibility-loss event at the given time. It
// returns the counted total and whether this event triggered termination.
func (t *ViolationTracker) Record(kind EventKind, at time.Time) (int, bool) {
	t.mu.Lock()

	if t.terminated {
		count := t.count
		t.mu.Unlock()
		return count, false
	}

	// visibilitychange and blur typically fire together for one switch;
	// a second event inside the window is the same violation.
	if !t.last.IsZero() && at.Sub(t.last) < t.window {
		count := t.count
		t.mu.Unlock()
		return count, false
	}

	t.count++
	t.last = at
	count := t.count

	triggered := t.enforce && count >= t.limit && !t.terminated
	if triggered {
		t.terminated = true
	}
	onLimit := t.onLimit
	t.mu.Unlock()

	if triggered && onLimit != nil {
		onLimit()
	}

	return count, triggered
}

// Count returns the counted violations so far.
func (t *ViolationTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Terminated reports whether the limit has been reached under enforcement.
func (t *ViolationTracker) Terminated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminated
}
