package cache

import "time"

// AccessTracker keeps a per-key sliding window of access timestamps and
// answers how often a key was touched recently. Windows are pruned on every
// touch, so memory stays bounded without a separate sweep.
//
// The tracker is not safe for concurrent use on its own; TieredCache owns
// one and serializes access behind its mutex.
type AccessTracker struct {
	retention time.Duration
	windows   map[string][]time.Time
}

// NewAccessTracker creates a tracker that retains timestamps for the given
// window. Retention must be positive.
func NewAccessTracker(retention time.Duration) *AccessTracker {
	return &AccessTracker{
		retention: retention,
		windows:   make(map[string][]time.Time),
	}
}

// Record appends an access timestamp to the key's window and drops entries
// older than the retention window.
func (t *AccessTracker) Record(key string, now time.Time) {
	window := append(t.windows[key], now)
	cutoff := now.Add(-t.retention)

	keep := 0
	for keep < len(window) && !window[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		window = append(window[:0], window[keep:]...)
	}
	t.windows[key] = window
}

// RecentCount returns how many accesses the key saw within windowMs of now.
// Unknown keys count zero.
func (t *AccessTracker) RecentCount(key string, window time.Duration, now time.Time) int {
	timestamps, ok := t.windows[key]
	if !ok {
		return 0
	}

	cutoff := now.Add(-window)
	count := 0
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Forget drops all tracking state for a key. Callers remove entries when a
// key leaves the cache so the table cannot grow without bound.
func (t *AccessTracker) Forget(key string) {
	delete(t.windows, key)
}

// Reset drops all tracking state.
func (t *AccessTracker) Reset() {
	t.windows = make(map[string][]time.Time)
}

// Len returns the number of tracked keys.
func (t *AccessTracker) Len() int {
	return len(t.windows)
}
