package cache

import (
	"testing"
	"time"
)

// TestAccessTracker_RecentCount tests windowed access counting
func TestAccessTracker_RecentCount(t *testing.T) {
	tr := NewAccessTracker(2 * time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.Record("k", base)
	tr.Record("k", base.Add(2*time.Second))
	tr.Record("k", base.Add(4*time.Second))

	tests := []struct {
		name   string
		key    string
		window time.Duration
		at     time.Time
		want   int
	}{
		{"all inside window", "k", 10 * time.Second, base.Add(4 * time.Second), 3},
		{"oldest outside window", "k", 3 * time.Second, base.Add(4 * time.Second), 2},
		{"all outside window", "k", time.Second, base.Add(time.Minute), 0},
		{"unknown key", "other", 10 * time.Second, base, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.RecentCount(tt.key, tt.window, tt.at); got != tt.want {
				t.Errorf("RecentCount = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestAccessTracker_Prune verifies records older than the retention period
// are dropped on the next touch
func TestAccessTracker_Prune(t *testing.T) {
	tr := NewAccessTracker(time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.Record("k", base)
	tr.Record("k", base.Add(2*time.Minute))

	if got := tr.RecentCount("k", time.Hour, base.Add(2*time.Minute)); got != 1 {
		t.Errorf("expected stale record pruned, got count %d", got)
	}
}

// TestAccessTracker_Forget tests per-key history removal
func TestAccessTracker_Forget(t *testing.T) {
	tr := NewAccessTracker(time.Minute)
	now := time.Now()

	tr.Record("a", now)
	tr.Record("b", now)
	tr.Forget("a")

	if got := tr.RecentCount("a", time.Minute, now); got != 0 {
		t.Errorf("expected forgotten key to have no history, got %d", got)
	}
	if got := tr.RecentCount("b", time.Minute, now); got != 1 {
		t.Errorf("expected other key untouched, got %d", got)
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 tracked key, got %d", tr.Len())
	}
}

// TestAccessTracker_Reset tests full history reset
func TestAccessTracker_Reset(t *testing.T) {
	tr := NewAccessTracker(time.Minute)
	now := time.Now()

	tr.Record("a", now)
	tr.Record("b", now)
	tr.Reset()

	if tr.Len() != 0 {
		t.Errorf("expected empty tracker after reset, got %d keys", tr.Len())
	}
}
