package cache

import (
	"testing"
	"time"
)

// TestItem_Expired tests TTL expiry checks
func TestItem_Expired(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		at   time.Time
		want bool
	}{
		{"no ttl never expires", 0, base.Add(time.Hour), false},
		{"before deadline", time.Minute, base.Add(30 * time.Second), false},
		{"after deadline", time.Minute, base.Add(2 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &Item{Key: "k", CreatedAt: base, TTL: tt.ttl}
			if got := item.Expired(tt.at); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestEstimateSize tests heuristic size estimation per value kind
func TestEstimateSize(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"nil", nil, 0},
		{"string", "hello", 10},
		{"bytes", []byte{1, 2, 3}, 3},
		{"bool", true, 4},
		{"int", 42, 8},
		{"float", 3.14, 8},
		{"slice", []any{1, 2}, 100},
		{"map", map[string]any{"a": 1}, 100},
		{"opaque struct", struct{}{}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateSize(tt.value); got != tt.want {
				t.Errorf("EstimateSize(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
