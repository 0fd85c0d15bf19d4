package cache

import (
	"time"

	"github.com/tiermem/tiermem/pkg/types"
)

// Item represents one cached value and its bookkeeping. An Item lives in
// exactly one tier at a time; Priority names that tier.
type Item struct {
	Key         string
	Value       any
	Size        int64
	Priority    types.Priority
	AccessCount int64
	LastAccess  time.Time
	CreatedAt   time.Time
	TTL         time.Duration
	Tags        []string
}

// Expired reports whether the item's TTL has elapsed. Items without a TTL
// never expire.
func (it *Item) Expired(now time.Time) bool {
	if it.TTL <= 0 {
		return false
	}
	return now.Sub(it.CreatedAt) > it.TTL
}

func (it *Item) hasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EstimateSize approximates the byte footprint of a value when the caller
// does not supply one. The numbers are deliberately coarse; the cache
// optimizes for avoiding recomputation, not for exact memory accounting.
func EstimateSize(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val)) * 2
	case []byte:
		return int64(len(val))
	case bool:
		return 4
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return 8
	case []any:
		return int64(len(val)) * 50
	case map[string]any:
		return int64(len(val)) * 100
	default:
		return 100
	}
}
