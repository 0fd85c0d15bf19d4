package types

import "time"

// Priority classifies how hot an item is and selects the tier that holds it.
type Priority int

const (
	// PriorityAuto lets the cache infer a priority from recent access
	// frequency at insertion time.
	PriorityAuto Priority = iota
	PriorityHot
	PriorityWarm
	PriorityCold
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHot:
		return "hot"
	case PriorityWarm:
		return "warm"
	case PriorityCold:
		return "cold"
	default:
		return "auto"
	}
}

// SetOptions carries optional hints for a Set call. A nil *SetOptions is
// valid and means "all defaults".
type SetOptions struct {
	// Priority places the item in a specific tier. PriorityAuto infers
	// one from the key's recent access frequency.
	Priority Priority

	// TTL bounds the item's lifetime. Zero means no expiry.
	TTL time.Duration

	// Tags label the item for bulk invalidation. Eviction ignores them.
	Tags []string

	// Size overrides the estimated byte footprint when the caller knows
	// the real cost. Zero means "estimate".
	Size int64
}

// CacheStats represents tiered-cache performance statistics.
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Promotions  uint64  `json:"promotions"`
	Demotions   uint64  `json:"demotions"`
	L1Entries   int     `json:"l1_entries"`
	L2Entries   int     `json:"l2_entries"`
	L3Entries   int     `json:"l3_entries"`
	Entries     int     `json:"entries"`
	Capacity    int     `json:"capacity"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

// MemoryUsage breaks down estimated resident bytes per tier.
type MemoryUsage struct {
	L1    int64 `json:"l1"`
	L2    int64 `json:"l2"`
	L3    int64 `json:"l3"`
	Total int64 `json:"total"`
}

// ManagerStats is the snapshot returned by the manager: cache counters,
// memory breakdown, weak-ref bookkeeping and monitor flags merged together.
type ManagerStats struct {
	Cache        CacheStats  `json:"cache"`
	Memory       MemoryUsage `json:"memory"`
	WeakRefCount int         `json:"weak_ref_count"`
	WeakRefBytes int64       `json:"weak_ref_bytes"`
	HeapBytes    int64       `json:"heap_bytes"`
	Pressure     float64     `json:"pressure"`
	IsWarning    bool        `json:"is_warning"`
	IsCritical   bool        `json:"is_critical"`
	LastCleanup  time.Time   `json:"last_cleanup"`
}
