package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tiermem/tiermem/pkg/types"
)

const (
	tierL1 = iota
	tierL2
	tierL3
	tierCount
)

// frequencyScale lifts the accesses-per-millisecond frequency term into the
// same order of magnitude as the idle-time penalty. The exact value is a
// tunable, not a contract; eviction only relies on the ordering it induces
// (higher frequency wins, then more-recent access wins).
const frequencyScale = 1e6

const (
	// accessRetention bounds how long the tracker remembers accesses.
	accessRetention = 2 * time.Minute

	// inferWindow is the lookback used to infer a priority on Set.
	inferWindow = 30 * time.Second

	// inferHot and inferWarm are the access counts within inferWindow
	// that classify a key as hot or warm.
	inferHot  = 5
	inferWarm = 2

	// sweepFloor is the resident-count soft ceiling above which Set
	// opportunistically sweeps expired items.
	sweepFloor = 100
)

// Config represents tiered-cache configuration.
type Config struct {
	L1Capacity int `yaml:"l1_capacity"`
	L2Capacity int `yaml:"l2_capacity"`
	L3Capacity int `yaml:"l3_capacity"`

	// PromotionThreshold is the number of recent accesses within
	// PromotionWindow that moves an item up one tier on a hit.
	PromotionThreshold int           `yaml:"promotion_threshold"`
	PromotionWindow    time.Duration `yaml:"promotion_window"`

	// DemotionThreshold is how long an L1 item may sit idle before the
	// demotion sweep moves it to L2. L2 items tolerate twice as long
	// before sinking to L3.
	DemotionThreshold time.Duration `yaml:"demotion_threshold"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		L1Capacity:         15,
		L2Capacity:         30,
		L3Capacity:         60,
		PromotionThreshold: 2,
		PromotionWindow:    10 * time.Second,
		DemotionThreshold:  30 * time.Second,
	}
}

// Validate checks the configuration for values that would mask
// misconfiguration at runtime.
func (c *Config) Validate() error {
	if c.L1Capacity <= 0 || c.L2Capacity <= 0 || c.L3Capacity <= 0 {
		return fmt.Errorf("tier capacities must be positive (got l1=%d l2=%d l3=%d)",
			c.L1Capacity, c.L2Capacity, c.L3Capacity)
	}
	if c.PromotionThreshold <= 0 {
		return fmt.Errorf("promotion_threshold must be positive (got %d)", c.PromotionThreshold)
	}
	if c.PromotionWindow <= 0 {
		return fmt.Errorf("promotion_window must be positive (got %v)", c.PromotionWindow)
	}
	if c.DemotionThreshold <= 0 {
		return fmt.Errorf("demotion_threshold must be positive (got %v)", c.DemotionThreshold)
	}
	return nil
}

// TieredCache is a three-level (hot/warm/cold) capacity-bounded cache.
//
// Lookups probe L1, then L2, then L3. Hits served from a lower tier promote
// the item one tier up when its recent access frequency clears the
// promotion threshold. Inserting into a full tier evicts the lowest-scoring
// resident, which sinks down one tier instead of being discarded; only an
// eviction out of L3 loses data. Optimize runs the TTL expiry sweep and the
// idle-demotion sweep.
//
// All methods are safe for concurrent use; a single mutex guards the three
// tier maps, the access tracker and the counters so cross-tier moves are
// always observed whole.
type TieredCache struct {
	mu      sync.Mutex
	cfg     Config
	tiers   [tierCount]map[string]*Item
	tracker *AccessTracker

	hits       uint64
	misses     uint64
	evictions  uint64
	promotions uint64
	demotions  uint64

	now func() time.Time
}

// New creates a tiered cache from the provided config. A nil config uses
// defaults. Invalid capacities or thresholds fail fast.
func New(cfg *Config) (*TieredCache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	c := &TieredCache{
		cfg:     *cfg,
		tracker: NewAccessTracker(accessRetention),
		now:     time.Now,
	}
	for i := range c.tiers {
		c.tiers[i] = make(map[string]*Item)
	}
	return c, nil
}

// Get probes L1, then L2, then L3. On a hit it bumps the item's access
// bookkeeping, records the access, and promotes the item one tier up when
// it was found below L1 and its recent frequency clears the promotion
// threshold. The second return value reports whether the key was found.
func (c *TieredCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for tier := tierL1; tier < tierCount; tier++ {
		item, ok := c.tiers[tier][key]
		if !ok {
			continue
		}

		if item.Expired(now) {
			c.removeLocked(key, tier)
			break
		}

		item.AccessCount++
		item.LastAccess = now
		c.tracker.Record(key, now)
		c.hits++

		if tier > tierL1 &&
			c.tracker.RecentCount(key, c.cfg.PromotionWindow, now) >= c.cfg.PromotionThreshold {
			c.moveLocked(item, tier, tier-1)
			c.promotions++
		}
		return item.Value, true
	}

	c.misses++
	return nil, false
}

// Set inserts or replaces a value. The target tier comes from the explicit
// priority option when given, otherwise from the key's recent access
// frequency. Inserting into a full tier evicts its lowest-scoring resident
// first. When the resident count exceeds a soft ceiling, Set starts by
// sweeping currently-expired items.
func (c *TieredCache) Set(key string, value any, opts *types.SetOptions) {
	if opts == nil {
		opts = &types.SetOptions{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.totalLocked() > sweepFloor {
		c.sweepExpiredLocked(now)
	}

	// Replace semantics: a key lives in at most one tier.
	for tier := range c.tiers {
		if _, ok := c.tiers[tier][key]; ok {
			delete(c.tiers[tier], key)
			break
		}
	}

	size := opts.Size
	if size <= 0 {
		size = EstimateSize(value)
	}

	priority := opts.Priority
	if priority == types.PriorityAuto {
		priority = c.inferPriorityLocked(key, now)
	}

	item := &Item{
		Key:         key,
		Value:       value,
		Size:        size,
		Priority:    priority,
		AccessCount: 1,
		LastAccess:  now,
		CreatedAt:   now,
		TTL:         opts.TTL,
		Tags:        opts.Tags,
	}
	c.insertLocked(item, tierForPriority(priority))
}

// Delete removes the key from whichever tier holds it and clears its
// tracker entry. It reports whether anything was removed.
func (c *TieredCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tier := range c.tiers {
		if _, ok := c.tiers[tier][key]; ok {
			c.removeLocked(key, tier)
			return true
		}
	}
	c.tracker.Forget(key)
	return false
}

// DeleteByTag removes every resident item carrying the tag, across all
// tiers, and returns how many were removed.
func (c *TieredCache) DeleteByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for tier := range c.tiers {
		for key, item := range c.tiers[tier] {
			if item.hasTag(tag) {
				c.removeLocked(key, tier)
				removed++
			}
		}
	}
	return removed
}

// Clear drops all tiers and the tracker and resets every counter.
func (c *TieredCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.tiers {
		c.tiers[i] = make(map[string]*Item)
	}
	c.tracker.Reset()
	c.hits, c.misses, c.evictions = 0, 0, 0
	c.promotions, c.demotions = 0, 0
}

// Optimize runs the expiry sweep across all tiers, then the demotion sweep:
// L1 items idle longer than the demotion threshold sink to L2, L2 items
// idle twice as long sink to L3.
func (c *TieredCache) Optimize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepExpiredLocked(now)
	c.demoteIdleLocked(now)
}

// Shed discards the lowest-scoring fraction of L3 outright and returns how
// many items were dropped. Used by graduated cleanup under memory pressure.
func (c *TieredCache) Shed(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cold := c.tiers[tierL3]
	target := int(float64(len(cold)) * fraction)
	if target == 0 {
		return 0
	}

	now := c.now()
	type scored struct {
		key   string
		score float64
	}
	candidates := make([]scored, 0, len(cold))
	for key, item := range cold {
		candidates = append(candidates, scored{key, c.score(item, now)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	for _, cand := range candidates[:target] {
		c.removeLocked(cand.key, tierL3)
		c.evictions++
	}
	return target
}

// Stats returns the current counters. Hit rate is zero when no lookups have
// happened yet.
func (c *TieredCache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := c.cfg.L1Capacity + c.cfg.L2Capacity + c.cfg.L3Capacity
	stats := types.CacheStats{
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		Promotions: c.promotions,
		Demotions:  c.demotions,
		L1Entries:  len(c.tiers[tierL1]),
		L2Entries:  len(c.tiers[tierL2]),
		L3Entries:  len(c.tiers[tierL3]),
		Capacity:   capacity,
	}
	stats.Entries = stats.L1Entries + stats.L2Entries + stats.L3Entries

	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	if capacity > 0 {
		stats.Utilization = float64(stats.Entries) / float64(capacity)
	}
	return stats
}

// MemoryUsage sums the estimated byte footprint per tier.
func (c *TieredCache) MemoryUsage() types.MemoryUsage {
	c.mu.Lock()
	defer c.mu.Unlock()

	var usage types.MemoryUsage
	for _, item := range c.tiers[tierL1] {
		usage.L1 += item.Size
	}
	for _, item := range c.tiers[tierL2] {
		usage.L2 += item.Size
	}
	for _, item := range c.tiers[tierL3] {
		usage.L3 += item.Size
	}
	usage.Total = usage.L1 + usage.L2 + usage.L3
	return usage
}

// Tier reports which tier currently holds the key (1, 2 or 3), or 0 when
// the key is not resident. Intended for tests and debugging.
func (c *TieredCache) Tier(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tier := range c.tiers {
		if _, ok := c.tiers[tier][key]; ok {
			return tier + 1
		}
	}
	return 0
}

// Helper methods. All *Locked methods require c.mu held.

func tierForPriority(p types.Priority) int {
	switch p {
	case types.PriorityHot:
		return tierL1
	case types.PriorityWarm:
		return tierL2
	default:
		return tierL3
	}
}

func priorityForTier(tier int) types.Priority {
	switch tier {
	case tierL1:
		return types.PriorityHot
	case tierL2:
		return types.PriorityWarm
	default:
		return types.PriorityCold
	}
}

func (c *TieredCache) capacityOf(tier int) int {
	switch tier {
	case tierL1:
		return c.cfg.L1Capacity
	case tierL2:
		return c.cfg.L2Capacity
	default:
		return c.cfg.L3Capacity
	}
}

func (c *TieredCache) totalLocked() int {
	return len(c.tiers[tierL1]) + len(c.tiers[tierL2]) + len(c.tiers[tierL3])
}

func (c *TieredCache) inferPriorityLocked(key string, now time.Time) types.Priority {
	recent := c.tracker.RecentCount(key, inferWindow, now)
	switch {
	case recent >= inferHot:
		return types.PriorityHot
	case recent >= inferWarm:
		return types.PriorityWarm
	default:
		return types.PriorityCold
	}
}

// insertLocked places an item into the given tier, evicting that tier's
// lowest-scoring resident first when it is full. Evictions from L1 and L2
// sink one tier down (recursively making room there); only L3 discards.
func (c *TieredCache) insertLocked(item *Item, tier int) {
	if len(c.tiers[tier]) >= c.capacityOf(tier) {
		c.evictLocked(tier)
	}
	item.Priority = priorityForTier(tier)
	c.tiers[tier][item.Key] = item
}

// evictLocked removes the lowest-scoring item from the tier. Below L3 the
// victim is demoted, not discarded.
func (c *TieredCache) evictLocked(tier int) {
	victim := c.evictionCandidateLocked(tier)
	if victim == nil {
		return
	}

	delete(c.tiers[tier], victim.Key)

	if tier < tierL3 {
		c.demotions++
		c.insertLocked(victim, tier+1)
		return
	}

	c.evictions++
	c.tracker.Forget(victim.Key)
}

// evictionCandidateLocked returns the resident with the minimum eviction
// score: least frequently and least recently used.
func (c *TieredCache) evictionCandidateLocked(tier int) *Item {
	now := c.now()
	var victim *Item
	best := 0.0
	for _, item := range c.tiers[tier] {
		s := c.score(item, now)
		if victim == nil || s < best {
			victim = item
			best = s
		}
	}
	return victim
}

// score combines a scaled access-frequency term with an idle-time penalty.
// Higher is safer from eviction.
func (c *TieredCache) score(item *Item, now time.Time) float64 {
	ageMs := float64(now.Sub(item.CreatedAt).Milliseconds())
	if ageMs < 1 {
		ageMs = 1
	}
	idleMs := float64(now.Sub(item.LastAccess).Milliseconds())
	return float64(item.AccessCount)/ageMs*frequencyScale - idleMs
}

// moveLocked atomically relocates an item between tiers: remove from the
// source, insert into the destination (evicting there if needed).
func (c *TieredCache) moveLocked(item *Item, from, to int) {
	delete(c.tiers[from], item.Key)
	c.insertLocked(item, to)
}

func (c *TieredCache) removeLocked(key string, tier int) {
	delete(c.tiers[tier], key)
	c.tracker.Forget(key)
}

func (c *TieredCache) sweepExpiredLocked(now time.Time) {
	for tier := range c.tiers {
		var expired []string
		for key, item := range c.tiers[tier] {
			if item.Expired(now) {
				expired = append(expired, key)
			}
		}
		for _, key := range expired {
			c.removeLocked(key, tier)
		}
	}
}

// demoteIdleLocked sinks idle items: L1 after DemotionThreshold, L2 after
// twice that. This bounds how long hot status persists without continued
// access.
func (c *TieredCache) demoteIdleLocked(now time.Time) {
	for _, tier := range []int{tierL2, tierL1} {
		threshold := c.cfg.DemotionThreshold
		if tier == tierL2 {
			threshold *= 2
		}

		var idle []*Item
		for _, item := range c.tiers[tier] {
			if now.Sub(item.LastAccess) > threshold {
				idle = append(idle, item)
			}
		}
		for _, item := range idle {
			c.moveLocked(item, tier, tier+1)
			c.demotions++
		}
	}
}
