/*
Package cache implements the tiered in-memory store at the core of tiermem.

Three capacity-bounded tiers hold items by heat:

	┌─────────────────────────────┐
	│        L1 (hot)             │  probed first, smallest
	├─────────────────────────────┤
	│        L2 (warm)            │
	├─────────────────────────────┤
	│        L3 (cold)            │  probed last, largest
	└─────────────────────────────┘

Lookups probe L1→L2→L3, realizing a cost model where the hottest data is
the cheapest to reach. Items move between tiers three ways:

  - Promotion: a hit served from L2 or L3 moves the item one tier up when
    its recent access frequency clears the promotion threshold.
  - Eviction: inserting into a full tier evicts the resident with the
    lowest score (a scaled frequency term minus an idle-time penalty); the
    victim sinks one tier down rather than being discarded. Only an
    eviction out of L3 loses data.
  - Demotion sweep: Optimize moves idle L1 items to L2 and twice-as-idle
    L2 items to L3, so hot status decays without continued access.

An AccessTracker keeps per-key sliding windows of access timestamps; it
feeds both the promotion decision and priority inference on Set.

A key resides in at most one tier at any time, and every cross-tier move
happens under the cache's single mutex, so readers never observe an item
half-moved.
*/
package cache
