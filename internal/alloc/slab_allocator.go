// Package alloc provides tiered slice pools for short-lived buffers.
package alloc

import (
	"sync"
	"sync/atomic"
)

// SlabAllocator hands out slices from size-tiered pools so that buffers of
// similar size are recycled instead of reallocated. It is safe for
// concurrent use.
type SlabAllocator[T any] struct {
	// Tiers sorted by ascending capacity (pointers to avoid copying sync.Pool)
	pools []*poolTier[T]

	allocations   atomic.Int64
	reuses        atomic.Int64
	poolHits      atomic.Int64
	poolMisses    atomic.Int64
	discards      atomic.Int64
	totalCapacity atomic.Int64
}

type poolTier[T any] struct {
	capacity int
	pool     sync.Pool // holds *[]T
	hits     atomic.Int64
}

// AllocatorStats is a snapshot of allocation counters
type AllocatorStats struct {
	Allocations   int64 // slices created because no pooled slice was available
	Reuses        int64 // slices handed out from a pool
	PoolHits      int64 // Put calls that returned a slice to a pool
	PoolMisses    int64 // Get calls larger than every tier
	Discards      int64 // Put calls whose slice fit no tier
	TotalCapacity int64 // capacity handed out over the allocator's lifetime
	TierHits      []int64
	BusiestTier   int // capacity of the tier with the most returned slices
}

// SlabTierConfig defines the configuration for a single slab tier
type SlabTierConfig struct {
	Capacity int
	Weight   float64 // Relative share of requests expected in this tier
}

// TokenTierConfigs is sized for per-file token buffers. Most source files
// yield a few hundred to a few thousand tokens.
var TokenTierConfigs = []SlabTierConfig{
	{Capacity: 256, Weight: 0.25},
	{Capacity: 1024, Weight: 0.35},
	{Capacity: 4096, Weight: 0.25},
	{Capacity: 16384, Weight: 0.10},
	{Capacity: 65536, Weight: 0.05},
}

// NewSlabAllocator creates a new slab allocator with the given tier configurations.
// Tiers must be listed in ascending capacity order.
func NewSlabAllocator[T any](configs []SlabTierConfig) *SlabAllocator[T] {
	sa := &SlabAllocator[T]{
		pools: make([]*poolTier[T], len(configs)),
	}
	for i, config := range configs {
		sa.pools[i] = &poolTier[T]{capacity: config.Capacity}
	}
	return sa
}

// NewTokenSlabAllocator creates a slab allocator tuned for token buffers
func NewTokenSlabAllocator[T any]() *SlabAllocator[T] {
	return NewSlabAllocator[T](TokenTierConfigs)
}

// Get returns a slice with length 0 and capacity >= capacity.
func (sa *SlabAllocator[T]) Get(capacity int) []T {
	if capacity <= 0 {
		return make([]T, 0)
	}

	for _, tier := range sa.pools {
		if tier.capacity >= capacity {
			return sa.getFromPool(tier)
		}
	}

	// Larger than every tier
	sa.allocations.Add(1)
	sa.poolMisses.Add(1)
	sa.totalCapacity.Add(int64(capacity))
	return make([]T, 0, capacity)
}

func (sa *SlabAllocator[T]) getFromPool(tier *poolTier[T]) []T {
	if p, ok := tier.pool.Get().(*[]T); ok {
		sa.reuses.Add(1)
		sa.totalCapacity.Add(int64(cap(*p)))
		return (*p)[:0]
	}

	sa.allocations.Add(1)
	sa.totalCapacity.Add(int64(tier.capacity))
	return make([]T, 0, tier.capacity)
}

// Put returns a slice for reuse. The slice is filed under the largest tier
// it can serve, so slices grown by append are still recycled. Slices smaller
// than the first tier or more than twice the last tier are dropped.
// The caller must not use slice after Put.
func (sa *SlabAllocator[T]) Put(slice []T) {
	if cap(slice) == 0 || len(sa.pools) == 0 {
		return
	}

	capacity := cap(slice)
	if capacity > 2*sa.pools[len(sa.pools)-1].capacity {
		sa.discards.Add(1)
		return
	}

	for i := len(sa.pools) - 1; i >= 0; i-- {
		tier := sa.pools[i]
		if capacity >= tier.capacity {
			clear(slice)
			slice = slice[:0]
			tier.pool.Put(&slice)
			tier.hits.Add(1)
			sa.poolHits.Add(1)
			return
		}
	}

	sa.discards.Add(1)
}

// GrowSlice returns slice with room for at least additional more elements,
// moving it into a pooled buffer when it has to grow.
func (sa *SlabAllocator[T]) GrowSlice(slice []T, additional int) []T {
	if additional <= 0 || cap(slice)-len(slice) >= additional {
		return slice
	}

	grown := sa.Get(max(len(slice)+additional, 2*cap(slice)))
	grown = append(grown, slice...)
	sa.Put(slice)
	return grown
}

// GetStats returns current allocation statistics
func (sa *SlabAllocator[T]) GetStats() AllocatorStats {
	stats := AllocatorStats{
		Allocations:   sa.allocations.Load(),
		Reuses:        sa.reuses.Load(),
		PoolHits:      sa.poolHits.Load(),
		PoolMisses:    sa.poolMisses.Load(),
		Discards:      sa.discards.Load(),
		TotalCapacity: sa.totalCapacity.Load(),
		TierHits:      make([]int64, len(sa.pools)),
		BusiestTier:   sa.BusiestTier(),
	}
	for i, tier := range sa.pools {
		stats.TierHits[i] = tier.hits.Load()
	}
	return stats
}

// BusiestTier returns the capacity of the tier that received the most
// returned slices, or the middle tier when nothing has been returned yet.
func (sa *SlabAllocator[T]) BusiestTier() int {
	if len(sa.pools) == 0 {
		return 0
	}
	best := sa.pools[len(sa.pools)/2]
	var bestHits int64
	for _, tier := range sa.pools {
		if h := tier.hits.Load(); h > bestHits {
			best, bestHits = tier, h
		}
	}
	return best.capacity
}
