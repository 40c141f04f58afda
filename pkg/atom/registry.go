package atom

import (
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/atom/internal/debug"
)

// registry maps fingerprints to the atoms that share them. It is the only
// place records are allocated, and it never removes anything: every record it
// creates stays reachable from buckets for the life of the process.
type registry struct {
	mu      sync.Mutex
	buckets map[Key][]Atom

	// Guarded by mu.
	records      int
	payloadBytes int64
	blockBytes   int64
	colliding    int

	lookups atomic.Uint64
	hits    atomic.Uint64
}

var (
	globalOnce     sync.Once
	globalRegistry *registry
)

// global returns the process-wide registry, creating it on first use.
func global() *registry {
	globalOnce.Do(func() {
		globalRegistry = &registry{
			buckets: make(map[Key][]Atom),
		}
	})
	return globalRegistry
}

// intern returns the unique atom for s, allocating a record on first sight.
// key must equal KeyOf(s); callers hash before the lock is taken. s may alias
// caller-owned memory, since a miss copies it into the new record.
func (r *registry) intern(s string, key Key) Atom {
	r.lookups.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.buckets[key]
	for _, a := range bucket {
		if a.rec.content() == s {
			r.hits.Add(1)
			return a
		}
	}

	rec, block := allocRecord(s, key)
	a := Atom{rec: rec}
	r.buckets[key] = append(bucket, a)

	r.records++
	r.payloadBytes += int64(len(s))
	r.blockBytes += int64(block)
	if len(bucket) == 1 {
		r.colliding++
		debug.LogIntern("fingerprint collision on %s (%q vs %q)\n", key, bucket[0].rec.content(), a.rec.content())
	}
	return a
}

// lookup finds the atom for s without ever allocating.
func (r *registry) lookup(s string, key Key) (Atom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.buckets[key] {
		if a.rec.content() == s {
			return a, true
		}
	}
	return Atom{}, false
}

// Stats is a snapshot of the global registry.
type Stats struct {
	Records          int    `json:"records"`           // distinct non-empty strings interned
	PayloadBytes     int64  `json:"payload_bytes"`     // sum of their lengths
	BlockBytes       int64  `json:"block_bytes"`       // bytes allocated for records, headers and padding included
	Buckets          int    `json:"buckets"`           // distinct fingerprints
	CollidingBuckets int    `json:"colliding_buckets"` // fingerprints shared by more than one string
	Lookups          uint64 `json:"lookups"`           // intern calls that reached the registry
	Hits             uint64 `json:"hits"`              // lookups answered by an existing record
}

func (r *registry) stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Records:          r.records,
		PayloadBytes:     r.payloadBytes,
		BlockBytes:       r.blockBytes,
		Buckets:          len(r.buckets),
		CollidingBuckets: r.colliding,
		Lookups:          r.lookups.Load(),
		Hits:             r.hits.Load(),
	}
}

// ReadStats returns a snapshot of the global registry's counters.
func ReadStats() Stats {
	return global().stats()
}

// Len returns the number of records the global registry holds.
func Len() int {
	r := global()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

// Lookup returns the atom for s if s was interned before. It never allocates
// a record. The empty string is always found.
func Lookup(s string) (Atom, bool) {
	if len(s) == 0 {
		return Atom{}, true
	}
	return global().lookup(s, KeyOf(s))
}
