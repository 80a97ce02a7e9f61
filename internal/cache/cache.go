// Package cache implements the two-phase (issue/commit) private cache
// model: classification of hit/miss and the busy-cycle delay happen at
// issue time; the actual state mutation happens at commit time, once
// the busy counter has elapsed and (for a miss) the bus has populated
// the block.
package cache

import (
	"fmt"

	"github.com/joeycumines/go-cachesim/internal/addr"
	"github.com/joeycumines/go-cachesim/internal/cacheline"
	"github.com/joeycumines/go-cachesim/internal/ordinal"
)

// accessLatency is the fixed cache-access time in cycles, for both
// reads and writes.
const accessLatency = 1

// Kind distinguishes the two request shapes a Cache can have
// outstanding.
type Kind uint8

const (
	// Read is a load request.
	Read Kind = iota
	// Write is a store request.
	Write
)

// pending describes the single in-flight issue this cache may have.
type pending struct {
	kind    Kind
	address uint64
	hit     bool
}

// Cache is one processor's private cache: a fixed array of sets, plus
// the busy/pending bookkeeping for the two-phase request model.
// A Cache has at most one outstanding issue at a time, matching the
// Processor invariant that a processor is never both computing and
// waiting on its cache.
type Cache struct {
	decoder  addr.Decoder
	sets     []*cacheline.Set
	busy     uint
	inFlight *pending
}

// New builds a Cache for the given geometry.
func New(g addr.Geometry) (*Cache, error) {
	d, err := addr.NewDecoder(g)
	if err != nil {
		return nil, err
	}
	sets := make([]*cacheline.Set, d.NumSets())
	for i := range sets {
		sets[i] = cacheline.NewSet(g.Associativity)
	}
	return &Cache{decoder: d, sets: sets}, nil
}

// NumSets returns the number of sets in the cache.
func (c *Cache) NumSets() int { return len(c.sets) }

// Geometry returns the cache's geometry.
func (c *Cache) Geometry() addr.Geometry { return c.decoder.Geometry() }

func (c *Cache) setFor(address uint64) (*cacheline.Set, addr.Decoded) {
	d := c.decoder.Parse(address)
	return c.sets[d.SetIndex], d
}

// IssueRead classifies a load against the current cache contents and
// starts the fixed access-latency busy countdown. It does not mutate
// any block. Returns whether the access is (at issue time) a hit.
func (c *Cache) IssueRead(address uint64) bool {
	return c.issue(Read, address)
}

// IssueWrite is the write-side symmetric counterpart of IssueRead.
func (c *Cache) IssueWrite(address uint64) bool {
	return c.issue(Write, address)
}

func (c *Cache) issue(kind Kind, address uint64) bool {
	if c.inFlight != nil {
		panic(cacheline.InvariantViolation{
			Invariant: "single-outstanding-issue",
			Detail:    fmt.Sprintf("issue called while %v to %#x is already in flight", c.inFlight.kind, c.inFlight.address),
		})
	}
	set, d := c.setFor(address)
	hit := set.HasTag(d.Tag)
	c.inFlight = &pending{kind: kind, address: address, hit: hit}
	c.busy = accessLatency
	return hit
}

// CommitRead applies a previously issued read once it is ready:
// busy must be 0 and the issue must have resolved as a hit (a
// bus-delivered miss is expected to have already called BusAllocate,
// turning the access into a hit by the time commit runs). The block's
// LRU ordinal is refreshed (touched) — see cacheline.Set.Touch — but
// its state and tag are left untouched.
func (c *Cache) CommitRead(address uint64) {
	p := c.requireCommittable(Read, address)
	set, d := c.setFor(address)
	set.Touch(d.Tag)
	c.inFlight = nil
	_ = p
}

// CommitWrite applies a previously issued write. The block must be
// present (any of {M,E,S,SC,SM}); committing against an Invalid block
// panics, since the bus (or, for a silent local promotion, the caller)
// is responsible for placing the block in its final coherence state
// via BusAllocate/BusSetBlockState before commit runs — commit only
// validates and refreshes LRU, it never itself chooses the resulting
// state (Dragon can legitimately commit a write into SM, not just M).
func (c *Cache) CommitWrite(address uint64) {
	p := c.requireCommittable(Write, address)
	set, d := c.setFor(address)
	if st, ok := set.GetBlockState(d.Tag); !ok || st == cacheline.I {
		panic(cacheline.InvariantViolation{
			Invariant: "write-commit-requires-valid-block",
			Detail:    fmt.Sprintf("CommitWrite: block %#x is Invalid at commit time", address),
		})
	}
	set.Touch(d.Tag)
	c.inFlight = nil
	_ = p
}

func (c *Cache) requireCommittable(kind Kind, address uint64) pending {
	if c.inFlight == nil {
		panic(cacheline.InvariantViolation{Invariant: "commit-requires-issue", Detail: "commit called with no issue in flight"})
	}
	p := *c.inFlight
	if p.kind != kind || p.address != address {
		panic(cacheline.InvariantViolation{
			Invariant: "commit-matches-issue",
			Detail:    fmt.Sprintf("commit mismatch: in flight %v %#x, got %v %#x", p.kind, p.address, kind, address),
		})
	}
	if c.busy != 0 {
		panic(cacheline.InvariantViolation{Invariant: "commit-requires-idle-cache", Detail: "commit called while still busy"})
	}
	if !p.hit {
		panic(cacheline.InvariantViolation{Invariant: "commit-requires-hit", Detail: "commit called on a request still classified as a miss"})
	}
	return p
}

// BusGetBlockState is a snoop query: it never mutates cache state.
func (c *Cache) BusGetBlockState(address uint64) (cacheline.State, bool) {
	set, d := c.setFor(address)
	return set.GetBlockState(d.Tag)
}

// BusSetBlockState is a snoop-driven mutation, used by the bus to
// demote/invalidate/refresh a block in a peer's cache.
func (c *Cache) BusSetBlockState(address uint64, state cacheline.State) {
	set, d := c.setFor(address)
	set.SetBlockState(d.Tag, state)
}

// BusAllocate makes room for (LRU-evicting if necessary) and inserts a
// new block, as driven by the bus once a miss's coherence outcome is
// known. It returns the evicted block's prior state (I if no eviction
// was necessary) so the bus can decide whether a writeback was
// required.
func (c *Cache) BusAllocate(address uint64, state cacheline.State) cacheline.State {
	set, d := c.setFor(address)
	var evicted cacheline.State
	if !set.CanAllocate() {
		evicted = set.EvictLRU()
	}
	set.Allocate(state, d.Tag)
	return evicted
}

// BusEvict removes the block at address, if present, and returns its
// prior state.
func (c *Cache) BusEvict(address uint64) cacheline.State {
	set, d := c.setFor(address)
	return set.Evict(d.Tag)
}

// ForEachInSet calls fn once per non-Invalid block resident in the
// given set index, for cross-cache invariant scans.
func (c *Cache) ForEachInSet(setIndex int, fn func(tag uint64, state cacheline.State)) {
	c.sets[setIndex].ForEach(fn)
}

// Elapse decrements the busy counter by one cycle, saturating at zero.
func (c *Cache) Elapse() {
	c.busy = ordinal.SatSub(c.busy, 1)
}

// IsBusy reports whether the cache's access-latency countdown has not
// yet reached zero.
func (c *Cache) IsBusy() bool { return c.busy != 0 }

// IsCacheHit returns the classification made at issue time, and
// whether it is valid to read yet (i.e. the busy counter has reached
// zero). Callers must not commit until the second return is true.
func (c *Cache) IsCacheHit() (hit bool, ready bool) {
	if c.busy != 0 || c.inFlight == nil {
		return false, false
	}
	return c.inFlight.hit, true
}

// ResolveMiss flips an in-flight miss to a hit, once the bus has
// finished populating the block via BusAllocate. It is how
// WaitingForBus transitions back into something CommitRead/CommitWrite
// will accept. Panics if there is no in-flight miss for address.
func (c *Cache) ResolveMiss(address uint64) {
	if c.inFlight == nil || c.inFlight.address != address {
		panic(cacheline.InvariantViolation{Invariant: "resolve-requires-issue", Detail: fmt.Sprintf("ResolveMiss: no in-flight request for %#x", address)})
	}
	if c.inFlight.hit {
		panic(cacheline.InvariantViolation{Invariant: "resolve-requires-miss", Detail: "ResolveMiss called on a request already classified as a hit"})
	}
	c.inFlight.hit = true
}

// PendingAddress returns the address of the in-flight request, if any.
func (c *Cache) PendingAddress() (address uint64, ok bool) {
	if c.inFlight == nil {
		return 0, false
	}
	return c.inFlight.address, true
}

// PendingKind returns the kind of the in-flight request, if any.
func (c *Cache) PendingKind() (kind Kind, ok bool) {
	if c.inFlight == nil {
		return 0, false
	}
	return c.inFlight.kind, true
}

// String renders the Kind for diagnostics.
func (k Kind) String() string {
	if k == Write {
		return "write"
	}
	return "read"
}
