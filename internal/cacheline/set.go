package cacheline

import (
	"fmt"

	"github.com/joeycumines/go-cachesim/internal/ordinal"
)

// Set is a fixed-size, fully-associative group of Blocks: the slots a
// given address's set index maps to. Invariants (enforced by every
// mutating method, panicking via the named Invariant errors on
// violation): no two non-I blocks share a Tag; LastUsed values of
// non-I blocks are distinct; the LRU victim is always the non-I block
// with the smallest LastUsed, and is only chosen when no I slot
// exists.
type Set struct {
	blocks  []Block
	touched ordinal.Counter[uint64]
}

// NewSet allocates a Set with the given associativity, all slots
// starting Invalid.
func NewSet(associativity int) *Set {
	if associativity <= 0 {
		panic(fmt.Sprintf("cacheline: set: associativity %d must be positive", associativity))
	}
	return &Set{blocks: make([]Block, associativity)}
}

// HasTag reports whether some non-Invalid block in the set carries
// tag.
func (s *Set) HasTag(tag uint64) bool {
	_, ok := s.indexOf(tag)
	return ok
}

// GetBlockState returns the state of the block with the given tag, and
// whether it is present (non-Invalid) at all.
func (s *Set) GetBlockState(tag uint64) (State, bool) {
	i, ok := s.indexOf(tag)
	if !ok {
		return I, false
	}
	return s.blocks[i].State, true
}

// SetBlockState mutates the state of the block with tag in place.
// Setting State to I frees the slot (Tag becomes meaningless, though
// this implementation leaves it in place harmlessly). Panics if tag is
// not present — callers must Allocate first.
func (s *Set) SetBlockState(tag uint64, state State) {
	i, ok := s.indexOf(tag)
	if !ok {
		panic(InvariantViolation{Invariant: "tag-present-on-mutate", Detail: fmt.Sprintf("SetBlockState: tag %#x not present", tag)})
	}
	s.blocks[i].State = state
}

// CanAllocate reports whether any Invalid slot exists.
func (s *Set) CanAllocate() bool {
	_, ok := s.freeSlot()
	return ok
}

// EvictLRU removes the non-Invalid block with the smallest LastUsed
// ordinal and returns its prior state. It panics if an Invalid slot
// exists (callers must check CanAllocate first) or if the
// set is entirely Invalid (nothing to evict).
func (s *Set) EvictLRU() State {
	if _, ok := s.freeSlot(); ok {
		panic(InvariantViolation{Invariant: "lru-eviction-requires-full-set", Detail: "EvictLRU called while a free slot exists"})
	}
	victim := -1
	var victimOrdinal uint64
	for i := range s.blocks {
		if s.blocks[i].State == I {
			continue
		}
		if victim == -1 || s.blocks[i].LastUsed < victimOrdinal {
			victim = i
			victimOrdinal = s.blocks[i].LastUsed
		}
	}
	if victim == -1 {
		panic(InvariantViolation{Invariant: "lru-eviction-requires-full-set", Detail: "EvictLRU called on an empty set"})
	}
	prior := s.blocks[victim].State
	s.blocks[victim] = Block{}
	return prior
}

// Evict removes the block with the given tag if present, returning its
// prior state; if absent, returns I and does nothing.
func (s *Set) Evict(tag uint64) State {
	i, ok := s.indexOf(tag)
	if !ok {
		return I
	}
	prior := s.blocks[i].State
	s.blocks[i] = Block{}
	return prior
}

// Allocate inserts a new block with the given tag and state into a
// free slot, touching it to the set's current MRU ordinal. Panics if
// a block with tag is already present, or if no free slot exists —
// callers must evict first.
func (s *Set) Allocate(state State, tag uint64) {
	if _, dup := s.indexOf(tag); dup {
		panic(InvariantViolation{Invariant: "unique-tag-in-set", Detail: fmt.Sprintf("Allocate: tag %#x already present", tag)})
	}
	i, ok := s.freeSlot()
	if !ok {
		panic(InvariantViolation{Invariant: "allocate-requires-free-slot", Detail: "Allocate called with no free slot"})
	}
	s.blocks[i] = Block{Tag: tag, State: state, LastUsed: s.touched.Next()}
}

// Touch refreshes the LRU ordinal of the block with the given tag,
// without changing its state. This is how commitRead/commitWrite
// "evict and reallocate" a block that was already resident: the
// refresh is expressed as an ordinal bump, not a physical
// remove-and-reinsert, so the block's identity and state survive
// unchanged. Panics if tag is not present.
func (s *Set) Touch(tag uint64) {
	i, ok := s.indexOf(tag)
	if !ok {
		panic(InvariantViolation{Invariant: "tag-present-on-mutate", Detail: fmt.Sprintf("Touch: tag %#x not present", tag)})
	}
	s.blocks[i].LastUsed = s.touched.Next()
}

// Associativity returns the number of ways in the set.
func (s *Set) Associativity() int { return len(s.blocks) }

// ForEach calls fn once per non-Invalid block, for diagnostics and
// invariant checks (e.g. scanning for duplicate tags across the whole
// cache).
func (s *Set) ForEach(fn func(tag uint64, state State)) {
	for i := range s.blocks {
		if s.blocks[i].State != I {
			fn(s.blocks[i].Tag, s.blocks[i].State)
		}
	}
}

func (s *Set) indexOf(tag uint64) (int, bool) {
	for i := range s.blocks {
		if s.blocks[i].State != I && s.blocks[i].Tag == tag {
			return i, true
		}
	}
	return 0, false
}

func (s *Set) freeSlot() (int, bool) {
	for i := range s.blocks {
		if s.blocks[i].State == I {
			return i, true
		}
	}
	return 0, false
}
