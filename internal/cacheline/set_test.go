package cacheline

import "testing"

func TestSet_allocateAndLookup(t *testing.T) {
	s := NewSet(2)
	if s.HasTag(1) {
		t.Fatal("empty set should not have tag 1")
	}
	if !s.CanAllocate() {
		t.Fatal("empty set should allow allocation")
	}
	s.Allocate(E, 1)
	if st, ok := s.GetBlockState(1); !ok || st != E {
		t.Fatalf("GetBlockState(1) = %v, %v, want E, true", st, ok)
	}
	if !s.CanAllocate() {
		t.Fatal("set with one of two ways filled should still allow allocation")
	}
	s.Allocate(S, 2)
	if s.CanAllocate() {
		t.Fatal("full set should not allow allocation")
	}
}

func TestSet_EvictLRU_picksOldest(t *testing.T) {
	s := NewSet(2)
	s.Allocate(E, 0x00) // first -> oldest
	s.Allocate(E, 0x40)
	prior := s.EvictLRU()
	if prior != E {
		t.Fatalf("evicted state = %v, want E", prior)
	}
	if s.HasTag(0x00) {
		t.Fatal("0x00 should have been evicted (oldest)")
	}
	if !s.HasTag(0x40) {
		t.Fatal("0x40 should remain resident")
	}
}

func TestSet_Touch_refreshesOrdinalWithoutChangingState(t *testing.T) {
	s := NewSet(2)
	s.Allocate(E, 0x00)
	s.Allocate(E, 0x40)
	s.SetBlockState(0x00, S)
	// touching 0x00 makes it MRU, so 0x40 becomes the eviction victim
	s.Touch(0x00)
	prior := s.EvictLRU()
	if prior != E {
		t.Fatalf("evicted state = %v, want E (0x40 unchanged)", prior)
	}
	if !s.HasTag(0x00) {
		t.Fatal("0x00 should remain resident after touch")
	}
	if st, _ := s.GetBlockState(0x00); st != S {
		t.Fatalf("0x00 state = %v, want S", st)
	}
}

func TestSet_EvictLRU_panicsWithFreeSlot(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when evicting with a free slot present")
		}
	}()
	s := NewSet(2)
	s.Allocate(E, 0x00)
	s.EvictLRU()
}

func TestSet_Evict_missingTagIsNoop(t *testing.T) {
	s := NewSet(1)
	if prior := s.Evict(0xdead); prior != I {
		t.Fatalf("Evict of absent tag = %v, want I", prior)
	}
}

func TestSet_ForEach(t *testing.T) {
	s := NewSet(2)
	s.Allocate(M, 5)
	seen := map[uint64]State{}
	s.ForEach(func(tag uint64, state State) { seen[tag] = state })
	if len(seen) != 1 || seen[5] != M {
		t.Fatalf("ForEach saw %v, want {5: M}", seen)
	}
}
