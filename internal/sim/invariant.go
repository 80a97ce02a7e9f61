package sim

import (
	"fmt"

	"github.com/joeycumines/go-cachesim/internal/cache"
	"github.com/joeycumines/go-cachesim/internal/cacheline"
)

// InvariantViolation re-exports cacheline.InvariantViolation: every
// layer of the simulator (cacheline, cache, bus, sim) raises the same
// type, so cmd/cachesim's single recover site in runSimulation
// catches all of them regardless of where they originated.
type InvariantViolation = cacheline.InvariantViolation

// checkSingleModifiedOwner scans every set index across all caches
// (they share geometry, so a set index means the same thing in each)
// and panics with an InvariantViolation if more than one cache holds
// the same tag in a modified-owner state (M under either protocol, or
// more than one SM under Dragon).
func checkSingleModifiedOwner(caches []*cache.Cache) {
	if len(caches) == 0 {
		return
	}
	numSets := caches[0].NumSets()
	for set := 0; set < numSets; set++ {
		owners := map[uint64][]int{}
		for procID, c := range caches {
			c.ForEachInSet(set, func(tag uint64, state cacheline.State) {
				if state.Dirty() {
					owners[tag] = append(owners[tag], procID)
				}
			})
		}
		for tag, procs := range owners {
			if len(procs) > 1 {
				panic(InvariantViolation{
					Invariant: "single-modified-owner",
					Detail:    fmt.Sprintf("tag %#x in set %d held dirty by processors %v", tag, set, procs),
				})
			}
		}
	}
}
