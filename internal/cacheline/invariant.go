package cacheline

import "fmt"

// InvariantViolation is raised, via panic, whenever code elsewhere in
// the simulator observes a state the coherence protocol guarantees
// should be unreachable: a commit against a busy or Invalid block, an
// LRU eviction attempted while a free slot exists, more than one
// modified-owner for the same block, and similar. It lives in this
// leaf package so every layer (cacheline, cache, bus, sim) can raise
// or recognize the same type without an import cycle.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("protocol invariant violated (%s): %s", e.Invariant, e.Detail)
}
