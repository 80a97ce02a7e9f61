// Package ordinal provides small generic helpers shared by the timing
// entities (Cache, Memory, Bus) and the per-set LRU bookkeeping in
// cacheline: a monotonic counter and a saturating subtraction, generic
// over the unsigned integer types they're instantiated with.
package ordinal

import "golang.org/x/exp/constraints"

// Counter is a monotonically increasing value, used to timestamp
// accesses within a CacheSet for LRU comparison. The zero value is
// ready to use.
type Counter[T constraints.Unsigned] struct {
	next T
}

// Next returns a fresh value strictly greater than every value
// previously returned by this Counter.
func (c *Counter[T]) Next() T {
	c.next++
	return c.next
}

// SatSub returns v-delta, saturating at zero instead of wrapping. Used
// by busy-counter elapse() implementations, which must never go
// negative.
func SatSub[T constraints.Unsigned](v, delta T) T {
	if delta >= v {
		return 0
	}
	return v - delta
}
