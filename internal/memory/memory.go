// Package memory models the shared backing store as a single busy
// counter: one outstanding transaction at a time, serialized by
// whatever mediates access (the Bus).
package memory

import (
	"github.com/joeycumines/go-cachesim/internal/cacheline"
	"github.com/joeycumines/go-cachesim/internal/ordinal"
)

// Latency is the fixed number of cycles a memory transaction takes to
// complete.
const Latency = 100

// Memory is the single shared backing store.
type Memory struct {
	busy uint
}

// New returns an idle Memory.
func New() *Memory { return &Memory{} }

// IssueRead starts a Latency-cycle read transaction. Panics if a
// transaction is already outstanding — the Bus is responsible for
// serializing requests before they reach Memory.
func (m *Memory) IssueRead() { m.issue() }

// IssueWrite starts a Latency-cycle write transaction (a writeback).
func (m *Memory) IssueWrite() { m.issue() }

func (m *Memory) issue() {
	if m.busy != 0 {
		panic(cacheline.InvariantViolation{
			Invariant: "memory-requires-serialized-access",
			Detail:    "issue called while a transaction is already outstanding",
		})
	}
	m.busy = Latency
}

// Elapse decrements the busy counter by one cycle, saturating at zero.
func (m *Memory) Elapse() {
	m.busy = ordinal.SatSub(m.busy, 1)
}

// IsBusy reports whether a transaction is still outstanding.
func (m *Memory) IsBusy() bool { return m.busy != 0 }
