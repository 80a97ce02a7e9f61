// Package processor implements the per-CPU driver: a small state
// machine that pulls trace entries, drives its private cache through
// the issue/commit protocol, and hands off to the bus whenever the
// protocol says a coherence transaction is needed.
package processor

import (
	"fmt"

	"github.com/joeycumines/go-cachesim/internal/bus"
	"github.com/joeycumines/go-cachesim/internal/cache"
	"github.com/joeycumines/go-cachesim/internal/cacheline"
	"github.com/joeycumines/go-cachesim/internal/protocol"
	"github.com/joeycumines/go-cachesim/internal/trace"
)

// Status names the processor's coarse state, surfaced for diagnostics
// and for the scheduler's termination check.
type Status uint8

const (
	// Ready means the processor is between instructions: either about
	// to consume its next trace entry, or its trace is exhausted.
	Ready Status = iota
	// Computing means an Other(n) instruction's countdown is running.
	Computing
	// WaitingForCache means a load/store is waiting on the cache's
	// fixed access latency.
	WaitingForCache
	// WaitingForBus means a load/store was classified as needing a
	// coherence transaction and is waiting on the bus.
	WaitingForBus
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Computing:
		return "computing"
	case WaitingForCache:
		return "waiting-for-cache"
	case WaitingForBus:
		return "waiting-for-bus"
	default:
		return "?"
	}
}

// Stats accumulates the counters the final report is built from.
type Stats struct {
	ComputeCycles   uint64
	IdleCycles      uint64
	Loads           uint64
	Stores          uint64
	Misses          uint64
	PrivateAccesses uint64
	PublicAccesses  uint64
}

// Processor drives one CPU: its trace, its private cache, and its
// pending Other(n) countdown.
type Processor struct {
	id       int
	protocol protocol.Protocol
	cache    *cache.Cache
	bus      *bus.Bus
	entries  []trace.Entry

	status       Status
	computeLeft  int
	pendingEvent protocol.Event
	pendingAddr  uint64
	pendingMiss  bool

	Stats Stats
}

// New builds a Processor. entries is consumed front-to-back as the
// processor steps; it is not copied.
func New(id int, p protocol.Protocol, c *cache.Cache, b *bus.Bus, entries []trace.Entry) *Processor {
	return &Processor{id: id, protocol: p, cache: c, bus: b, entries: entries}
}

// ID returns the processor's index, matching its position in the
// Scheduler's processor list and the bus's cache registry.
func (p *Processor) ID() int { return p.id }

// Status returns the processor's current state, as left by the most
// recent Step call.
func (p *Processor) Status() Status { return p.status }

// Done reports whether the processor's trace is fully consumed and it
// is not waiting on anything.
func (p *Processor) Done() bool {
	return p.status == Ready && len(p.entries) == 0
}

// Step executes one cycle's worth of work for this processor. It must
// be called once per cycle, for every processor, before the shared
// caches/bus/memory are elapsed.
func (p *Processor) Step() {
	switch p.status {
	case Ready:
		p.stepReady()
	case Computing:
		p.Stats.ComputeCycles++
		p.computeLeft--
		if p.computeLeft == 0 {
			p.status = Ready
		}
	case WaitingForCache:
		p.Stats.IdleCycles++
		p.stepWaitingForCache()
	case WaitingForBus:
		p.Stats.IdleCycles++
		p.stepWaitingForBus()
	default:
		panic(fmt.Sprintf("processor %d: unknown status %v", p.id, p.status))
	}
}

func (p *Processor) stepReady() {
	if len(p.entries) == 0 {
		return
	}
	e := p.entries[0]
	p.entries = p.entries[1:]
	switch e.Kind {
	case trace.Other:
		if e.Cycles == 0 {
			// a zero-length compute burst is a no-op; stay Ready for
			// the next entry rather than spending a phantom cycle.
			return
		}
		p.computeLeft = int(e.Cycles)
		p.status = Computing
	case trace.Load:
		p.issue(protocol.LoadEvent, e.Address)
	case trace.Store:
		p.issue(protocol.StoreEvent, e.Address)
	default:
		panic(fmt.Sprintf("processor %d: unknown trace entry kind %v", p.id, e.Kind))
	}
}

func (p *Processor) issue(event protocol.Event, address uint64) {
	if event == protocol.LoadEvent {
		p.cache.IssueRead(address)
		p.Stats.Loads++
	} else {
		p.cache.IssueWrite(address)
		p.Stats.Stores++
	}
	p.pendingEvent = event
	p.pendingAddr = address
	p.status = WaitingForCache
}

func (p *Processor) stepWaitingForCache() {
	hit, ready := p.cache.IsCacheHit()
	if !ready {
		return
	}
	state, _ := p.cache.BusGetBlockState(p.pendingAddr)
	p.pendingMiss = !hit
	if p.pendingMiss {
		p.Stats.Misses++
	}
	if !p.protocol.RequiresBus(p.pendingEvent, state) {
		// No coherence transaction needed: a load leaves state
		// untouched, but a silent store (E/M under either protocol)
		// still needs to promote to M, since nothing else will.
		if p.pendingEvent == protocol.StoreEvent {
			p.cache.BusSetBlockState(p.pendingAddr, cacheline.M)
		}
		p.commit()
		p.status = Ready
		return
	}
	p.bus.Submit(p.id, p.pendingEvent, p.pendingAddr, state, p.pendingMiss)
	p.status = WaitingForBus
}

func (p *Processor) stepWaitingForBus() {
	if !p.bus.IsComplete(p.id) {
		return
	}
	if p.bus.Access(p.id) == protocol.Public {
		p.Stats.PublicAccesses++
	} else {
		p.Stats.PrivateAccesses++
	}
	if p.pendingMiss {
		p.cache.ResolveMiss(p.pendingAddr)
	}
	p.bus.Release(p.id)
	p.commit()
	p.status = Ready
}

func (p *Processor) commit() {
	if p.pendingEvent == protocol.LoadEvent {
		p.cache.CommitRead(p.pendingAddr)
	} else {
		p.cache.CommitWrite(p.pendingAddr)
	}
}
