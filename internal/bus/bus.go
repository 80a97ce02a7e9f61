// Package bus implements the single shared, snooping bus: arbitration
// between outstanding requests (FIFO, ties broken by submission order,
// which in practice means lowest processor id first since processors
// are stepped in id order within a cycle), peer snooping, traffic
// accounting, and memory engagement.
//
// The Bus owns every call into the Protocol: Processor only ever tells
// it "I need the bus for this event against this address" and later
// polls for completion. This keeps coherence decisions in one place,
// since resolving them correctly requires scanning every other
// processor's cache, something a Processor has no business doing
// directly.
package bus

import (
	"fmt"

	"github.com/joeycumines/go-cachesim/internal/cache"
	"github.com/joeycumines/go-cachesim/internal/cacheline"
	"github.com/joeycumines/go-cachesim/internal/memory"
	"github.com/joeycumines/go-cachesim/internal/ordinal"
	"github.com/joeycumines/go-cachesim/internal/protocol"
)

// wordSize is the granularity of a Dragon BusUpdate and of the
// word-at-a-time bus transfer rate used for cache-to-cache supply that
// does not engage memory.
const wordSize = 4

// request is a processor's ask for the bus, queued until it becomes
// the active transaction.
type request struct {
	proc       int
	event      protocol.Event
	address    uint64
	priorState cacheline.State
	wasMiss    bool
}

// activeTxn is the single in-flight bus transaction, if any.
type activeTxn struct {
	proc      int
	remaining uint
	wasMiss   bool
	access    protocol.Access
}

// Bus mediates every cross-cache interaction in the simulated machine.
type Bus struct {
	protocol  protocol.Protocol
	caches    []*cache.Cache
	memory    *memory.Memory
	blockSize int

	queue  []request
	active *activeTxn

	trafficBytes  uint64
	trafficByProc []uint64
	privateAccess uint64
	publicAccess  uint64
}

// New builds a Bus over the given per-processor caches, all sharing
// the same protocol, memory, and block size.
func New(p protocol.Protocol, caches []*cache.Cache, mem *memory.Memory, blockSize int) *Bus {
	return &Bus{
		protocol:      p,
		caches:        caches,
		memory:        mem,
		blockSize:     blockSize,
		trafficByProc: make([]uint64, len(caches)),
	}
}

// Submit enqueues a processor's request. priorState is the block's
// state in the requester's own cache before this event (cacheline.I
// for a miss); wasMiss must be true exactly when priorState == I.
func (b *Bus) Submit(proc int, event protocol.Event, address uint64, priorState cacheline.State, wasMiss bool) {
	b.queue = append(b.queue, request{proc: proc, event: event, address: address, priorState: priorState, wasMiss: wasMiss})
}

// Pump starts the next queued request if the bus is currently idle.
// Call once per cycle, after every processor has had a chance to
// Submit or to Release a just-completed transaction.
func (b *Bus) Pump() {
	if b.active != nil || len(b.queue) == 0 {
		return
	}
	req := b.queue[0]
	b.queue = b.queue[1:]
	b.resolve(req)
}

func (b *Bus) resolve(req request) {
	peerPresent := false
	for i, c := range b.caches {
		if i == req.proc {
			continue
		}
		if _, ok := c.BusGetBlockState(req.address); ok {
			peerPresent = true
			break
		}
	}

	var outcome protocol.LocalResult
	switch req.event {
	case protocol.LoadEvent:
		outcome = b.protocol.OnLoad(req.priorState, peerPresent)
	case protocol.StoreEvent:
		outcome = b.protocol.OnStore(req.priorState, peerPresent)
	default:
		panic(fmt.Sprintf("bus: unknown event %v", req.event))
	}
	if outcome.Txn == protocol.NoTxn {
		panic(cacheline.InvariantViolation{
			Invariant: "bus-request-requires-transaction",
			Detail:    fmt.Sprintf("request for %#x resolved to no transaction", req.address),
		})
	}

	anyFlush := false
	for i, c := range b.caches {
		if i == req.proc {
			continue
		}
		peerState, ok := c.BusGetBlockState(req.address)
		if !ok {
			continue
		}
		snoop := b.protocol.OnSnoop(peerState, outcome.Txn)
		c.BusSetBlockState(req.address, snoop.NextState)
		if snoop.Flush {
			anyFlush = true
		}
	}
	if req.event == protocol.StoreEvent && outcome.Txn == protocol.BusRd {
		// A store miss fetched with BusRd (Dragon) writes the block at
		// once; peers see that write as an update, so any peer left as
		// shared-modified owner by the fetch gives up that role.
		for i, c := range b.caches {
			if i == req.proc {
				continue
			}
			if peerState, ok := c.BusGetBlockState(req.address); ok {
				c.BusSetBlockState(req.address, b.protocol.OnSnoop(peerState, protocol.BusUpdate).NextState)
			}
		}
	}

	bytes, cycles, memoryEngaged := b.cost(outcome.Txn, peerPresent, anyFlush)

	requester := b.caches[req.proc]
	if req.wasMiss {
		evicted := requester.BusAllocate(req.address, outcome.NextState)
		if evicted.Dirty() {
			bytes += b.blockSize
			memoryEngaged = true
		}
	} else {
		requester.BusSetBlockState(req.address, outcome.NextState)
	}

	if memoryEngaged {
		if anyFlush {
			b.memory.IssueWrite()
		} else {
			b.memory.IssueRead()
		}
		cycles = memory.Latency
	}

	b.trafficBytes += uint64(bytes)
	b.trafficByProc[req.proc] += uint64(bytes)
	if outcome.Access == protocol.Public {
		b.publicAccess++
	} else {
		b.privateAccess++
	}

	b.active = &activeTxn{proc: req.proc, remaining: cycles, wasMiss: req.wasMiss, access: outcome.Access}
}

// cost derives the (bytes, cycles, memoryEngaged) triple for a
// transaction that does not (yet) know about the requester's own
// eviction writeback, which the caller folds in separately.
func (b *Bus) cost(txn protocol.BusTxn, peerPresent, anyFlush bool) (bytes int, cycles uint, memoryEngaged bool) {
	switch txn {
	case protocol.BusRd, protocol.BusRdX:
		bytes = b.blockSize
		switch {
		case anyFlush:
			bytes += b.blockSize
			memoryEngaged = true
		case !peerPresent:
			memoryEngaged = true
		}
		if memoryEngaged {
			cycles = memory.Latency
		} else {
			cycles = uint((b.blockSize + wordSize - 1) / wordSize)
		}
	case protocol.BusUpgrade:
		cycles = 1
	case protocol.BusUpdate:
		bytes = wordSize
		cycles = 1
	default:
		panic(fmt.Sprintf("bus: unexpected transaction kind %v", txn))
	}
	return
}

// Elapse advances the active transaction, if any, by one cycle.
func (b *Bus) Elapse() {
	if b.active != nil {
		b.active.remaining = ordinal.SatSub(b.active.remaining, 1)
	}
}

// IsComplete reports whether proc's transaction has finished counting
// down and is ready to be consumed via Access/Release.
func (b *Bus) IsComplete(proc int) bool {
	return b.active != nil && b.active.proc == proc && b.active.remaining == 0
}

// Access returns the access classification (private/public) of the
// completed transaction belonging to proc. Panics if proc does not own
// the active, completed transaction.
func (b *Bus) Access(proc int) protocol.Access {
	if !b.IsComplete(proc) {
		panic(fmt.Sprintf("bus: Access called for processor %d with no completed transaction", proc))
	}
	return b.active.access
}

// WasMiss reports whether proc's completed transaction originated from
// a cache miss (as opposed to a coherence-only upgrade on a hit).
func (b *Bus) WasMiss(proc int) bool {
	if !b.IsComplete(proc) {
		panic(fmt.Sprintf("bus: WasMiss called for processor %d with no completed transaction", proc))
	}
	return b.active.wasMiss
}

// Release retires proc's completed transaction, freeing the bus for
// the next queued request.
func (b *Bus) Release(proc int) {
	if !b.IsComplete(proc) {
		panic(fmt.Sprintf("bus: Release called for processor %d with no completed transaction", proc))
	}
	b.active = nil
}

// IsBusy reports whether the bus has an active transaction or any
// queued request, for the scheduler's termination check.
func (b *Bus) IsBusy() bool {
	return b.active != nil || len(b.queue) > 0
}

// TrafficBytes returns the cumulative bus traffic in bytes.
func (b *Bus) TrafficBytes() uint64 { return b.trafficBytes }

// TrafficByProcessor returns the cumulative bus traffic attributable
// to requests originated by processor i.
func (b *Bus) TrafficByProcessor(i int) uint64 { return b.trafficByProc[i] }

// PrivateAccesses returns the count of transactions classified private.
func (b *Bus) PrivateAccesses() uint64 { return b.privateAccess }

// PublicAccesses returns the count of transactions classified public.
func (b *Bus) PublicAccesses() uint64 { return b.publicAccess }
