// Package protocol implements the pure coherence transition functions
// for the two supported families, MESI and Dragon. Nothing here
// touches the bus, memory, or any cache directly — Protocol
// implementations are given local state and a peer-presence boolean
// and return what should happen; the Bus is responsible for scanning
// peers, applying the resulting mutations, and accounting traffic.
package protocol

import "github.com/joeycumines/go-cachesim/internal/cacheline"

// Event is the local operation a Processor is driving against its own
// cache.
type Event uint8

const (
	// LoadEvent is a read access.
	LoadEvent Event = iota
	// StoreEvent is a write access.
	StoreEvent
)

func (e Event) String() string {
	if e == StoreEvent {
		return "store"
	}
	return "load"
}

// BusTxn is one member of the closed transaction set a coherence
// decision may emit onto the shared bus.
type BusTxn uint8

const (
	// NoTxn means the event is silent: no bus involvement at all.
	NoTxn BusTxn = iota
	// BusRd requests a shared-readable copy of a block.
	BusRd
	// BusRdX requests an exclusive, invalidating copy (MESI only).
	BusRdX
	// BusUpgrade invalidates peers without moving data (MESI only).
	BusUpgrade
	// BusUpdate broadcasts a word-sized write to peers (Dragon only).
	BusUpdate
	// Flush is the snoop-side writeback response, never issued
	// directly by a requester; it is surfaced via SnoopResult.Flush
	// instead of as a requestable BusTxn.
	Flush
)

func (t BusTxn) String() string {
	switch t {
	case NoTxn:
		return "none"
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpgrade:
		return "BusUpgrade"
	case BusUpdate:
		return "BusUpdate"
	case Flush:
		return "Flush"
	default:
		return "?"
	}
}

// Access classifies an access at coherence-transaction time: private
// if no peer held the block at that moment, public otherwise.
type Access uint8

const (
	// Private means no other cache held the block at access time.
	Private Access = iota
	// Public means at least one other cache held the block.
	Public
)

func (a Access) String() string {
	if a == Public {
		return "public"
	}
	return "private"
}

// LocalResult is what a Protocol decides for a requester's own local
// event.
type LocalResult struct {
	NextState cacheline.State
	Txn       BusTxn
	Access    Access
}

// SnoopResult is what a Protocol decides a single peer must do in
// response to an observed bus transaction.
type SnoopResult struct {
	NextState cacheline.State
	// Flush indicates this peer held dirty data that must be written
	// back as part of satisfying the snoop.
	Flush bool
}

// Protocol is the capability set shared by MESI and Dragon: decide the
// outcome of a local load, a local store, and a snooped transaction.
// Implementations are pure and hold no state.
type Protocol interface {
	// Name identifies the protocol for logging/reporting.
	Name() string

	// RequiresBus reports whether an event against a block currently
	// in state would need to engage the bus at all, without
	// reference to peer presence: this lets a Processor decide
	// whether to hand off to the Bus using only its own cache's
	// state, before any peer scan happens.
	RequiresBus(event Event, state cacheline.State) bool

	// OnLoad decides the outcome of a local load against current
	// state, given whether any peer holds the block.
	OnLoad(current cacheline.State, peerPresent bool) LocalResult

	// OnStore decides the outcome of a local store.
	OnStore(current cacheline.State, peerPresent bool) LocalResult

	// OnSnoop decides how a single peer, currently in peerState,
	// reacts to an observed bus transaction txn issued by another
	// cache.
	OnSnoop(peerState cacheline.State, txn BusTxn) SnoopResult
}

func accessOf(peerPresent bool) Access {
	if peerPresent {
		return Public
	}
	return Private
}
