package protocol

import "github.com/joeycumines/go-cachesim/internal/cacheline"

// Dragon is the update-based protocol: Modified, Exclusive,
// SharedClean, SharedModified, Invalid. There is no Invalid-on-peer
// write-invalidate step: writes to a shared block are broadcast
// (BusUpdate) rather than invalidating sharers.
type Dragon struct{}

var _ Protocol = Dragon{}

func (Dragon) Name() string { return "Dragon" }

func (Dragon) RequiresBus(event Event, state cacheline.State) bool {
	if state == cacheline.I {
		return true
	}
	if event == StoreEvent {
		return state == cacheline.SC || state == cacheline.SM
	}
	return false
}

func (Dragon) OnLoad(current cacheline.State, peerPresent bool) LocalResult {
	if current != cacheline.I {
		return LocalResult{NextState: current, Txn: NoTxn}
	}
	if peerPresent {
		return LocalResult{NextState: cacheline.SC, Txn: BusRd, Access: Public}
	}
	return LocalResult{NextState: cacheline.E, Txn: BusRd, Access: Private}
}

func (Dragon) OnStore(current cacheline.State, peerPresent bool) LocalResult {
	switch current {
	case cacheline.I:
		if peerPresent {
			// Fetch the block (BusRd) and immediately dirty it. The Bus
			// also passes peers through the BusUpdate snoop for this
			// write, so the requester is the only SM owner afterwards.
			return LocalResult{NextState: cacheline.SM, Txn: BusRd, Access: Public}
		}
		return LocalResult{NextState: cacheline.M, Txn: BusRd, Access: Private}
	case cacheline.SC, cacheline.SM:
		if peerPresent {
			return LocalResult{NextState: cacheline.SM, Txn: BusUpdate, Access: Public}
		}
		return LocalResult{NextState: cacheline.M, Txn: BusUpdate, Access: Private}
	default: // E, M
		return LocalResult{NextState: cacheline.M, Txn: NoTxn, Access: Private}
	}
}

func (Dragon) OnSnoop(peerState cacheline.State, txn BusTxn) SnoopResult {
	switch txn {
	case BusRd:
		switch peerState {
		case cacheline.M:
			return SnoopResult{NextState: cacheline.SM, Flush: true}
		case cacheline.SM:
			return SnoopResult{NextState: cacheline.SM, Flush: true}
		case cacheline.E:
			return SnoopResult{NextState: cacheline.SC}
		case cacheline.SC:
			return SnoopResult{NextState: cacheline.SC}
		default:
			return SnoopResult{NextState: peerState}
		}
	case BusUpdate:
		// Whoever broadcast the update is the sole writer now; any
		// other peer holding SM relinquishes that role.
		switch peerState {
		case cacheline.SM:
			return SnoopResult{NextState: cacheline.SC}
		default:
			return SnoopResult{NextState: peerState}
		}
	default:
		return SnoopResult{NextState: peerState}
	}
}
