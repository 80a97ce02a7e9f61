package protocol

import "github.com/joeycumines/go-cachesim/internal/cacheline"

// MESI is the invalidate-based protocol: Modified, Exclusive, Shared,
// Invalid.
type MESI struct{}

var _ Protocol = MESI{}

func (MESI) Name() string { return "MESI" }

func (MESI) RequiresBus(event Event, state cacheline.State) bool {
	if state == cacheline.I {
		return true
	}
	if event == StoreEvent {
		return state == cacheline.S
	}
	return false
}

func (MESI) OnLoad(current cacheline.State, peerPresent bool) LocalResult {
	if current != cacheline.I {
		return LocalResult{NextState: current, Txn: NoTxn}
	}
	if peerPresent {
		return LocalResult{NextState: cacheline.S, Txn: BusRd, Access: Public}
	}
	return LocalResult{NextState: cacheline.E, Txn: BusRd, Access: Private}
}

func (MESI) OnStore(current cacheline.State, peerPresent bool) LocalResult {
	switch current {
	case cacheline.I:
		return LocalResult{NextState: cacheline.M, Txn: BusRdX, Access: accessOf(peerPresent)}
	case cacheline.S:
		return LocalResult{NextState: cacheline.M, Txn: BusUpgrade, Access: accessOf(peerPresent)}
	default: // E, M
		return LocalResult{NextState: cacheline.M, Txn: NoTxn, Access: Private}
	}
}

func (MESI) OnSnoop(peerState cacheline.State, txn BusTxn) SnoopResult {
	switch txn {
	case BusRd:
		switch peerState {
		case cacheline.M:
			return SnoopResult{NextState: cacheline.S, Flush: true}
		case cacheline.E, cacheline.S:
			return SnoopResult{NextState: cacheline.S}
		default:
			return SnoopResult{NextState: peerState}
		}
	case BusRdX, BusUpgrade:
		return SnoopResult{NextState: cacheline.I, Flush: peerState == cacheline.M}
	default:
		return SnoopResult{NextState: peerState}
	}
}
