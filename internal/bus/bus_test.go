package bus

import (
	"testing"

	"github.com/joeycumines/go-cachesim/internal/addr"
	"github.com/joeycumines/go-cachesim/internal/cache"
	"github.com/joeycumines/go-cachesim/internal/cacheline"
	"github.com/joeycumines/go-cachesim/internal/memory"
	"github.com/joeycumines/go-cachesim/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 64

func newCaches(t *testing.T, n int) []*cache.Cache {
	t.Helper()
	caches := make([]*cache.Cache, n)
	for i := range caches {
		c, err := cache.New(addr.Geometry{Size: 1024, Associativity: 2, BlockSize: testBlockSize})
		require.NoError(t, err)
		caches[i] = c
	}
	return caches
}

func runToCompletion(t *testing.T, b *Bus, proc int, maxCycles int) {
	t.Helper()
	for i := 0; i < maxCycles; i++ {
		b.Pump()
		if b.IsComplete(proc) {
			return
		}
		b.Elapse()
	}
	t.Fatalf("bus transaction for processor %d did not complete within %d cycles", proc, maxCycles)
}

func TestBus_coldMissFetchesFromMemory(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.MESI{}, caches, mem, testBlockSize)

	b.Submit(0, protocol.LoadEvent, 0x40, cacheline.I, true)
	runToCompletion(t, b, 0, memory.Latency+1)

	assert.Equal(t, protocol.Private, b.Access(0))
	assert.True(t, b.WasMiss(0))
	assert.EqualValues(t, testBlockSize, b.TrafficBytes())

	st, ok := caches[0].BusGetBlockState(0x40)
	require.True(t, ok)
	assert.Equal(t, cacheline.E, st)
}

func TestBus_secondReaderSharesAndDemotesOwner(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.MESI{}, caches, mem, testBlockSize)

	caches[0].BusAllocate(0x40, cacheline.E)

	b.Submit(1, protocol.LoadEvent, 0x40, cacheline.I, true)
	runToCompletion(t, b, 1, testBlockSize)
	assert.Equal(t, protocol.Public, b.Access(1))
	b.Release(1)

	st0, _ := caches[0].BusGetBlockState(0x40)
	st1, _ := caches[1].BusGetBlockState(0x40)
	assert.Equal(t, cacheline.S, st0)
	assert.Equal(t, cacheline.S, st1)
}

func TestBus_storeToSharedInvalidatesPeersAndUpgradesToM(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.MESI{}, caches, mem, testBlockSize)

	caches[0].BusAllocate(0x40, cacheline.S)
	caches[1].BusAllocate(0x40, cacheline.S)

	b.Submit(0, protocol.StoreEvent, 0x40, cacheline.S, false)
	runToCompletion(t, b, 0, 4)

	assert.EqualValues(t, 0, b.TrafficBytes(), "BusUpgrade moves no data")
	st0, _ := caches[0].BusGetBlockState(0x40)
	assert.Equal(t, cacheline.M, st0)
	_, ok1 := caches[1].BusGetBlockState(0x40)
	assert.False(t, ok1, "peer must invalidate")
}

func TestBus_busRdXHittingModifiedPeerCountsFlushAndFill(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.MESI{}, caches, mem, testBlockSize)

	caches[1].BusAllocate(0x40, cacheline.M)

	b.Submit(0, protocol.StoreEvent, 0x40, cacheline.I, true)
	runToCompletion(t, b, 0, memory.Latency+1)

	assert.EqualValues(t, 2*testBlockSize, b.TrafficBytes())
	st0, _ := caches[0].BusGetBlockState(0x40)
	assert.Equal(t, cacheline.M, st0)
	_, ok1 := caches[1].BusGetBlockState(0x40)
	assert.False(t, ok1)
}

func TestBus_dragonStoreUpdateBroadcastsWord(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.Dragon{}, caches, mem, testBlockSize)

	caches[0].BusAllocate(0x40, cacheline.SC)
	caches[1].BusAllocate(0x40, cacheline.SM) // stale: only one SM owner should survive

	b.Submit(0, protocol.StoreEvent, 0x40, cacheline.SC, false)
	runToCompletion(t, b, 0, 4)

	assert.EqualValues(t, wordSize, b.TrafficBytes())
	st0, _ := caches[0].BusGetBlockState(0x40)
	st1, _ := caches[1].BusGetBlockState(0x40)
	assert.Equal(t, cacheline.SM, st0)
	assert.Equal(t, cacheline.SC, st1, "prior owner demoted on seeing someone else's update")
}

func TestBus_queuesSecondRequestUntilFirstCompletes(t *testing.T) {
	caches := newCaches(t, 4)
	mem := memory.New()
	b := New(protocol.MESI{}, caches, mem, testBlockSize)

	b.Submit(0, protocol.LoadEvent, 0x40, cacheline.I, true)
	b.Submit(1, protocol.LoadEvent, 0x80, cacheline.I, true)

	b.Pump()
	assert.True(t, b.IsBusy())
	assert.False(t, b.IsComplete(1), "second request must wait behind the first")
}
