// Package sim assembles caches, a bus, memory, and processors into a
// runnable simulation and reduces the run into a SimulationStatistics
// report.
package sim

import (
	"github.com/joeycumines/go-cachesim/internal/addr"
	"github.com/joeycumines/go-cachesim/internal/bus"
	"github.com/joeycumines/go-cachesim/internal/cache"
	"github.com/joeycumines/go-cachesim/internal/memory"
	"github.com/joeycumines/go-cachesim/internal/processor"
	"github.com/joeycumines/go-cachesim/internal/protocol"
	"github.com/joeycumines/go-cachesim/internal/trace"
	"github.com/rs/zerolog"
)

// Scheduler drives the deterministic, single-threaded, fixed-priority
// round robin described in the design notes: every processor steps in
// id order, then every timing entity (caches, bus, memory) elapses by
// one cycle.
type Scheduler struct {
	protocol   protocol.Protocol
	caches     []*cache.Cache
	bus        *bus.Bus
	memory     *memory.Memory
	processors []*processor.Processor
	cycles     uint64
	log        zerolog.Logger
}

// New builds a Scheduler. traces[i] is processor i's instruction
// stream; all processors share geometry and protocol.
func New(p protocol.Protocol, geometry addr.Geometry, traces [][]trace.Entry, log zerolog.Logger) (*Scheduler, error) {
	caches := make([]*cache.Cache, len(traces))
	for i := range caches {
		c, err := cache.New(geometry)
		if err != nil {
			return nil, err
		}
		caches[i] = c
	}
	mem := memory.New()
	b := bus.New(p, caches, mem, geometry.BlockSize)
	procs := make([]*processor.Processor, len(traces))
	for i, entries := range traces {
		procs[i] = processor.New(i, p, caches[i], b, entries)
	}
	return &Scheduler{protocol: p, caches: caches, bus: b, memory: mem, processors: procs, log: log}, nil
}

// Run advances the simulation to completion and returns the final
// report. It is not safe to call more than once.
func (s *Scheduler) Run() Report {
	for !s.done() {
		for _, p := range s.processors {
			p.Step()
		}
		s.bus.Pump()
		for _, c := range s.caches {
			c.Elapse()
		}
		s.bus.Elapse()
		s.memory.Elapse()
		s.cycles++
		checkSingleModifiedOwner(s.caches)
		for _, p := range s.processors {
			s.log.Debug().
				Uint64("cycle", s.cycles).
				Int("processor", p.ID()).
				Str("status", p.Status().String()).
				Msg("tick")
		}
	}
	return s.report()
}

func (s *Scheduler) done() bool {
	if s.bus.IsBusy() || s.memory.IsBusy() {
		return false
	}
	for _, p := range s.processors {
		if !p.Done() {
			return false
		}
	}
	return true
}

func (s *Scheduler) report() Report {
	procs := make([]ProcessorStats, len(s.processors))
	for i, p := range s.processors {
		st := p.Stats
		procs[i] = ProcessorStats{
			ID:              p.ID(),
			ComputeCycles:   st.ComputeCycles,
			IdleCycles:      st.IdleCycles,
			Loads:           st.Loads,
			Stores:          st.Stores,
			Misses:          st.Misses,
			PrivateAccesses: st.PrivateAccesses,
			PublicAccesses:  st.PublicAccesses,
		}
	}
	return Report{
		Protocol:        s.protocol.Name(),
		TotalCycles:     s.cycles,
		Processors:      procs,
		BusTrafficBytes: s.bus.TrafficBytes(),
		PrivateAccesses: s.bus.PrivateAccesses(),
		PublicAccesses:  s.bus.PublicAccesses(),
	}
}
