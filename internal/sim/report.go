package sim

import (
	"fmt"
	"io"
	"strings"
)

// ProcessorStats is one processor's row in the final report.
type ProcessorStats struct {
	ID              int
	ComputeCycles   uint64
	IdleCycles      uint64
	Loads           uint64
	Stores          uint64
	Misses          uint64
	PrivateAccesses uint64
	PublicAccesses  uint64
}

// Instructions is the total load/store instruction count.
func (p ProcessorStats) Instructions() uint64 { return p.Loads + p.Stores }

// MissRate is misses / (loads + stores), as a fraction in [0, 1]. It
// is 0 when the processor issued no memory instructions at all.
func (p ProcessorStats) MissRate() float64 {
	total := p.Instructions()
	if total == 0 {
		return 0
	}
	return float64(p.Misses) / float64(total)
}

// Report is the complete statistics output of a simulation run.
type Report struct {
	Protocol        string
	TotalCycles     uint64
	Processors      []ProcessorStats
	BusTrafficBytes uint64
	PrivateAccesses uint64
	PublicAccesses  uint64
}

// WriteTo renders the report as the fixed-field text format described
// in the design notes: total cycles, one line per processor with
// (id, compute cycles, load/store instructions, idle cycles, cache
// miss rate), then bus traffic and the private/public access totals.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Protocol: %s\n", r.Protocol)
	fmt.Fprintf(&sb, "Total Cycles: %d\n", r.TotalCycles)
	for _, p := range r.Processors {
		fmt.Fprintf(&sb, "Processor %d: Compute Cycles: %d, Load/Store Instructions: %d, Idle Cycles: %d, Cache Miss Rate: %.1f.\n",
			p.ID, p.ComputeCycles, p.Instructions(), p.IdleCycles, p.MissRate())
	}
	fmt.Fprintf(&sb, "Bus Traffic (Bytes): %d\n", r.BusTrafficBytes)
	fmt.Fprintf(&sb, "Private Data Accesses: %d\n", r.PrivateAccesses)
	fmt.Fprintf(&sb, "Public Data Accesses: %d\n", r.PublicAccesses)
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// String renders the same content as WriteTo, for logging/quick
// inspection.
func (r Report) String() string {
	var sb strings.Builder
	_, _ = r.WriteTo(&sb)
	return sb.String()
}
