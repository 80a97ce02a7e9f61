// Command cachesim runs a cycle-accurate cache-coherence simulation
// over a set of per-processor instruction traces and prints a
// statistics report.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/go-cachesim/internal/config"
	"github.com/joeycumines/go-cachesim/internal/obs"
	"github.com/joeycumines/go-cachesim/internal/sim"
	"github.com/joeycumines/go-cachesim/internal/trace"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	exitConfigError    = 1
	exitInputError     = 2
	exitInvariantError = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (code int) {
	var (
		logLevel    string
		traceCycles bool
	)

	cmd := &cobra.Command{
		Use:   "cachesim protocol fileBase cacheSize associativity blockSize",
		Short: "simulate a snooping-coherent multiprocessor cache hierarchy",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				level = zerolog.InfoLevel
			}
			if traceCycles {
				level = zerolog.DebugLevel
			}
			log := obs.New(level, os.Stderr)

			cfg, err := config.Parse(args[0], args[1], args[2], args[3], args[4])
			if err != nil {
				log.Error().Err(err).Msg("invalid configuration")
				code = exitConfigError
				return nil
			}

			traces, err := loadTraces(cfg.FileBase)
			if err != nil {
				log.Error().Err(err).Msg("failed to load trace files")
				code = exitInputError
				return nil
			}

			code = runSimulation(cfg, traces, log, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&traceCycles, "trace-cycles", false, "emit one debug log line per processor per scheduler cycle")
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	return code
}

// runSimulation recovers a sim.InvariantViolation panic — a fatal bug
// in the coherence machinery rather than a normal error path — logging
// full context before reporting a non-zero exit.
func runSimulation(cfg config.Config, traces [][]trace.Entry, log zerolog.Logger, stdout io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(sim.InvariantViolation); ok {
				log.Error().Str("invariant", iv.Invariant).Msg(iv.Error())
				code = exitInvariantError
				return
			}
			panic(r)
		}
	}()

	log.Info().
		Str("protocol", cfg.Protocol.Name()).
		Int("cache_size", cfg.Geometry.Size).
		Int("associativity", cfg.Geometry.Associativity).
		Int("block_size", cfg.Geometry.BlockSize).
		Msg("starting simulation")

	s, err := sim.New(cfg.Protocol, cfg.Geometry, traces, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build simulation")
		return exitConfigError
	}
	report := s.Run()
	report.WriteTo(stdout)
	log.Info().Uint64("total_cycles", report.TotalCycles).Msg("simulation complete")
	return 0
}

func loadTraces(fileBase string) ([][]trace.Entry, error) {
	const processorCount = 4
	traces := make([][]trace.Entry, processorCount)
	for i := 0; i < processorCount; i++ {
		name := trace.FileName(fileBase, i)
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("trace: opening %s: %w", name, err)
		}
		entries, err := trace.Parse(name, f)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, fmt.Errorf("trace: closing %s: %w", name, closeErr)
		}
		traces[i] = entries
	}
	return traces, nil
}
