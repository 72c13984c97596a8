package cmd

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gridkit/driverpool/caps"
	"github.com/gridkit/driverpool/config"
	"github.com/gridkit/driverpool/phase"
	"github.com/gridkit/driverpool/pool"
)

var (
	simWorkers  int
	simSessions int
	simFailRate float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Smoke-test pool settings against a stub factory",
	Long: `Runs concurrent workers against the pool with a stub session
factory, exercising creation, retry, and bulk teardown under the
effective configuration. Useful for validating retry and capacity
settings without a real driver backend.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVar(&simWorkers, "workers", 4, "number of concurrent workers")
	simulateCmd.Flags().IntVar(&simSessions, "sessions", 2, "sessions created per worker")
	simulateCmd.Flags().Float64Var(&simFailRate, "fail-rate", 0, "probability a creation attempt fails transiently (0..1)")
}

// stubHandle is a fake session handle used by the simulator.
type stubHandle struct {
	id string
}

func (h *stubHandle) SessionID() string { return h.id }
func (h *stubHandle) Close() error      { return nil }
func (h *stubHandle) Quit() error       { return nil }

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	factory := pool.FactoryFunc(func(name string, c caps.Capabilities, endpoint string) (pool.Handle, caps.Capabilities, error) {
		if simFailRate > 0 && rand.Float64() < simFailRate {
			return nil, nil, fmt.Errorf("simulated transient init failure for %q", name)
		}
		return &stubHandle{id: uuid.NewString()}, c.Clone(), nil
	})

	p := pool.New(factory, cfg)
	defer p.Close()

	start := time.Now()
	var wg sync.WaitGroup
	errCh := make(chan error, simWorkers*simSessions)

	for i := 0; i < simWorkers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := p.Worker(fmt.Sprintf("sim-worker-%d", n))
			for j := 0; j < simSessions; j++ {
				name := fmt.Sprintf("session-%d", j)
				if _, err := w.Get(name); err != nil {
					errCh <- fmt.Errorf("worker %d: %w", n, err)
					return
				}
			}
			w.QuitByPhases(phase.Method)
		}(i)
	}

	wg.Wait()
	close(errCh)

	failed := 0
	for err := range errCh {
		failed++
		fmt.Printf("  %v\n", err)
	}

	fmt.Printf("simulated %d workers x %d sessions in %s (%d failed)\n",
		simWorkers, simSessions, time.Since(start).Round(time.Millisecond), failed)
	fmt.Printf("sessions remaining in registry: %d\n", len(p.Sessions()))
	return nil
}
