package multicopter

import (
	"context"
	"fmt"
	"runtime"

	kitlog "github.com/go-kit/kit/log"
	"golang.org/x/sync/errgroup"
)

// Controller computes the next commands of a vehicle from its state.
type Controller func(id int, s State, dt float64) []float64

// Fleet steps independent vehicles concurrently. Each vehicle is only ever
// touched by one goroutine at a time.
type Fleet struct {
	names    []string
	vehicles []Vehicle
	workers  int
	logger   kitlog.Logger
}

// NewFleet returns an empty fleet stepping at most runtime.NumCPU() vehicles at once.
func NewFleet(logger kitlog.Logger) *Fleet {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Fleet{workers: runtime.NumCPU(), logger: logger}
}

// SetWorkers limits the number of vehicles stepped concurrently. A non-positive
// value removes the limit.
func (f *Fleet) SetWorkers(n int) {
	f.workers = n
}

// Add appends a vehicle and returns its identifier.
func (f *Fleet) Add(name string, v Vehicle) int {
	f.names = append(f.names, name)
	f.vehicles = append(f.vehicles, v)
	return len(f.vehicles) - 1
}

// Len returns the number of vehicles.
func (f *Fleet) Len() int {
	return len(f.vehicles)
}

// Vehicle returns the vehicle with the provided identifier.
func (f *Fleet) Vehicle(id int) Vehicle {
	return f.vehicles[id]
}

// States returns the state of every vehicle, ordered by identifier.
func (f *Fleet) States() []State {
	states := make([]State, len(f.vehicles))
	for i, v := range f.vehicles {
		states[i] = v.State()
	}
	return states
}

// Step advances every vehicle by dt. If a controller is provided, each vehicle
// receives its commands right before its own step. ctrl is called from
// several goroutines at once.
func (f *Fleet) Step(ctx context.Context, dt float64, ctrl Controller) error {
	g, ctx := errgroup.WithContext(ctx)
	if f.workers > 0 {
		g.SetLimit(f.workers)
	}
	for i, v := range f.vehicles {
		i, v := i, v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if ctrl != nil {
				if err := v.SetMotorCommands(ctrl(i, v.State(), dt)); err != nil {
					return fmt.Errorf("vehicle %s: %w", f.names[i], err)
				}
			}
			if err := v.Step(dt); err != nil {
				return fmt.Errorf("vehicle %s: %w", f.names[i], err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run performs n steps of dt, checking for cancellation between steps.
// It stops on the first error.
func (f *Fleet) Run(ctx context.Context, dt float64, n int, ctrl Controller) error {
	f.logger.Log("level", "info", "subsys", "fleet", "vehicles", len(f.vehicles), "steps", n, "dt(s)", dt)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			f.logger.Log("level", "warning", "subsys", "fleet", "status", "cancelled", "step", k)
			return err
		}
		if err := f.Step(ctx, dt, ctrl); err != nil {
			f.logger.Log("level", "critical", "subsys", "fleet", "step", k, "err", err)
			return err
		}
	}
	f.logger.Log("level", "notice", "subsys", "fleet", "status", "finished", "steps", n)
	return nil
}
