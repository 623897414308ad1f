package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Service is a long-running task owned by the orchestrator. Run blocks
// until the service exits; Stop asks it to stop accepting new work and
// finish what is in flight.
type Service interface {
	Name() string
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// State is the orchestrator's lifecycle phase.
type State int32

const (
	Starting State = iota
	Running
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Orchestrator runs its services concurrently and stops them together. Any
// service exiting with an error, or the provided context being cancelled
// (OS interrupt), broadcasts the shared shutdown signal; every service
// observes it and winds down within the grace period.
type Orchestrator struct {
	signal   *Signal
	services []Service
	grace    time.Duration
	log      zerolog.Logger

	state atomic.Int32

	mu       sync.Mutex
	fatalErr error
}

// NewOrchestrator wires services to one shutdown signal.
func NewOrchestrator(signal *Signal, grace time.Duration, log zerolog.Logger, services ...Service) *Orchestrator {
	return &Orchestrator{
		signal:   signal,
		services: services,
		grace:    grace,
		log:      log.With().Str("component", "lifecycle").Logger(),
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Run starts every service, waits for the shutdown signal, stops the
// services, and waits for all run loops to return. It returns the first
// fatal service error, or nil on a clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.state.Store(int32(Starting))

	// Services run against the signal's context so that a broadcast from
	// any subscriber cancels all of them, not just an OS interrupt.
	runCtx := o.signal.ctx

	var wg sync.WaitGroup
	for _, svc := range o.services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			o.log.Info().Str("service", svc.Name()).Msg("Service starting")
			if err := svc.Run(runCtx); err != nil {
				o.log.Error().Err(err).Str("service", svc.Name()).Msg("Service failed")
				o.recordFatal(err)
				o.signal.Broadcast()
				return
			}
			o.log.Info().Str("service", svc.Name()).Msg("Service exited")
		}(svc)
	}

	o.state.Store(int32(Running))

	// External interrupt is just another broadcaster.
	select {
	case <-ctx.Done():
		o.log.Info().Msg("Interrupt received")
		o.signal.Broadcast()
	case <-o.signal.Done():
	}

	o.state.Store(int32(ShuttingDown))
	o.log.Info().Dur("grace_period", o.grace).Msg("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), o.grace)
	defer cancel()

	var stopWg sync.WaitGroup
	for _, svc := range o.services {
		stopWg.Add(1)
		go func(svc Service) {
			defer stopWg.Done()
			if err := svc.Stop(stopCtx); err != nil {
				o.log.Error().Err(err).Str("service", svc.Name()).Msg("Service stop failed")
			}
		}(svc)
	}
	stopWg.Wait()
	wg.Wait()

	o.state.Store(int32(Stopped))
	o.log.Info().Msg("All services stopped")

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fatalErr
}

func (o *Orchestrator) recordFatal(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fatalErr == nil {
		o.fatalErr = err
	}
}
