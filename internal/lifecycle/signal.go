// Package lifecycle coordinates startup and graceful shutdown of the
// long-running services sharing one process.
package lifecycle

import "context"

// Signal is a broadcast one-shot shutdown notification. Any number of
// subscribers may watch Done; Broadcast may be called any number of times
// and only the first firing has an effect.
type Signal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignal creates an unfired shutdown signal.
func NewSignal() *Signal {
	ctx, cancel := context.WithCancel(context.Background())
	return &Signal{ctx: ctx, cancel: cancel}
}

// Broadcast fires the signal. Safe to call repeatedly.
func (s *Signal) Broadcast() {
	s.cancel()
}

// Done returns a channel closed once the signal has fired.
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Fired reports whether the signal has been broadcast.
func (s *Signal) Fired() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}
