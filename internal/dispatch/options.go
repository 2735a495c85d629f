package dispatch

import (
	"time"

	"github.com/arbiterhq/arbiter/internal/event"
	"github.com/arbiterhq/arbiter/internal/logging"
)

const (
	// defaultMaxParallel is the default execution-slot count.
	defaultMaxParallel = 4

	// defaultPollInterval is the fallback re-check interval for blocked
	// admission loops. The release broadcast normally wakes them first;
	// the ticker only backstops it.
	defaultPollInterval = time.Second
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxParallel sets the hard cap on concurrently executing payloads.
// Values below 1 fall back to the default.
func WithMaxParallel(n int) Option {
	return func(d *Dispatcher) {
		if n >= 1 {
			d.maxParallel = n
		}
	}
}

// WithPollInterval sets the fallback re-check interval for blocked tasks.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithBus sets the event bus for task lifecycle events.
func WithBus(bus *event.Bus) Option {
	return func(d *Dispatcher) { d.bus = bus }
}

// WithLogger sets the structured logger. Defaults to a nop logger.
func WithLogger(log *logging.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}
