package migration

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/pkg/logger"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for the live season and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(co *Coordinator) {
		if l != nil {
			co.log = l
		}
	}
}

// WithIDGenerator replaces the batch and snapshot id generator.
func WithIDGenerator(fn func() string) Option {
	return func(co *Coordinator) {
		if fn != nil {
			co.newID = fn
		}
	}
}

func defaultID() string { return uuid.NewString() }
