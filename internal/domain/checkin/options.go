package checkin

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/pkg/logger"
)

const defaultMaxTransitions = 1000

// Option configures a Gate.
type Option func(*Gate)

// WithQueue makes Toggle validate in the background through q. Without a
// queue, toggles are validated before Toggle returns.
func WithQueue(q Enqueuer) Option {
	return func(g *Gate) { g.queue = q }
}

// WithNotifier sets who is told about reverted toggles.
func WithNotifier(n Notifier) Option {
	return func(g *Gate) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithClock sets the clock used for transition timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithIDGenerator replaces the transition id generator.
func WithIDGenerator(fn func() string) Option {
	return func(g *Gate) {
		if fn != nil {
			g.newID = fn
		}
	}
}

// WithMaxTransitions bounds how many resolved transitions are kept for lookup.
func WithMaxTransitions(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.maxTransitions = n
		}
	}
}

func defaultID() string { return uuid.NewString() }
