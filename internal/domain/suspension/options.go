package suspension

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/domain/statuscache"
	"github.com/okian/sideline/pkg/logger"
)

// Default policy values.
const (
	DefaultYellowThreshold = 3
	DefaultMinEvents       = 1
	DefaultMaxEvents       = 10
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCache sets the status cache. Without one every Status call reads the store.
func WithCache(c *statuscache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithClock sets the clock used for CreatedAt and ServedAt.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithYellowThreshold sets how many season yellows make one trigger.
func WithYellowThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.yellowThreshold = n
		}
	}
}

// WithBounds sets the accepted suspension length range, inclusive.
func WithBounds(minEvents, maxEvents int) Option {
	return func(e *Engine) {
		if minEvents > 0 && maxEvents >= minEvents {
			e.minEvents, e.maxEvents = minEvents, maxEvents
		}
	}
}

// WithIDGenerator replaces the uuid generator, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func defaultID() string { return uuid.NewString() }
