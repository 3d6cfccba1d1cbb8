package statuscache

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long an entry is served before it counts as a miss.
// A TTL <= 0 disables caching entirely.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithMaxSize bounds the number of cached members.
// If maxSize > 0 the oldest insertion is evicted first.
// If maxSize <= 0 the cache is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *Cache) {
		c.maxSize = maxSize
	}
}

// WithClock swaps the time source. Tests pass a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}
