package repository

import (
	"time"

	"github.com/okian/sideline/pkg/logger"
)

type options struct {
	log         logger.Logger
	busyTimeout time.Duration
	maxConns    int
}

func defaultOptions() options {
	return options{
		log:         logger.Nop(),
		busyTimeout: 5 * time.Second,
		maxConns:    1,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithMaxOpenConns caps the SQLite connection pool. An in-memory database
// is always limited to one connection.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}
