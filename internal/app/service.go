// Package service wires the league's discipline and season-lifecycle
// components behind one facade used by the HTTP API and the jobs in cmd.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/adapters/mq/queue"
	"github.com/okian/sideline/internal/adapters/mq/worker"
	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/cards"
	"github.com/okian/sideline/internal/domain/checkin"
	"github.com/okian/sideline/internal/domain/migration"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/domain/statuscache"
	"github.com/okian/sideline/internal/domain/suspension"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize = 1024
	defaultCacheTTL  = 30 * time.Second
	inboxSize        = 200
)

// Service implements the API dependencies for the league.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	cal      *season.Calendar
	cards    *cards.Aggregator
	cache    *statuscache.Cache
	engine   *suspension.Engine
	closer   *migration.Coordinator
	gate     *checkin.Gate
	inbox    *checkin.Inbox
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	clock    clockwork.Clock
	ownStore bool

	// Configuration
	loc             *time.Location
	cacheTTL        time.Duration
	workerCount     int
	queueSize       int
	yellowThreshold int
	minEvents       int
	maxEvents       int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence. Without it the service uses an in-memory
// store it owns and closes on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the clock that decides the live season.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the league timezone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCacheTTL sets the suspension status cache TTL. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithWorkerCount sets the number of attendance check workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the attendance check queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithYellowThreshold sets how many season yellows make a suspension trigger.
func WithYellowThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.yellowThreshold = n
		}
	}
}

// WithSuspensionBounds sets the accepted suspension length range.
func WithSuspensionBounds(minEvents, maxEvents int) Option {
	return func(s *Service) {
		if minEvents > 0 && maxEvents >= minEvents {
			s.minEvents, s.maxEvents = minEvents, maxEvents
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Domain operations work immediately; Start runs
// the attendance check workers.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           clockwork.NewRealClock(),
		loc:             time.UTC,
		cacheTTL:        defaultCacheTTL,
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		yellowThreshold: suspension.DefaultYellowThreshold,
		minEvents:       suspension.DefaultMinEvents,
		maxEvents:       suspension.DefaultMaxEvents,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("store")))
		s.ownStore = true
	}

	s.cal = season.NewCalendar(s.loc)
	s.cards = cards.New(s.cal, cards.WithLogger(s.logger.Named("cards")))
	s.cache = statuscache.New(statuscache.WithTTL(s.cacheTTL), statuscache.WithClock(s.clock))
	s.engine = suspension.New(s.store,
		suspension.WithCache(s.cache),
		suspension.WithClock(s.clock),
		suspension.WithLogger(s.logger.Named("suspension")),
		suspension.WithYellowThreshold(s.yellowThreshold),
		suspension.WithBounds(s.minEvents, s.maxEvents),
	)
	s.closer = migration.New(s.store, s.cal, s.cards,
		migration.WithClock(s.clock),
		migration.WithLogger(s.logger.Named("season-close")),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.inbox = checkin.NewInbox(inboxSize)
	s.gate = checkin.New(s.store, s.engine,
		checkin.WithQueue(s.queue),
		checkin.WithNotifier(s.inbox),
		checkin.WithClock(s.clock),
		checkin.WithLogger(s.logger.Named("checkin")),
	)
	return s
}

// Start runs the attendance check workers. They keep running after ctx is
// cancelled until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting league service...")

	// Workers outlive ctx: Stop drains queued checks before they exit, so
	// every tentative toggle is resolved.
	s.pool = worker.NewPool(s.workerCount, s.queue, s.gate, worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "league service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("timezone", s.loc.String()),
		logger.String("season", s.cal.Current(s.clock.Now()).Label()),
	)
	return nil
}

// Stop drains the attendance queue and stops the workers. An owned store
// is closed.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping league service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if s.ownStore {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "league service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"season":        s.cal.Current(s.clock.Now()).Label(),
		"timezone":      s.loc.String(),
		"statusCache":   s.cache.Size(),
		"notifications": len(s.inbox.List()),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	return stats
}

// RefreshMetrics updates the gauges that are not maintained on the hot path.
func (s *Service) RefreshMetrics(ctx context.Context) {
	if active, err := s.store.ListActive(ctx, ""); err == nil {
		metrics.UpdateActiveSuspensions(len(active))
	} else {
		s.logger.Warn(ctx, "metrics refresh: list active suspensions", logger.Error(err))
	}
	if events, err := s.store.ListEvents(ctx); err == nil {
		metrics.UpdateRepositoryEvents(len(events))
	}
	metrics.UpdateQueueSize(s.queue.Len(ctx))

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// SweepCache drops expired suspension status entries.
func (s *Service) SweepCache(ctx context.Context) int {
	return s.cache.Sweep(ctx)
}

func unix(epoch int64) time.Time { return time.Unix(epoch, 0) }
