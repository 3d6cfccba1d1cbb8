// Package suspension derives suspension triggers from card records and
// manages the lifecycle of the suspensions an admin assigns for them.
package suspension

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/statuscache"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Store is the persistence the engine needs.
type Store interface {
	ListActive(ctx context.Context, memberID string) ([]model.Suspension, error)
	Get(ctx context.Context, id string) (model.Suspension, error)
	Create(ctx context.Context, s model.Suspension) error
	Update(ctx context.Context, s model.Suspension) error
}

// Engine applies and serves suspensions. Writes are serialized so the
// one-active-per-source check and the insert cannot interleave.
type Engine struct {
	store           Store
	cache           *statuscache.Cache
	clock           clockwork.Clock
	log             logger.Logger
	yellowThreshold int
	minEvents       int
	maxEvents       int
	newID           func() string

	mu sync.Mutex
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		clock:           clockwork.NewRealClock(),
		log:             logger.Nop(),
		yellowThreshold: DefaultYellowThreshold,
		minEvents:       DefaultMinEvents,
		maxEvents:       DefaultMaxEvents,
		newID:           defaultID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bounds returns the accepted suspension length range.
func (e *Engine) Bounds() (minEvents, maxEvents int) { return e.minEvents, e.maxEvents }

// Apply creates an active suspension of events match days for memberID.
func (e *Engine) Apply(ctx context.Context, memberID string, trigger model.Trigger, events int) (model.Suspension, error) {
	memberID = strings.TrimSpace(memberID)
	switch {
	case memberID == "":
		return model.Suspension{}, invalid("memberId", "is required")
	case !trigger.Kind.Valid():
		return model.Suspension{}, invalid("trigger.kind", "unknown kind %q", trigger.Kind)
	case strings.TrimSpace(trigger.Source) == "":
		return model.Suspension{}, invalid("trigger.source", "is required")
	case trigger.MemberID != "" && trigger.MemberID != memberID:
		return model.Suspension{}, invalid("trigger.memberId", "trigger belongs to %s", trigger.MemberID)
	case events < e.minEvents || events > e.maxEvents:
		return model.Suspension{}, invalid("suspensionEvents", "must be between %d and %d, got %d", e.minEvents, e.maxEvents, events)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	active, err := e.store.ListActive(ctx, memberID)
	if err != nil {
		return model.Suspension{}, fmt.Errorf("list active suspensions: %w", err)
	}
	for _, s := range active {
		if s.Source == trigger.Source {
			return model.Suspension{}, fmt.Errorf("%w: %s (%s)", ErrAlreadySuspended, memberID, trigger.Source)
		}
	}

	s := model.Suspension{
		ID:               e.newID(),
		MemberID:         memberID,
		PlayerName:       trigger.PlayerName,
		Trigger:          trigger.Kind,
		Source:           trigger.Source,
		SuspensionEvents: events,
		EventsRemaining:  events,
		Status:           model.SuspensionActive,
		CreatedAt:        e.clock.Now().UTC(),
	}
	if err := e.store.Create(ctx, s); err != nil {
		return model.Suspension{}, fmt.Errorf("create suspension: %w", err)
	}
	e.invalidate(ctx, memberID)
	metrics.RecordSuspensionApplied(string(trigger.Kind))
	e.log.Info(ctx, "suspension applied",
		logger.String("suspensionId", s.ID),
		logger.String("memberId", memberID),
		logger.String("source", s.Source),
		logger.Int("events", events),
	)
	return s, nil
}

// MarkServed ends a suspension early. Serving a served suspension is a no-op.
func (e *Engine) MarkServed(ctx context.Context, id string) (model.Suspension, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Suspension{}, fmt.Errorf("get suspension: %w", err)
	}
	if s.Status == model.SuspensionServed {
		return s, nil
	}
	return e.serveLocked(ctx, s)
}

// ServeEvent counts one served match day. Reaching zero serves the suspension.
func (e *Engine) ServeEvent(ctx context.Context, id string) (model.Suspension, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Suspension{}, fmt.Errorf("get suspension: %w", err)
	}
	if s.Status == model.SuspensionServed {
		return s, nil
	}
	if s.EventsRemaining > 0 {
		s.EventsRemaining--
	}
	if s.EventsRemaining == 0 {
		return e.serveLocked(ctx, s)
	}
	if err := e.store.Update(ctx, s); err != nil {
		return model.Suspension{}, fmt.Errorf("update suspension: %w", err)
	}
	e.invalidate(ctx, s.MemberID)
	e.log.Debug(ctx, "suspension event served",
		logger.String("suspensionId", s.ID),
		logger.Int("remaining", s.EventsRemaining),
	)
	return s, nil
}

// must be called with e.mu held
func (e *Engine) serveLocked(ctx context.Context, s model.Suspension) (model.Suspension, error) {
	now := e.clock.Now().UTC()
	s.Status = model.SuspensionServed
	s.EventsRemaining = 0
	s.ServedAt = &now
	if err := e.store.Update(ctx, s); err != nil {
		return model.Suspension{}, fmt.Errorf("update suspension: %w", err)
	}
	e.invalidate(ctx, s.MemberID)
	metrics.RecordSuspensionServed()
	e.log.Info(ctx, "suspension served",
		logger.String("suspensionId", s.ID),
		logger.String("memberId", s.MemberID),
	)
	return s, nil
}

func (e *Engine) invalidate(ctx context.Context, memberID string) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, memberID)
	}
}

func (e *Engine) generation() uint64 {
	if e.cache == nil {
		return 0
	}
	return e.cache.Generation()
}

// remember caches st unless a write invalidated the member after gen was
// taken, in which case st may predate that write.
func (e *Engine) remember(ctx context.Context, gen uint64, st model.SuspensionStatus) {
	if e.cache != nil {
		e.cache.PutIfCurrent(ctx, gen, st)
	}
}

// Status returns the member's aggregated suspension status, from the cache
// when fresh.
func (e *Engine) Status(ctx context.Context, memberID string) (model.SuspensionStatus, error) {
	if e.cache != nil {
		if st, ok := e.cache.Get(ctx, memberID); ok {
			return st, nil
		}
	}
	gen := e.generation()
	active, err := e.store.ListActive(ctx, memberID)
	if err != nil {
		return model.SuspensionStatus{}, fmt.Errorf("list active suspensions: %w", err)
	}
	st := model.NewSuspensionStatus(memberID, active)
	e.remember(ctx, gen, st)
	return st, nil
}

// LoadTeamSuspensions fetches every active suspension once and returns the
// status of each member of the given teams, priming the cache.
func (e *Engine) LoadTeamSuspensions(ctx context.Context, dir *model.Directory, teamIDs ...string) (map[string]model.SuspensionStatus, error) {
	gen := e.generation()
	active, err := e.store.ListActive(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list active suspensions: %w", err)
	}
	byMember := map[string][]model.Suspension{}
	for _, s := range active {
		byMember[s.MemberID] = append(byMember[s.MemberID], s)
	}
	metrics.UpdateActiveSuspensions(len(active))

	out := make(map[string]model.SuspensionStatus)
	for _, id := range dir.MemberIDs(teamIDs...) {
		st := model.NewSuspensionStatus(id, byMember[id])
		out[id] = st
		e.remember(ctx, gen, st)
	}
	return out, nil
}
