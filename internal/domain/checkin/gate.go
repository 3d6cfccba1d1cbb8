// Package checkin guards match-day attendance with the suspension status of
// the member being checked in.
//
// CheckIn is synchronous: a suspended member is rejected before anything is
// written. Toggle is optimistic: the member is marked present at once and a
// background check later confirms the transition or reverts it, running
// its compensating action and notifying the admin. Between the two the
// attendance list may show a suspended member as present.
package checkin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Store is the persistence the gate writes attendance through.
type Store interface {
	ListTeams(ctx context.Context) ([]model.Team, error)
	MutateMatch(ctx context.Context, eventID, matchID string, fn func(*model.Match) (bool, error)) (model.Match, error)
}

// StatusSource answers suspension status queries.
type StatusSource interface {
	Status(ctx context.Context, memberID string) (model.SuspensionStatus, error)
}

// Enqueuer accepts background attendance checks.
type Enqueuer interface {
	Enqueue(ctx context.Context, check model.AttendanceCheck) bool
}

// Notifier is told about reverted toggles.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

type pending struct {
	t          model.Transition
	compensate func(context.Context) error
	resolving  bool // claimed by a Resolve; guarded by Gate.mu
}

// Gate checks members in.
type Gate struct {
	store          Store
	statuses       StatusSource
	queue          Enqueuer
	notifier       Notifier
	clock          clockwork.Clock
	log            logger.Logger
	newID          func() string
	maxTransitions int

	mu          sync.Mutex
	transitions map[string]*pending
	order       []string
}

// New creates a gate.
func New(store Store, statuses StatusSource, opts ...Option) *Gate {
	g := &Gate{
		store:          store,
		statuses:       statuses,
		notifier:       nopNotifier{},
		clock:          clockwork.NewRealClock(),
		log:            logger.Nop(),
		newID:          defaultID,
		maxTransitions: defaultMaxTransitions,
		transitions:    make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func validate(req model.AttendanceRequest) error {
	switch {
	case strings.TrimSpace(req.EventID) == "":
		return fmt.Errorf("%w: eventId is required", ErrInvalidRequest)
	case strings.TrimSpace(req.MatchID) == "":
		return fmt.Errorf("%w: matchId is required", ErrInvalidRequest)
	case strings.TrimSpace(req.MemberID) == "":
		return fmt.Errorf("%w: memberId is required", ErrInvalidRequest)
	case !req.Side.Valid():
		return fmt.Errorf("%w: side must be home or away", ErrInvalidRequest)
	}
	return nil
}

// CheckIn marks the member present after confirming they are not
// suspended. A suspended member gets a *SuspendedError and attendance is
// left untouched.
func (g *Gate) CheckIn(ctx context.Context, req model.AttendanceRequest) (model.Match, error) {
	if err := validate(req); err != nil {
		return model.Match{}, err
	}
	st, err := g.statuses.Status(ctx, req.MemberID)
	if err != nil {
		metrics.RecordCheckIn("error")
		return model.Match{}, fmt.Errorf("suspension status: %w", err)
	}
	if st.IsSuspended {
		metrics.RecordCheckIn("rejected")
		g.log.Info(ctx, "check-in rejected",
			logger.String("memberId", req.MemberID),
			logger.Int("eventsRemaining", st.TotalEventsRemaining),
		)
		return model.Match{}, suspendedError(st)
	}
	m, _, err := g.setPresent(ctx, req, true)
	if err != nil {
		metrics.RecordCheckIn("error")
		return model.Match{}, err
	}
	metrics.RecordCheckIn("accepted")
	return m, nil
}

// setPresent writes attendance and reports whether the member was present
// before the write.
func (g *Gate) setPresent(ctx context.Context, req model.AttendanceRequest, present bool) (model.Match, bool, error) {
	var rostered func(teamID string) bool
	if present {
		teams, err := g.store.ListTeams(ctx)
		if err != nil {
			return model.Match{}, false, fmt.Errorf("list teams: %w", err)
		}
		dir := model.NewDirectory(teams, nil)
		rostered = func(teamID string) bool {
			t, ok := dir.Team(teamID)
			if !ok {
				return false
			}
			_, ok = t.Member(req.MemberID)
			return ok
		}
	}

	was := false
	m, err := g.store.MutateMatch(ctx, req.EventID, req.MatchID, func(m *model.Match) (bool, error) {
		was = m.IsPresent(req.Side, req.MemberID)
		if present && !rostered(m.TeamFor(req.Side)) {
			return false, fmt.Errorf("%w: %s on %s", ErrNotRostered, req.MemberID, m.TeamFor(req.Side))
		}
		return m.SetPresent(req.Side, req.MemberID, present), nil
	})
	if err != nil {
		return model.Match{}, false, fmt.Errorf("update attendance: %w", err)
	}
	return m, was, nil
}

// Toggle applies an attendance change optimistically. Marking absent, or
// marking present a member already present, is confirmed at once. Marking
// present is written immediately and returned as tentative until the
// suspension check resolves it.
func (g *Gate) Toggle(ctx context.Context, req model.AttendanceRequest) (model.Transition, error) {
	if err := validate(req); err != nil {
		return model.Transition{}, err
	}
	_, was, err := g.setPresent(ctx, req, req.Present)
	if err != nil {
		return model.Transition{}, err
	}

	t := model.Transition{
		ID:        g.newID(),
		Request:   req,
		State:     model.TransitionTentative,
		CreatedAt: g.clock.Now().UTC(),
	}
	if !req.Present || was {
		t.State = model.TransitionConfirmed
		t.ResolvedAt = &t.CreatedAt
		g.remember(&pending{t: t})
		metrics.RecordAttendanceTransition(string(t.State))
		return t, nil
	}

	undo := req
	undo.Present = false
	g.remember(&pending{t: t, compensate: func(ctx context.Context) error {
		_, _, err := g.setPresent(ctx, undo, false)
		return err
	}})

	check := model.AttendanceCheck{TransitionID: t.ID, Request: req}
	if g.queue != nil && g.queue.Enqueue(ctx, check) {
		return t, nil
	}
	if g.queue != nil {
		g.log.Warn(ctx, "attendance check queue rejected job, validating inline",
			logger.String("transitionId", t.ID),
		)
	}
	if err := g.Resolve(ctx, check); err != nil {
		return model.Transition{}, err
	}
	return g.Transition(t.ID)
}

// Resolve validates a tentative transition against the member's suspension
// status. A suspended member's toggle is compensated and the admin notified.
// A failed status query also reverts, since the toggle could not be proven
// valid. Concurrent resolutions of one transition run the check once.
func (g *Gate) Resolve(ctx context.Context, check model.AttendanceCheck) error {
	g.mu.Lock()
	p, ok := g.transitions[check.TransitionID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTransition, check.TransitionID)
	}
	if p.t.State != model.TransitionTentative || p.resolving {
		g.mu.Unlock()
		return nil
	}
	p.resolving = true
	compensate := p.compensate
	g.mu.Unlock()

	st, err := g.statuses.Status(ctx, check.Request.MemberID)
	switch {
	case err != nil:
		if rerr := g.revert(ctx, p, compensate, "suspension check failed", model.SuspensionStatus{MemberID: check.Request.MemberID}); rerr != nil {
			return rerr
		}
		return fmt.Errorf("suspension status: %w", err)
	case st.IsSuspended:
		return g.revert(ctx, p, compensate, fmt.Sprintf("suspended for %d more event(s)", st.TotalEventsRemaining), st)
	default:
		g.finish(p, model.TransitionConfirmed, "")
		return nil
	}
}

// revert runs compensate on a context detached from ctx's cancellation: a
// toggle written optimistically must be undone even while shutting down.
// If compensate fails the transition stays tentative and may be resolved
// again.
func (g *Gate) revert(ctx context.Context, p *pending, compensate func(context.Context) error, reason string, st model.SuspensionStatus) error {
	ctx = context.WithoutCancel(ctx)
	if compensate != nil {
		if err := compensate(ctx); err != nil {
			g.mu.Lock()
			p.resolving = false
			g.mu.Unlock()
			return fmt.Errorf("revert attendance: %w", err)
		}
	}
	t := g.finish(p, model.TransitionReverted, reason)
	g.log.Warn(ctx, "attendance toggle reverted",
		logger.String("transitionId", t.ID),
		logger.String("memberId", t.Request.MemberID),
		logger.String("reason", reason),
	)
	g.notifier.Notify(ctx, model.Notification{
		ID:              g.newID(),
		TransitionID:    t.ID,
		MemberID:        t.Request.MemberID,
		EventID:         t.Request.EventID,
		MatchID:         t.Request.MatchID,
		Message:         fmt.Sprintf("Check-in of %s was reverted: %s", t.Request.MemberID, reason),
		EventsRemaining: st.TotalEventsRemaining,
		At:              *t.ResolvedAt,
	})
	return nil
}

func (g *Gate) finish(p *pending, state model.TransitionState, reason string) model.Transition {
	now := g.clock.Now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	p.t.State = state
	p.t.Reason = reason
	p.t.ResolvedAt = &now
	p.compensate = nil
	p.resolving = false
	metrics.RecordAttendanceTransition(string(state))
	return p.t
}

// Transition returns a toggle's current state.
func (g *Gate) Transition(id string) (model.Transition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.transitions[id]
	if !ok {
		return model.Transition{}, fmt.Errorf("%w: %s", ErrUnknownTransition, id)
	}
	return p.t, nil
}

func (g *Gate) remember(p *pending) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transitions[p.t.ID] = p
	g.order = append(g.order, p.t.ID)

	// evict the oldest resolved transitions; tentative ones still need resolving
	if len(g.order) <= g.maxTransitions {
		return
	}
	kept := g.order[:0]
	excess := len(g.order) - g.maxTransitions
	for _, id := range g.order {
		if excess > 0 && g.transitions[id].t.State != model.TransitionTentative {
			delete(g.transitions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	g.order = kept
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification) {}
