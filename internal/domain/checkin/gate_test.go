package checkin_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sideline/internal/adapters/mq/queue"
	"github.com/okian/sideline/internal/adapters/mq/worker"
	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/cards"
	"github.com/okian/sideline/internal/domain/checkin"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/domain/statuscache"
	"github.com/okian/sideline/internal/domain/suspension"
)

var now = time.Date(2024, 10, 20, 9, 0, 0, 0, time.UTC)

func at(d int) model.Timestamp {
	return model.Epoch(time.Date(2024, time.September, d, 18, 0, 0, 0, time.UTC).Unix())
}

func yellowMatch(id string) model.Match {
	return model.Match{ID: id, HomeTeamID: "t1", AwayTeamID: "t2", Cards: []model.Card{
		{MemberID: "p1", TeamType: model.SideHome, CardType: model.CardYellow},
	}}
}

type fixture struct {
	store  *repository.MemoryStore
	engine *suspension.Engine
	cal    *season.Calendar
}

func newFixture(ctx context.Context) fixture {
	store := repository.NewMemoryStore()
	So(store.UpsertTeam(ctx, model.Team{ID: "t1", Name: "Lions", Members: []model.Member{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Bo"}}}), ShouldBeNil)
	So(store.UpsertTeam(ctx, model.Team{ID: "t2", Name: "Tigers", Members: []model.Member{{ID: "p3", Name: "Cy"}}}), ShouldBeNil)
	So(store.SaveEvents(ctx, []model.Event{
		{ID: "e1", Date: at(7), Matches: []model.Match{yellowMatch("m1")}},
		{ID: "e2", Date: at(14), Matches: []model.Match{yellowMatch("m2")}},
		{ID: "e3", Date: at(21), Matches: []model.Match{yellowMatch("m3")}},
		{ID: "e4", Date: at(28), Matches: []model.Match{{ID: "m4", HomeTeamID: "t1", AwayTeamID: "t2"}}},
	}), ShouldBeNil)

	clock := clockwork.NewFakeClockAt(now)
	engine := suspension.New(store,
		suspension.WithClock(clock),
		suspension.WithCache(statuscache.New(statuscache.WithClock(clock))),
	)
	return fixture{store: store, engine: engine, cal: season.NewCalendar(time.UTC)}
}

func (f fixture) triggers(ctx context.Context) []model.Trigger {
	events, _ := f.store.ListEvents(ctx)
	teams, _ := f.store.ListTeams(ctx)
	recs := cards.New(f.cal).Collect(ctx, events, model.NewDirectory(teams, nil), cards.CurrentSeason(f.cal, now))
	return f.engine.Triggers(recs)
}

func request(member string, present bool) model.AttendanceRequest {
	return model.AttendanceRequest{EventID: "e4", MatchID: "m4", Side: model.SideHome, MemberID: member, Present: present}
}

func TestCheckInLifecycle(t *testing.T) {
	Convey("Given a member with three yellow cards in three matches", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		gate := checkin.New(f.store, f.engine)

		triggers := f.triggers(ctx)
		So(len(triggers), ShouldEqual, 1)
		So(triggers[0].Kind, ShouldEqual, model.TriggerYellowAccumulation)
		So(triggers[0].Count, ShouldEqual, 3)

		Convey("When a two-event suspension is applied", func() {
			s, err := f.engine.Apply(ctx, "p1", triggers[0], 2)
			So(err, ShouldBeNil)
			So(s.EventsRemaining, ShouldEqual, 2)

			_, err = gate.CheckIn(ctx, request("p1", true))

			Convey("Then check-in is rejected with the remaining events", func() {
				var serr *checkin.SuspendedError
				So(errors.As(err, &serr), ShouldBeTrue)
				So(errors.Is(err, checkin.ErrSuspended), ShouldBeTrue)
				So(serr.EventsRemaining, ShouldEqual, 2)
				So(serr.Triggers, ShouldResemble, []model.TriggerKind{model.TriggerYellowAccumulation})

				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})

			Convey("And after it is marked served", func() {
				_, err := f.engine.MarkServed(ctx, s.ID)
				So(err, ShouldBeNil)

				m, err := gate.CheckIn(ctx, request("p1", true))

				Convey("Then check-in succeeds", func() {
					So(err, ShouldBeNil)
					So(m.HomeAttendees, ShouldResemble, []string{"p1"})
				})
			})
		})
	})
}

func TestCheckInValidation(t *testing.T) {
	Convey("Given a gate", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		gate := checkin.New(f.store, f.engine)

		Convey("When the request is incomplete", func() {
			bad := request("p1", true)
			bad.Side = "middle"
			_, err1 := gate.CheckIn(ctx, bad)
			_, err2 := gate.CheckIn(ctx, request("", true))
			_, err3 := gate.Toggle(ctx, model.AttendanceRequest{MemberID: "p1", Side: model.SideHome})

			Convey("Then it is invalid", func() {
				So(errors.Is(err1, checkin.ErrInvalidRequest), ShouldBeTrue)
				So(errors.Is(err2, checkin.ErrInvalidRequest), ShouldBeTrue)
				So(errors.Is(err3, checkin.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When the member plays for the other side", func() {
			_, err := gate.CheckIn(ctx, request("p3", true))

			Convey("Then the roster check refuses it", func() {
				So(errors.Is(err, checkin.ErrNotRostered), ShouldBeTrue)
			})
		})

		Convey("When the match does not exist", func() {
			req := request("p1", true)
			req.MatchID = "nope"
			_, err := gate.CheckIn(ctx, req)

			Convey("Then the store error surfaces", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

type captureQueue struct {
	mu     sync.Mutex
	checks []model.AttendanceCheck
	reject bool
}

func (q *captureQueue) Enqueue(_ context.Context, c model.AttendanceCheck) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.checks = append(q.checks, c)
	return true
}

type failingStatus struct{}

func (failingStatus) Status(context.Context, string) (model.SuspensionStatus, error) {
	return model.SuspensionStatus{}, errors.New("status backend down")
}

func ids() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tr-%d", n)
	}
}

func TestToggle(t *testing.T) {
	Convey("Given a gate with a captured check queue", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		q := &captureQueue{}
		inbox := checkin.NewInbox(10)
		gate := checkin.New(f.store, f.engine,
			checkin.WithQueue(q),
			checkin.WithNotifier(inbox),
			checkin.WithClock(clockwork.NewFakeClockAt(now)),
			checkin.WithIDGenerator(ids()),
		)

		Convey("When a suspended member is toggled present", func() {
			_, err := f.engine.Apply(ctx, "p1", f.triggers(ctx)[0], 1)
			So(err, ShouldBeNil)

			tr, err := gate.Toggle(ctx, request("p1", true))
			So(err, ShouldBeNil)

			Convey("Then the toggle is written tentatively", func() {
				So(tr.State, ShouldEqual, model.TransitionTentative)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldResemble, []string{"p1"})
				So(len(q.checks), ShouldEqual, 1)
				So(q.checks[0].TransitionID, ShouldEqual, tr.ID)
			})

			Convey("Then the background check reverts it and notifies", func() {
				So(gate.Resolve(ctx, q.checks[0]), ShouldBeNil)

				got, err := gate.Transition(tr.ID)
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.TransitionReverted)
				So(got.Reason, ShouldContainSubstring, "1 more event")
				So(got.ResolvedAt, ShouldNotBeNil)

				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)

				notes := inbox.List()
				So(len(notes), ShouldEqual, 1)
				So(notes[0].TransitionID, ShouldEqual, tr.ID)
				So(notes[0].EventsRemaining, ShouldEqual, 1)

				Convey("And resolving again changes nothing", func() {
					So(gate.Resolve(ctx, q.checks[0]), ShouldBeNil)
					So(len(inbox.List()), ShouldEqual, 1)
				})
			})
		})

		Convey("When an eligible member is toggled present", func() {
			tr, err := gate.Toggle(ctx, request("p2", true))
			So(err, ShouldBeNil)
			So(gate.Resolve(ctx, q.checks[0]), ShouldBeNil)

			Convey("Then the transition is confirmed and attendance kept", func() {
				got, _ := gate.Transition(tr.ID)
				So(got.State, ShouldEqual, model.TransitionConfirmed)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldResemble, []string{"p2"})
				So(inbox.List(), ShouldBeEmpty)
			})
		})

		Convey("When a member is toggled absent", func() {
			_, err := gate.CheckIn(ctx, request("p2", true))
			So(err, ShouldBeNil)
			tr, err := gate.Toggle(ctx, request("p2", false))

			Convey("Then it is confirmed without a background check", func() {
				So(err, ShouldBeNil)
				So(tr.State, ShouldEqual, model.TransitionConfirmed)
				So(q.checks, ShouldBeEmpty)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})
		})

		Convey("When the queue rejects the check", func() {
			q.reject = true
			tr, err := gate.Toggle(ctx, request("p2", true))

			Convey("Then the toggle is validated inline", func() {
				So(err, ShouldBeNil)
				So(tr.State, ShouldEqual, model.TransitionConfirmed)
			})
		})

		Convey("When the transition is unknown", func() {
			_, err := gate.Transition("missing")
			rerr := gate.Resolve(ctx, model.AttendanceCheck{TransitionID: "missing"})

			Convey("Then both report it", func() {
				So(errors.Is(err, checkin.ErrUnknownTransition), ShouldBeTrue)
				So(errors.Is(rerr, checkin.ErrUnknownTransition), ShouldBeTrue)
			})
		})
	})

	Convey("Given a gate whose status query fails", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		gate := checkin.New(f.store, failingStatus{})

		Convey("When a member is toggled present", func() {
			_, err := gate.Toggle(ctx, request("p2", true))

			Convey("Then the error surfaces and the optimistic write is reverted", func() {
				So(err, ShouldNotBeNil)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})
		})

		Convey("When a member checks in", func() {
			_, err := gate.CheckIn(ctx, request("p2", true))

			Convey("Then the error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, checkin.ErrSuspended), ShouldBeFalse)
			})
		})
	})
}

func TestToggleWithWorkers(t *testing.T) {
	Convey("Given a gate validated by a worker pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := newFixture(ctx)
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		inbox := checkin.NewInbox(0)
		gate := checkin.New(f.store, f.engine, checkin.WithQueue(q), checkin.WithNotifier(inbox))
		pool := worker.NewPool(2, q, gate)
		pool.Start(ctx)

		_, err := f.engine.Apply(ctx, "p1", f.triggers(ctx)[0], 2)
		So(err, ShouldBeNil)

		Convey("When a suspended member is toggled present", func() {
			tr, err := gate.Toggle(ctx, request("p1", true))
			So(err, ShouldBeNil)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			So(pool.Shutdown(shutdownCtx), ShouldBeNil)

			Convey("Then the revert notification arrives after the toggle", func() {
				got, _ := gate.Transition(tr.ID)
				So(got.State, ShouldEqual, model.TransitionReverted)
				So(len(inbox.List()), ShouldEqual, 1)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})
		})
	})
}

func TestInbox(t *testing.T) {
	Convey("Given an inbox of two", t, func() {
		in := checkin.NewInbox(2)
		for i := 1; i <= 3; i++ {
			in.Notify(context.Background(), model.Notification{ID: fmt.Sprintf("n%d", i)})
		}

		Convey("Then it keeps the newest, newest first", func() {
			list := in.List()
			So(len(list), ShouldEqual, 2)
			So(list[0].ID, ShouldEqual, "n3")
			So(list[1].ID, ShouldEqual, "n2")
		})
	})
}

// heldStatus parks the first status query until released.
type heldStatus struct {
	checkin.StatusSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (h *heldStatus) Status(ctx context.Context, memberID string) (model.SuspensionStatus, error) {
	h.once.Do(func() {
		close(h.entered)
		<-h.release
	})
	return h.StatusSource.Status(ctx, memberID)
}

func TestConcurrentResolve(t *testing.T) {
	Convey("Given a suspended member's tentative toggle whose check is in flight", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		_, err := f.engine.Apply(ctx, "p1", f.triggers(ctx)[0], 1)
		So(err, ShouldBeNil)

		statuses := &heldStatus{StatusSource: f.engine, entered: make(chan struct{}), release: make(chan struct{})}
		q := &captureQueue{}
		inbox := checkin.NewInbox(10)
		gate := checkin.New(f.store, statuses, checkin.WithQueue(q), checkin.WithNotifier(inbox))

		tr, err := gate.Toggle(ctx, request("p1", true))
		So(err, ShouldBeNil)

		first := make(chan error, 1)
		go func() { first <- gate.Resolve(ctx, q.checks[0]) }()
		<-statuses.entered

		Convey("When the same check is resolved again meanwhile", func() {
			second := gate.Resolve(ctx, q.checks[0])
			pendingState, _ := gate.Transition(tr.ID)
			close(statuses.release)

			Convey("Then only the first resolution reverts and notifies", func() {
				So(second, ShouldBeNil)
				So(pendingState.State, ShouldEqual, model.TransitionTentative)
				So(<-first, ShouldBeNil)

				got, _ := gate.Transition(tr.ID)
				So(got.State, ShouldEqual, model.TransitionReverted)
				So(len(inbox.List()), ShouldEqual, 1)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})
		})
	})
}

func TestResolveOnCancelledContext(t *testing.T) {
	Convey("Given a suspended member's tentative toggle", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		_, err := f.engine.Apply(ctx, "p1", f.triggers(ctx)[0], 1)
		So(err, ShouldBeNil)

		q := &captureQueue{}
		inbox := checkin.NewInbox(10)
		gate := checkin.New(f.store, f.engine, checkin.WithQueue(q), checkin.WithNotifier(inbox))
		tr, err := gate.Toggle(ctx, request("p1", true))
		So(err, ShouldBeNil)

		Convey("When the check runs on a cancelled context", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			err := gate.Resolve(cancelled, q.checks[0])

			Convey("Then the optimistic write is still reverted", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				got, _ := gate.Transition(tr.ID)
				So(got.State, ShouldEqual, model.TransitionReverted)
				So(got.Reason, ShouldEqual, "suspension check failed")
				So(len(inbox.List()), ShouldEqual, 1)
				m, _ := f.store.GetMatch(ctx, "e4", "m4")
				So(m.HomeAttendees, ShouldBeEmpty)
			})
		})
	})
}
