package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/sideline/internal/app"
	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/suspension"
	"github.com/okian/sideline/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var now = time.Date(2025, time.March, 20, 17, 0, 0, 0, time.UTC)

func epoch(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 18, 0, 0, 0, time.UTC).Unix()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(service.WithClock(clockwork.NewFakeClockAt(now)))

		Convey("Then the live season is known before Start", func() {
			So(svc.CurrentSeason().Label(), ShouldEqual, "2025-Spring")
			So(svc.YellowThreshold(), ShouldEqual, suspension.DefaultYellowThreshold)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then toggles are refused until workers run", func() {
			_, err := svc.ToggleAttendance(context.Background(), model.AttendanceRequest{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(64),
			service.WithCacheTTL(0),
			service.WithYellowThreshold(2),
			service.WithSuspensionBounds(2, 4),
			service.WithLocation(time.UTC),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 64)
			So(svc.YellowThreshold(), ShouldEqual, 2)

			_, err := svc.ApplySuspension(context.Background(), "p1",
				model.Trigger{Kind: model.TriggerRed, Source: "red:e:m:0"}, 1)
			So(errors.Is(err, suspension.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting it twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports started with an empty queue", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And stopping it twice is safe", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_StopAfterCancel(t *testing.T) {
	Convey("Given a started service whose run context is cancelled", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seedLeague(ctx, store)
		svc := service.New(
			service.WithStore(store),
			service.WithClock(clockwork.NewFakeClockAt(now)),
			service.WithWorkerCount(1),
		)
		runCtx, cancel := context.WithCancel(ctx)
		So(svc.Start(runCtx), ShouldBeNil)
		cancel()

		pending, _, err := svc.ComputePendingSuspendable(ctx)
		So(err, ShouldBeNil)
		So(len(pending), ShouldEqual, 1)
		_, err = svc.ApplySuspension(ctx, "p1", pending[0].Trigger, 2)
		So(err, ShouldBeNil)

		Convey("When a suspended member is toggled present and the service stops", func() {
			tr, err := svc.ToggleAttendance(ctx, model.AttendanceRequest{
				EventID: "e4", MatchID: "m4", Side: model.SideHome, MemberID: "p1", Present: true,
			})
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the queued check was drained and the toggle reverted", func() {
				got, err := svc.Transition(tr.ID)
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.TransitionReverted)
				So(len(svc.Notifications()), ShouldEqual, 1)

				m, err := store.GetMatch(ctx, "e4", "m4")
				So(err, ShouldBeNil)
				So(m.IsPresent(model.SideHome, "p1"), ShouldBeFalse)
			})
		})
	})
}

func TestService_Seasons(t *testing.T) {
	Convey("Given a service on Feb 20 2025", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2025, time.February, 20, 12, 0, 0, 0, time.UTC))
		svc := service.New(service.WithClock(clock))

		Convey("Then Feb 14 is outside the live season but labelled Spring", func() {
			feb14 := epoch(2025, time.February, 14)
			So(svc.IsCurrentSeasonEvent(feb14), ShouldBeFalse)
			So(svc.SeasonAt(feb14).Label(), ShouldEqual, "2024-Fall")
			So(svc.ClassifyEvent(feb14), ShouldEqual, "2025-Spring")
			So(svc.IsCurrentSeasonEvent(epoch(2025, time.February, 15)), ShouldBeTrue)
		})
	})
}

func TestService_Cards(t *testing.T) {
	Convey("Given events across two seasons", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		So(store.UpsertTeam(ctx, model.Team{ID: "t1", Name: "Lions", Members: []model.Member{{ID: "p1", Name: "Ana"}}}), ShouldBeNil)
		So(store.UpsertReferee(ctx, model.Referee{ID: "r1", Name: "Ref"}), ShouldBeNil)
		So(store.SaveEvents(ctx, []model.Event{
			{ID: "old", Date: model.Epoch(epoch(2024, time.October, 5)), Matches: []model.Match{{
				ID: "m0", HomeTeamID: "t1", Cards: []model.Card{{MemberID: "p1", TeamType: model.SideHome, CardType: model.CardRed}},
			}}},
			{ID: "new", Date: model.Epoch(epoch(2025, time.March, 8)), Matches: []model.Match{{
				ID: "m1", HomeTeamID: "t1", RefereeID: "r1", Cards: []model.Card{
					{MemberID: "p1", TeamType: model.SideHome, CardType: model.CardYellow},
					{MemberID: "p1", TeamType: model.SideHome, CardType: model.CardRed},
				},
			}}},
		}), ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithClock(clockwork.NewFakeClockAt(now)))

		Convey("When collecting by selector", func() {
			current, label, err := svc.CollectSeasonCards(ctx, "current")
			So(err, ShouldBeNil)
			all, _, err := svc.CollectSeasonCards(ctx, "all")
			So(err, ShouldBeNil)
			fall, fallLabel, err := svc.CollectSeasonCards(ctx, "2024-fall")
			So(err, ShouldBeNil)

			Convey("Then each selector picks its events", func() {
				So(label, ShouldEqual, "2025-Spring")
				So(len(current), ShouldEqual, 2)
				So(current[0].RefereeName, ShouldEqual, "Ref")
				So(len(all), ShouldEqual, 3)
				So(fallLabel, ShouldEqual, "2024-Fall")
				So(len(fall), ShouldEqual, 1)
			})
		})

		Convey("When the selector is malformed", func() {
			_, _, err := svc.CollectSeasonCards(ctx, "summer")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidSeason), ShouldBeTrue)
			})
		})

		Convey("When computing stats and pending suspensions", func() {
			stats, _, err := svc.ComputeSeasonStats(ctx, "")
			So(err, ShouldBeNil)
			pending, _, err := svc.ComputePendingSuspendable(ctx)
			So(err, ShouldBeNil)

			Convey("Then only the live season counts", func() {
				So(stats.TotalCards, ShouldEqual, 2)
				So(stats.TotalRed, ShouldEqual, 1)
				So(len(pending), ShouldEqual, 1)
				So(pending[0].Trigger.Kind, ShouldEqual, model.TriggerRed)
				So(pending[0].Status, ShouldEqual, model.StatusPending)
			})
		})
	})
}
