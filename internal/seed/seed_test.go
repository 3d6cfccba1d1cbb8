package seed_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/seed"
	"github.com/okian/sideline/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func genConfig(s uint64) seed.Config {
	return seed.Config{
		Teams:          5,
		PlayersPerTeam: 8,
		Referees:       3,
		Events:         6,
		FirstEvent:     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Seed:           s,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator configuration", t, func() {
		cfg := genConfig(42)

		Convey("Then the same seed yields the same league", func() {
			So(seed.Generate(cfg), ShouldResemble, seed.Generate(cfg))
		})

		Convey("Then the league resolves with every entity in place", func() {
			league, err := seed.Generate(cfg).Resolve(time.UTC)
			So(err, ShouldBeNil)
			So(len(league.Teams), ShouldEqual, 5)
			So(len(league.Teams[0].Members), ShouldEqual, 8)
			So(len(league.Referees), ShouldEqual, 3)
			So(len(league.Events), ShouldEqual, 6)

			// Five teams: two matches a week, one team sits out.
			So(len(league.Events[0].Matches), ShouldEqual, 2)
			So(league.Events[1].Date.Seconds-league.Events[0].Date.Seconds, ShouldEqual, int64(7*24*3600))

			last := league.Events[len(league.Events)-1]
			for _, m := range last.Matches {
				So(m.Status, ShouldEqual, model.MatchScheduled)
				So(m.Cards, ShouldBeEmpty)
			}
			for _, m := range league.Events[0].Matches {
				So(m.Status, ShouldEqual, model.MatchCompleted)
				So(m.Score, ShouldNotBeNil)
				So(m.Time, ShouldNotBeNil)
			}
		})

		Convey("Then no team plays twice in a round", func() {
			for _, ev := range seed.Generate(cfg).Events {
				seen := map[string]bool{}
				for _, m := range ev.Matches {
					So(seen[m.Home], ShouldBeFalse)
					So(seen[m.Away], ShouldBeFalse)
					seen[m.Home], seen[m.Away] = true, true
				}
			}
		})
	})
}

func TestFixture(t *testing.T) {
	Convey("Given a YAML fixture", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "league.yaml")
		So(os.WriteFile(path, []byte(`
teams:
  - id: t1
    name: Lions
    division: A
    members:
      - {id: p1, name: Ana}
      - {id: p2, name: Bo}
  - id: t2
    name: Tigers
    members:
      - {id: p3, name: Cy}
referees:
  - {id: r1, name: Ref One}
events:
  - id: e1
    name: Week 1
    date: "2025-03-01"
    matches:
      - id: m1
        home: t1
        away: t2
        kickoff: "10:30"
        status: completed
        referee: r1
        score: {home: 2, away: 1}
        cards:
          - {member: p1, side: home, type: yellow, minute: 12, reason: Dissent}
          - {member: p3, side: away, type: red, reason: Violent conduct}
`), 0o600), ShouldBeNil)

		Convey("When it is loaded and resolved", func() {
			fx, err := seed.LoadFixture(path)
			So(err, ShouldBeNil)
			loc, err := time.LoadLocation("America/Los_Angeles")
			So(err, ShouldBeNil)
			league, err := fx.Resolve(loc)
			So(err, ShouldBeNil)

			Convey("Then dates are read in the league timezone", func() {
				ev := league.Events[0]
				So(ev.Date.Seconds, ShouldEqual, time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC).Unix())
				m := ev.Matches[0]
				So(*m.Time, ShouldEqual, time.Date(2025, time.March, 1, 10, 30, 0, 0, loc).Unix())
				So(m.Cards[0].PlayerName, ShouldEqual, "Ana")
				So(*m.Cards[0].Minute, ShouldEqual, 12)
				So(m.Cards[1].CardType, ShouldEqual, model.CardRed)
				So(league.Teams[0].Category, ShouldEqual, "A")
			})
		})

		Convey("When a card names a player from the other roster", func() {
			fx, err := seed.LoadFixture(path)
			So(err, ShouldBeNil)
			fx.Events[0].Matches[0].Cards[0].Member = "p3"
			_, err = fx.Resolve(time.UTC)

			Convey("Then the fixture is rejected", func() {
				So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
			})
		})

		Convey("When a match refers to an unknown team or a bad date", func() {
			fx, err := seed.LoadFixture(path)
			So(err, ShouldBeNil)
			fx.Events[0].Matches[0].Away = "t9"
			_, errTeam := fx.Resolve(time.UTC)

			fx, _ = seed.LoadFixture(path)
			fx.Events[0].Date = "March 1st"
			_, errDate := fx.Resolve(time.UTC)

			Convey("Then both are rejected", func() {
				So(errors.Is(errTeam, seed.ErrInvalidFixture), ShouldBeTrue)
				So(errors.Is(errDate, seed.ErrInvalidFixture), ShouldBeTrue)
			})
		})

		Convey("When the file is not YAML", func() {
			So(os.WriteFile(path, []byte("teams: [unterminated"), 0o600), ShouldBeNil)
			_, err := seed.LoadFixture(path)

			Convey("Then loading fails as an invalid fixture", func() {
				So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
			})
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a generated league", t, func() {
		ctx := context.Background()
		league, err := seed.Generate(genConfig(7)).Resolve(time.UTC)
		So(err, ShouldBeNil)
		store := repository.NewMemoryStore()

		Convey("When it is applied twice", func() {
			var stats seed.Stats
			So(seed.Apply(ctx, store, league, false, &stats, true), ShouldBeNil)
			So(seed.Apply(ctx, store, league, false, &seed.Stats{}, false), ShouldBeNil)

			Convey("Then the store holds one copy and the stats add up", func() {
				teams, err := store.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(len(teams), ShouldEqual, 5)
				refs, err := store.ListReferees(ctx)
				So(err, ShouldBeNil)
				So(len(refs), ShouldEqual, 3)
				events, err := store.ListEvents(ctx)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 6)

				cards := 0
				for _, ev := range events {
					for _, m := range ev.Matches {
						cards += len(m.Cards)
					}
				}
				So(stats.Members, ShouldEqual, 40)
				So(stats.Yellow+stats.Red, ShouldEqual, cards)
			})
		})

		Convey("When replacing an existing event list", func() {
			So(store.UpsertEvent(ctx, model.Event{ID: "stale", Date: model.Epoch(1)}), ShouldBeNil)
			So(seed.Apply(ctx, store, league, true, &seed.Stats{}, false), ShouldBeNil)

			Convey("Then only the seeded events remain", func() {
				events, err := store.ListEvents(ctx)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 6)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a database path and an output file", t, func() {
		dir := t.TempDir()
		cfg := genConfig(3)
		cfg.DatabasePath = filepath.Join(dir, "league.db")
		cfg.OutputFile = filepath.Join(dir, "league.yaml")

		Convey("When the seed runs", func() {
			stats, err := seed.Run(context.Background(), &cfg)
			So(err, ShouldBeNil)

			Convey("Then the database is populated and the fixture reloads", func() {
				So(stats.Events, ShouldEqual, 6)

				store, err := repository.OpenSQLite(context.Background(), cfg.DatabasePath)
				So(err, ShouldBeNil)
				defer store.Close()
				events, err := store.ListEvents(context.Background())
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 6)

				fx, err := seed.LoadFixture(cfg.OutputFile)
				So(err, ShouldBeNil)
				So(fx, ShouldResemble, seed.Generate(genConfig(3)))
			})
		})
	})
}
