package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/model"
)

type factory struct {
	name string
	open func(t *testing.T) repository.Store
}

func factories() []factory {
	return []factory{
		{"memory", func(t *testing.T) repository.Store { return repository.NewMemoryStore() }},
		{"sqlite", func(t *testing.T) repository.Store {
			s, err := repository.OpenSQLite(context.Background(), repository.MemoryDSN)
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
}

func sampleEvents() []model.Event {
	minute := 42
	return []model.Event{
		{ID: "e1", Name: "Week 1", Date: model.Epoch(1725724800), Matches: []model.Match{
			{ID: "m1", HomeTeamID: "t1", AwayTeamID: "t2", Status: model.MatchCompleted,
				Score: &model.Score{Home: 2, Away: 1},
				Cards: []model.Card{{MemberID: "p1", TeamType: model.SideHome, CardType: model.CardYellow, Minute: &minute}}},
		}},
		{ID: "e2", Name: "Week 2", Date: model.Epoch(1726329600)},
	}
}

func TestEventStore(t *testing.T) {
	for _, f := range factories() {
		Convey("Given an empty "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			Convey("When events are saved", func() {
				So(s.SaveEvents(ctx, sampleEvents()), ShouldBeNil)

				Convey("Then they are listed in order with nested data", func() {
					got, err := s.ListEvents(ctx)
					So(err, ShouldBeNil)
					So(len(got), ShouldEqual, 2)
					So(got[0].ID, ShouldEqual, "e1")
					So(got[0].Matches[0].Score.Home, ShouldEqual, 2)
					So(*got[0].Matches[0].Cards[0].Minute, ShouldEqual, 42)
				})

				Convey("Then an upsert replaces in place and a new event appends", func() {
					ev := sampleEvents()[0]
					ev.Name = "Week 1 (moved)"
					So(s.UpsertEvent(ctx, ev), ShouldBeNil)
					So(s.UpsertEvent(ctx, model.Event{ID: "e3", Name: "Week 3", Date: model.Epoch(1726934400)}), ShouldBeNil)

					got, err := s.ListEvents(ctx)
					So(err, ShouldBeNil)
					So(len(got), ShouldEqual, 3)
					So(got[0].Name, ShouldEqual, "Week 1 (moved)")
					So(got[2].ID, ShouldEqual, "e3")
				})

				Convey("Then a match can be mutated atomically", func() {
					m, err := s.MutateMatch(ctx, "e1", "m1", func(m *model.Match) (bool, error) {
						return m.SetPresent(model.SideAway, "p9", true), nil
					})
					So(err, ShouldBeNil)
					So(m.AwayAttendees, ShouldResemble, []string{"p9"})

					stored, err := s.GetMatch(ctx, "e1", "m1")
					So(err, ShouldBeNil)
					So(stored.IsPresent(model.SideAway, "p9"), ShouldBeTrue)
				})

				Convey("Then a failing mutation writes nothing", func() {
					boom := errors.New("boom")
					_, err := s.MutateMatch(ctx, "e1", "m1", func(m *model.Match) (bool, error) {
						m.SetPresent(model.SideHome, "p1", true)
						return true, boom
					})
					So(errors.Is(err, boom), ShouldBeTrue)

					stored, _ := s.GetMatch(ctx, "e1", "m1")
					So(stored.IsPresent(model.SideHome, "p1"), ShouldBeFalse)
				})

				Convey("Then UpdateMatch replaces the match", func() {
					m, err := s.GetMatch(ctx, "e1", "m1")
					So(err, ShouldBeNil)
					m.Field = "North"
					So(s.UpdateMatch(ctx, "e1", m), ShouldBeNil)
					m, _ = s.GetMatch(ctx, "e1", "m1")
					So(m.Field, ShouldEqual, "North")
				})

				Convey("Then unknown events and matches are not found", func() {
					_, err := s.GetMatch(ctx, "nope", "m1")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					_, err = s.GetMatch(ctx, "e1", "nope")
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When clearing without persisted records", func() {
				So(s.SaveEvents(ctx, sampleEvents()), ShouldBeNil)
				err := s.ClearEvents(ctx, model.ClearReceipt{BatchID: "b1", RecordCount: 1})

				Convey("Then the store refuses and keeps the events", func() {
					So(errors.Is(err, repository.ErrRecordsNotPersisted), ShouldBeTrue)
					got, _ := s.ListEvents(ctx)
					So(len(got), ShouldEqual, 2)
				})
			})

			Convey("When clearing after the batch is persisted", func() {
				So(s.SaveEvents(ctx, sampleEvents()), ShouldBeNil)
				So(s.CreateRecords(ctx, "b1", []model.DisciplinaryRecord{record("r1", "p1", "t1", 10)}), ShouldBeNil)
				archived, err := s.ListEvents(ctx)
				So(err, ShouldBeNil)
				receipt, err := model.NewClearReceipt("b1", 1, archived)
				So(err, ShouldBeNil)

				Convey("Then the archived live events are gone", func() {
					So(s.ClearEvents(ctx, receipt), ShouldBeNil)
					got, _ := s.ListEvents(ctx)
					So(got, ShouldBeEmpty)
				})

				Convey("Then an event added after the archive stays live", func() {
					So(s.UpsertEvent(ctx, model.Event{ID: "e3", Name: "Week 3", Date: model.Epoch(1726934400)}), ShouldBeNil)
					So(s.ClearEvents(ctx, receipt), ShouldBeNil)
					got, _ := s.ListEvents(ctx)
					So(len(got), ShouldEqual, 1)
					So(got[0].ID, ShouldEqual, "e3")
				})

				Convey("Then an archived event edited since refuses the whole clear", func() {
					_, err := s.MutateMatch(ctx, "e1", "m1", func(m *model.Match) (bool, error) {
						m.Cards = append(m.Cards, model.Card{MemberID: "p2", TeamType: model.SideAway, CardType: model.CardRed})
						return true, nil
					})
					So(err, ShouldBeNil)
					err = s.ClearEvents(ctx, receipt)
					So(errors.Is(err, repository.ErrEventsChanged), ShouldBeTrue)
					got, _ := s.ListEvents(ctx)
					So(len(got), ShouldEqual, 2)
				})

				Convey("Then an archived event deleted since is skipped", func() {
					So(s.SaveEvents(ctx, archived[:1]), ShouldBeNil)
					So(s.ClearEvents(ctx, receipt), ShouldBeNil)
					got, _ := s.ListEvents(ctx)
					So(got, ShouldBeEmpty)
				})
			})
		})
	}
}

func record(id, member, team string, date int64) model.DisciplinaryRecord {
	return model.DisciplinaryRecord{
		ID: id, MemberID: member, PlayerName: "Player " + member, TeamID: team,
		CardType: model.CardRed, IncidentDate: date, SuspensionServed: true,
		EventID: "e1", MatchID: "m1", Season: "2024-Fall",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDisciplinaryStore(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			Convey("When a batch is written", func() {
				So(s.CreateRecords(ctx, "b1", []model.DisciplinaryRecord{
					record("r2", "p1", "t1", 20),
					record("r1", "p1", "t1", 10),
					record("r3", "p2", "t2", 15),
				}), ShouldBeNil)

				Convey("Then records are listed by member and team in incident order", func() {
					byMember, err := s.ListRecordsByMember(ctx, "p1")
					So(err, ShouldBeNil)
					So(len(byMember), ShouldEqual, 2)
					So(byMember[0].ID, ShouldEqual, "r1")
					So(byMember[0].BatchID, ShouldEqual, "b1")
					So(byMember[0].SuspensionServed, ShouldBeTrue)
					So(byMember[0].CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)), ShouldBeTrue)

					byTeam, err := s.ListRecordsByTeam(ctx, "t2")
					So(err, ShouldBeNil)
					So(len(byTeam), ShouldEqual, 1)
				})

				Convey("Then rewriting the same ids moves them to the new batch", func() {
					So(s.CreateRecords(ctx, "b2", []model.DisciplinaryRecord{record("r1", "p1", "t1", 10)}), ShouldBeNil)
					n1, _ := s.CountRecordsInBatch(ctx, "b1")
					n2, _ := s.CountRecordsInBatch(ctx, "b2")
					So(n1, ShouldEqual, 2)
					So(n2, ShouldEqual, 1)
					all, _ := s.ListRecordsByMember(ctx, "p1")
					So(len(all), ShouldEqual, 2)
				})
			})

			Convey("When a record has no id", func() {
				err := s.CreateRecords(ctx, "b1", []model.DisciplinaryRecord{record("ok", "p1", "t1", 1), {}})

				Convey("Then nothing is written", func() {
					So(errors.Is(err, repository.ErrInvalidArgument), ShouldBeTrue)
					n, _ := s.CountRecordsInBatch(ctx, "b1")
					So(n, ShouldEqual, 0)
				})
			})
		})
	}
}

func suspension(id, member, source string) model.Suspension {
	return model.Suspension{
		ID: id, MemberID: member, Trigger: model.TriggerRed, Source: source,
		SuspensionEvents: 2, EventsRemaining: 2, Status: model.SuspensionActive,
		CreatedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSuspensionStore(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store with suspensions", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			So(s.Create(ctx, suspension("s1", "p1", "red:e1:m1:0")), ShouldBeNil)
			So(s.Create(ctx, suspension("s2", "p2", "red:e1:m1:1")), ShouldBeNil)

			Convey("When a second active suspension for the same source is created", func() {
				err := s.Create(ctx, suspension("s3", "p1", "red:e1:m1:0"))

				Convey("Then it is rejected", func() {
					So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
				})
			})

			Convey("When the first is served", func() {
				sp, err := s.Get(ctx, "s1")
				So(err, ShouldBeNil)
				served := time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC)
				sp.Status = model.SuspensionServed
				sp.EventsRemaining = 0
				sp.ServedAt = &served
				So(s.Update(ctx, sp), ShouldBeNil)

				Convey("Then it leaves the active list and the source is free again", func() {
					active, err := s.ListActive(ctx, "")
					So(err, ShouldBeNil)
					So(len(active), ShouldEqual, 1)
					So(active[0].ID, ShouldEqual, "s2")

					got, _ := s.Get(ctx, "s1")
					So(got.ServedAt.Equal(served), ShouldBeTrue)

					So(s.Create(ctx, suspension("s4", "p1", "red:e1:m1:0")), ShouldBeNil)
				})
			})

			Convey("When listing", func() {
				mine, err := s.ListActive(ctx, "p2")
				So(err, ShouldBeNil)
				all, err := s.List(ctx)
				So(err, ShouldBeNil)

				Convey("Then member filtering and creation order hold", func() {
					So(len(mine), ShouldEqual, 1)
					So(mine[0].MemberID, ShouldEqual, "p2")
					So(all[0].ID, ShouldEqual, "s1")
					So(all[1].ID, ShouldEqual, "s2")
				})
			})

			Convey("When reading or updating an unknown id", func() {
				_, err := s.Get(ctx, "missing")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(s.Update(ctx, suspension("missing", "p", "x")), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	}
}

func TestRosterAndArchiveStores(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			So(s.UpsertTeam(ctx, model.Team{ID: "t1", Name: "Lions", Category: "A",
				Members: []model.Member{{ID: "p1", Name: "Ann"}, {ID: "p2", Name: "Ben", Number: "9"}}}), ShouldBeNil)
			So(s.UpsertTeam(ctx, model.Team{ID: "t2", Name: "Tigers"}), ShouldBeNil)
			So(s.UpsertReferee(ctx, model.Referee{ID: "r1", Name: "Ref"}), ShouldBeNil)

			Convey("Then teams keep their order and rosters", func() {
				teams, err := s.ListTeams(ctx)
				So(err, ShouldBeNil)
				So(len(teams), ShouldEqual, 2)
				So(teams[0].Members[1].Number, ShouldEqual, "9")
				So(teams[1].Members, ShouldBeEmpty)
			})

			Convey("Then a roster upsert replaces members", func() {
				So(s.UpsertTeam(ctx, model.Team{ID: "t1", Name: "Lions FC", Members: []model.Member{{ID: "p3", Name: "Cy"}}}), ShouldBeNil)
				teams, _ := s.ListTeams(ctx)
				So(teams[0].Name, ShouldEqual, "Lions FC")
				So(len(teams[0].Members), ShouldEqual, 1)
			})

			Convey("Then referees are listed", func() {
				refs, err := s.ListReferees(ctx)
				So(err, ShouldBeNil)
				So(refs, ShouldResemble, []model.Referee{{ID: "r1", Name: "Ref"}})
			})

			Convey("Then snapshots round-trip", func() {
				snap := model.SeasonSnapshot{ID: "a1", Season: "2024-Fall", BatchID: "b1",
					Events: sampleEvents(), ArchivedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
				So(s.CreateSnapshot(ctx, snap), ShouldBeNil)
				got, err := s.ListSnapshots(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Season, ShouldEqual, "2024-Fall")
				So(len(got[0].Events), ShouldEqual, 2)
			})
		})
	}
}

func TestSQLiteFileStore(t *testing.T) {
	Convey("Given a file-backed SQLite store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "league.db")
		s, err := repository.OpenSQLite(ctx, path)
		So(err, ShouldBeNil)
		So(s.SaveEvents(ctx, sampleEvents()), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := repository.OpenSQLite(ctx, path)
			So(err, ShouldBeNil)
			defer s2.Close()

			Convey("Then migrations are idempotent and data survives", func() {
				got, err := s2.ListEvents(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
			})
		})
	})

	Convey("Given an empty path", t, func() {
		_, err := repository.OpenSQLite(context.Background(), "  ")

		Convey("Then opening fails", func() {
			So(errors.Is(err, repository.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}
