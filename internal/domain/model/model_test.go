package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/sideline/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTimestamp(t *testing.T) {
	convey.Convey("Given event payloads with assorted date encodings", t, func() {
		payload := `[
			{"id":"e1","date":1739577600},
			{"id":"e2","date":"1739577600"},
			{"id":"e3","date":"next saturday"},
			{"id":"e4"},
			{"id":"e5","date":null},
			{"id":"e6","date":1e300},
			{"id":"e7","date":"-9.3e18"},
			{"id":"e8","date":9e18}
		]`

		var events []model.Event
		err := json.Unmarshal([]byte(payload), &events)

		convey.Convey("Then decoding never fails", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(events, convey.ShouldHaveLength, 8)
		})

		convey.Convey("And numeric values are valid", func() {
			convey.So(events[0].Date.Valid, convey.ShouldBeTrue)
			convey.So(events[0].Date.Seconds, convey.ShouldEqual, 1739577600)
			convey.So(events[1].Date.Valid, convey.ShouldBeTrue)
			convey.So(events[1].Date.Seconds, convey.ShouldEqual, 1739577600)
		})

		convey.Convey("And non-numeric or missing values are invalid", func() {
			convey.So(events[2].Date.Valid, convey.ShouldBeFalse)
			convey.So(events[2].Date.Raw, convey.ShouldEqual, "next saturday")
			convey.So(events[3].Date.Valid, convey.ShouldBeFalse)
			convey.So(events[4].Date.Valid, convey.ShouldBeFalse)
		})

		convey.Convey("And numbers beyond the int64 range are invalid", func() {
			convey.So(events[5].Date.Valid, convey.ShouldBeFalse)
			convey.So(events[5].Date.Raw, convey.ShouldEqual, "1e300")
			convey.So(events[6].Date.Valid, convey.ShouldBeFalse)
			convey.So(events[6].Date.Raw, convey.ShouldEqual, "-9.3e18")
			convey.So(events[7].Date.Valid, convey.ShouldBeTrue)
			convey.So(events[7].Date.Seconds, convey.ShouldEqual, int64(9e18))
		})

		convey.Convey("And invalid raw values survive a round trip", func() {
			out, err := json.Marshal(events[2])
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(out), convey.ShouldContainSubstring, `"date":"next saturday"`)
		})
	})
}

func TestMatchAttendance(t *testing.T) {
	convey.Convey("Given a match with no attendees", t, func() {
		m := model.Match{ID: "m1", HomeTeamID: "t1", AwayTeamID: "t2"}

		convey.Convey("When marking a home member present twice", func() {
			first := m.SetPresent(model.SideHome, "p1", true)
			second := m.SetPresent(model.SideHome, "p1", true)

			convey.Convey("Then only the first call changes the list", func() {
				convey.So(first, convey.ShouldBeTrue)
				convey.So(second, convey.ShouldBeFalse)
				convey.So(m.HomeAttendees, convey.ShouldResemble, []string{"p1"})
				convey.So(m.AwayAttendees, convey.ShouldBeEmpty)
			})

			convey.Convey("And marking absent removes the member", func() {
				convey.So(m.SetPresent(model.SideHome, "p1", false), convey.ShouldBeTrue)
				convey.So(m.IsPresent(model.SideHome, "p1"), convey.ShouldBeFalse)
			})
		})
	})
}

func TestSuspensionStatus(t *testing.T) {
	convey.Convey("Given a mix of suspensions for one member", t, func() {
		list := []model.Suspension{
			{ID: "s1", MemberID: "p1", Status: model.SuspensionActive, EventsRemaining: 2},
			{ID: "s2", MemberID: "p1", Status: model.SuspensionActive, EventsRemaining: 3},
			{ID: "s3", MemberID: "p1", Status: model.SuspensionServed, EventsRemaining: 0},
			{ID: "s4", MemberID: "p2", Status: model.SuspensionActive, EventsRemaining: 4},
		}

		st := model.NewSuspensionStatus("p1", list)

		convey.Convey("Then only the member's active suspensions are summed", func() {
			convey.So(st.IsSuspended, convey.ShouldBeTrue)
			convey.So(st.TotalEventsRemaining, convey.ShouldEqual, 5)
			convey.So(st.Suspensions, convey.ShouldHaveLength, 2)
		})

		convey.Convey("And a member without suspensions is clear", func() {
			none := model.NewSuspensionStatus("p9", list)
			convey.So(none.IsSuspended, convey.ShouldBeFalse)
			convey.So(none.TotalEventsRemaining, convey.ShouldEqual, 0)
			convey.So(none.Suspensions, convey.ShouldNotBeNil)
		})
	})
}

func TestDirectory(t *testing.T) {
	convey.Convey("Given a directory with two teams sharing a member", t, func() {
		dir := model.NewDirectory([]model.Team{
			{ID: "t1", Name: "Lions", Members: []model.Member{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Bo"}}},
			{ID: "t2", Name: "Tigers", Members: []model.Member{{ID: "p2", Name: "Bo"}, {ID: "p3", Name: "Cy"}}},
		}, []model.Referee{{ID: "r1", Name: "Ref One"}})

		convey.Convey("Then members are found on the first team listing them", func() {
			team, member, ok := dir.FindMember("p2")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(team.ID, convey.ShouldEqual, "t1")
			convey.So(member.Name, convey.ShouldEqual, "Bo")
		})

		convey.Convey("And member ids are deduplicated across teams", func() {
			convey.So(dir.MemberIDs("t1", "t2"), convey.ShouldResemble, []string{"p1", "p2", "p3"})
		})

		convey.Convey("And referees resolve by id", func() {
			ref, ok := dir.Referee("r1")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(ref.Name, convey.ShouldEqual, "Ref One")
		})
	})
}

func TestClearReceipt(t *testing.T) {
	convey.Convey("Given a receipt for two archived events", t, func() {
		events := []model.Event{
			{ID: "e1", Date: model.Epoch(100), Matches: []model.Match{{ID: "m1", HomeTeamID: "t1", AwayTeamID: "t2"}}},
			{ID: "e2", Date: model.Epoch(200)},
		}
		r, err := model.NewClearReceipt("b1", 3, events)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then every event is named by its fingerprint", func() {
			convey.So(r.BatchID, convey.ShouldEqual, "b1")
			convey.So(r.RecordCount, convey.ShouldEqual, 3)
			convey.So(r.Events, convey.ShouldHaveLength, 2)
			fp, err := model.EventFingerprint(events[0])
			convey.So(err, convey.ShouldBeNil)
			convey.So(r.Events["e1"], convey.ShouldEqual, fp)
		})

		convey.Convey("Then a card added to an event changes its fingerprint", func() {
			edited := events[0].Clone()
			edited.Matches[0].Cards = append(edited.Matches[0].Cards, model.Card{MemberID: "p1", CardType: model.CardRed})
			fp, err := model.EventFingerprint(edited)
			convey.So(err, convey.ShouldBeNil)
			convey.So(fp, convey.ShouldNotEqual, r.Events["e1"])
		})
	})
}
