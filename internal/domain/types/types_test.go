package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
	types "github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeasonView(t *testing.T) {
	Convey("Given the Fall 2025 window", t, func() {
		cal := season.NewCalendar(time.UTC)
		v := types.NewSeasonView(cal.Fall(2025))

		Convey("Then the view carries label and bounds", func() {
			So(v.Label, ShouldEqual, "2025-Fall")
			So(v.Type, ShouldEqual, season.Fall)
			So(v.StartDate.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(v.EndDate.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})
}

func TestApplySuspensionDecoding(t *testing.T) {
	Convey("Given an apply request body", t, func() {
		body := `{"memberId":"p1","suspensionEvents":2,"trigger":{"kind":"yellow_accumulation","memberId":"p1","source":"yellow:2025-Fall:p1","count":3}}`

		var req types.ApplySuspension
		err := json.Unmarshal([]byte(body), &req)

		Convey("Then it decodes into the trigger union", func() {
			So(err, ShouldBeNil)
			So(req.MemberID, ShouldEqual, "p1")
			So(req.SuspensionEvents, ShouldEqual, 2)
			So(req.Trigger.Kind, ShouldEqual, model.TriggerYellowAccumulation)
			So(req.Trigger.Kind.Valid(), ShouldBeTrue)
			So(req.Trigger.Count, ShouldEqual, 3)
		})
	})
}
