package cards

import (
	"time"

	"github.com/okian/sideline/internal/domain/season"
)

// Filter decides which events take part in a collection and which season
// label their cards carry.
type Filter interface {
	Include(eventDate int64) (label string, ok bool)
}

type currentSeason struct {
	window season.Season
}

// CurrentSeason keeps events inside the live season window at now. Cards are
// labelled with the live season, so a January card belongs to last Fall.
func CurrentSeason(cal *season.Calendar, now time.Time) Filter {
	return currentSeason{window: cal.Current(now)}
}

func (f currentSeason) Include(eventDate int64) (string, bool) {
	if !f.window.Contains(time.Unix(eventDate, 0)) {
		return "", false
	}
	return f.window.Label(), true
}

type seasonLabel struct {
	cal   *season.Calendar
	label string
}

// SeasonLabel keeps events whose calendar-half label equals label.
func SeasonLabel(cal *season.Calendar, label string) Filter {
	return seasonLabel{cal: cal, label: label}
}

func (f seasonLabel) Include(eventDate int64) (string, bool) {
	got := f.cal.ClassifyEvent(eventDate)
	return got, got == f.label
}

type allSeasons struct {
	cal *season.Calendar
}

// AllSeasons keeps every event with a valid date.
func AllSeasons(cal *season.Calendar) Filter {
	return allSeasons{cal: cal}
}

func (f allSeasons) Include(eventDate int64) (string, bool) {
	return f.cal.ClassifyEvent(eventDate), true
}
