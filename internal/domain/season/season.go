// Package season classifies dates into the league's competitive seasons.
//
// Two rules coexist on purpose. Current (and IsCurrentSeasonEvent) use the
// competitive windows: Spring runs Feb 15 to Jun 30 and Fall runs Aug 1 to
// Dec 31, with Jan 1 to Feb 14 still counting as the previous Fall and July
// still counting as the current Spring. ClassifyEvent labels an event date
// with a plain calendar-half split (Jan-Jun Spring, Jul-Dec Fall). The two
// disagree on some dates, e.g. Feb 14.
package season

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimezone is the league's home timezone.
const DefaultTimezone = "America/Los_Angeles"

// Type is the half-year a season covers.
type Type string

// Season types.
const (
	Spring Type = "Spring"
	Fall   Type = "Fall"
)

// Season is a derived competitive period. It is never persisted.
// Start is inclusive, End is exclusive.
type Season struct {
	Type  Type      `json:"type"`
	Year  int       `json:"year"`
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Label formats the season as "{year}-{Type}".
func (s Season) Label() string {
	return strconv.Itoa(s.Year) + "-" + string(s.Type)
}

// Contains reports whether t falls inside the season window.
func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// Calendar classifies dates in a fixed location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar returns a calendar for loc; nil means UTC.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// LoadCalendar resolves an IANA timezone name and returns its calendar.
func LoadCalendar(name string) (*Calendar, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Current returns the competitive season ref belongs to.
func (c *Calendar) Current(ref time.Time) Season {
	t := ref.In(c.loc)
	y, m, d := t.Date()
	switch {
	case m == time.January, m == time.February && d < 15:
		return c.Fall(y - 1)
	case m < time.August:
		// Feb 15 - Jul 31; July is off-season but still reports Spring.
		return c.Spring(y)
	default:
		return c.Fall(y)
	}
}

// Spring returns the Spring window of year.
func (c *Calendar) Spring(year int) Season {
	return Season{
		Type:  Spring,
		Year:  year,
		Start: time.Date(year, time.February, 15, 0, 0, 0, 0, c.loc),
		End:   time.Date(year, time.July, 1, 0, 0, 0, 0, c.loc),
	}
}

// Fall returns the Fall window of year.
func (c *Calendar) Fall(year int) Season {
	return Season{
		Type:  Fall,
		Year:  year,
		Start: time.Date(year, time.August, 1, 0, 0, 0, 0, c.loc),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, c.loc),
	}
}

// IsCurrentSeasonEvent reports whether an event dated eventDate (epoch
// seconds) lies inside the season that is current at now.
func (c *Calendar) IsCurrentSeasonEvent(eventDate int64, now time.Time) bool {
	return c.Current(now).Contains(time.Unix(eventDate, 0))
}

// ClassifyEvent labels an event date with the calendar-half rule.
func (c *Calendar) ClassifyEvent(eventDate int64) string {
	t := time.Unix(eventDate, 0).In(c.loc)
	typ := Fall
	if t.Month() <= time.June {
		typ = Spring
	}
	return strconv.Itoa(t.Year()) + "-" + string(typ)
}

// ForLabel returns the competitive window named by a "{year}-{Type}" label.
func (c *Calendar) ForLabel(label string) (Season, error) {
	typ, year, err := ParseLabel(label)
	if err != nil {
		return Season{}, err
	}
	if typ == Spring {
		return c.Spring(year), nil
	}
	return c.Fall(year), nil
}

// ParseLabel splits a "{year}-{Type}" label. The type is case-insensitive.
func ParseLabel(label string) (Type, int, error) {
	yearPart, typePart, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	switch strings.ToLower(typePart) {
	case "spring":
		return Spring, year, nil
	case "fall":
		return Fall, year, nil
	default:
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
}
