// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

// Match statuses.
const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

// Side identifies which team of a match a card or attendee belongs to.
type Side string

// Match sides.
const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Valid reports whether s is home or away.
func (s Side) Valid() bool { return s == SideHome || s == SideAway }

// CardType is the colour of a disciplinary card.
type CardType string

// Card types.
const (
	CardYellow CardType = "yellow"
	CardRed    CardType = "red"
)

// Valid reports whether c is a known card colour.
func (c CardType) Valid() bool { return c == CardYellow || c == CardRed }

// Timestamp is an event date in epoch seconds as delivered by clients.
// Decoding never fails: a missing or non-numeric value leaves Valid false so
// one malformed event cannot poison a whole event list.
type Timestamp struct {
	Seconds int64
	Valid   bool
	Raw     string
}

// Epoch returns a valid Timestamp for sec.
func Epoch(sec int64) Timestamp { return Timestamp{Seconds: sec, Valid: true} }

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time { return time.Unix(t.Seconds, 0).UTC() }

// UnmarshalJSON accepts numbers and numeric strings.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	// int64(f) is undefined past ±2^63
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1<<63 {
		*t = Timestamp{Raw: s}
		return nil
	}
	*t = Timestamp{Seconds: int64(f), Valid: true}
	return nil
}

// MarshalJSON writes the epoch as a number, the raw text for invalid
// values and null when absent.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.Valid:
		return []byte(strconv.FormatInt(t.Seconds, 10)), nil
	case t.Raw != "":
		return json.Marshal(t.Raw)
	default:
		return []byte("null"), nil
	}
}

// Event is a match day: a dated container of matches.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        Timestamp `json:"date"`
	Description string    `json:"description,omitempty"`
	Matches     []Match   `json:"matches"`
}

// Score is the final or running score of a match.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Match is one fixture inside an event.
type Match struct {
	ID            string      `json:"id"`
	HomeTeamID    string      `json:"homeTeamId"`
	AwayTeamID    string      `json:"awayTeamId"`
	Time          *int64      `json:"time,omitempty"`
	Field         string      `json:"field,omitempty"`
	Status        MatchStatus `json:"status"`
	Score         *Score      `json:"score,omitempty"`
	RefereeID     string      `json:"refereeId,omitempty"`
	Cards         []Card      `json:"cards,omitempty"`
	HomeAttendees []string    `json:"homeAttendees,omitempty"`
	AwayAttendees []string    `json:"awayAttendees,omitempty"`
}

// TeamFor returns the team id playing on side.
func (m Match) TeamFor(side Side) string {
	if side == SideAway {
		return m.AwayTeamID
	}
	return m.HomeTeamID
}

// Attendees returns the attendee list of side.
func (m Match) Attendees(side Side) []string {
	if side == SideAway {
		return m.AwayAttendees
	}
	return m.HomeAttendees
}

// IsPresent reports whether memberID is marked present on side.
func (m Match) IsPresent(side Side, memberID string) bool {
	for _, id := range m.Attendees(side) {
		if id == memberID {
			return true
		}
	}
	return false
}

// SetPresent marks memberID present or absent on side and reports whether
// the attendee list changed.
func (m *Match) SetPresent(side Side, memberID string, present bool) bool {
	list := m.Attendees(side)
	if present == m.IsPresent(side, memberID) {
		return false
	}
	if present {
		list = append(append([]string(nil), list...), memberID)
	} else {
		kept := make([]string, 0, len(list))
		for _, id := range list {
			if id != memberID {
				kept = append(kept, id)
			}
		}
		list = kept
	}
	if side == SideAway {
		m.AwayAttendees = list
	} else {
		m.HomeAttendees = list
	}
	return true
}

// Card is an in-match disciplinary action. It only exists inside a match of
// the live season.
type Card struct {
	MemberID   string   `json:"memberId"`
	PlayerName string   `json:"playerName,omitempty"`
	TeamType   Side     `json:"teamType"`
	CardType   CardType `json:"cardType"`
	Minute     *int     `json:"minute,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Clone returns a deep copy of e.
func (e Event) Clone() Event {
	out := e
	if e.Matches != nil {
		out.Matches = make([]Match, len(e.Matches))
		for i, m := range e.Matches {
			out.Matches[i] = m.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Match) Clone() Match {
	out := m
	if m.Time != nil {
		t := *m.Time
		out.Time = &t
	}
	if m.Score != nil {
		s := *m.Score
		out.Score = &s
	}
	if m.Cards != nil {
		out.Cards = make([]Card, len(m.Cards))
		for i, c := range m.Cards {
			if c.Minute != nil {
				v := *c.Minute
				c.Minute = &v
			}
			out.Cards[i] = c
		}
	}
	out.HomeAttendees = append([]string(nil), m.HomeAttendees...)
	out.AwayAttendees = append([]string(nil), m.AwayAttendees...)
	return out
}
