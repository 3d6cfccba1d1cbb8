package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/sideline/internal/domain/model"
)

// Layouts of fixture dates and kickoff times, in the league timezone.
const (
	DateLayout    = "2006-01-02"
	KickoffLayout = "15:04"
)

// Fixture is the YAML shape of a seeded league.
type Fixture struct {
	Teams    []TeamSpec    `yaml:"teams"`
	Referees []RefereeSpec `yaml:"referees,omitempty"`
	Events   []EventSpec   `yaml:"events"`
}

// TeamSpec is a roster.
type TeamSpec struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Division string       `yaml:"division,omitempty"`
	Color    string       `yaml:"color,omitempty"`
	Members  []MemberSpec `yaml:"members"`
}

// MemberSpec is a rostered player.
type MemberSpec struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Number string `yaml:"number,omitempty"`
}

// RefereeSpec is a match official.
type RefereeSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EventSpec is a match day.
type EventSpec struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Date        string      `yaml:"date"`
	Description string      `yaml:"description,omitempty"`
	Matches     []MatchSpec `yaml:"matches"`
}

// MatchSpec is one fixture of an event.
type MatchSpec struct {
	ID      string     `yaml:"id"`
	Home    string     `yaml:"home"`
	Away    string     `yaml:"away"`
	Kickoff string     `yaml:"kickoff,omitempty"`
	Field   string     `yaml:"field,omitempty"`
	Status  string     `yaml:"status,omitempty"`
	Referee string     `yaml:"referee,omitempty"`
	Score   *ScoreSpec `yaml:"score,omitempty"`
	Cards   []CardSpec `yaml:"cards,omitempty"`
}

// ScoreSpec is a final score.
type ScoreSpec struct {
	Home int `yaml:"home"`
	Away int `yaml:"away"`
}

// CardSpec is a card shown in a match.
type CardSpec struct {
	Member string `yaml:"member"`
	Side   string `yaml:"side"`
	Type   string `yaml:"type"`
	Minute *int   `yaml:"minute,omitempty"`
	Reason string `yaml:"reason,omitempty"`
	Notes  string `yaml:"notes,omitempty"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return Fixture{}, fmt.Errorf("%w: %s: %w", ErrInvalidFixture, path, err)
	}
	return fx, nil
}

// WriteFixture writes fx as YAML to path.
func WriteFixture(path string, fx Fixture) error {
	b, err := yaml.Marshal(fx)
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, b, filePermission); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// League is a fixture resolved into domain values.
type League struct {
	Teams    []model.Team
	Referees []model.Referee
	Events   []model.Event
}

// Resolve validates fx and converts it to domain values. Dates are read in
// loc; nil means UTC.
func (fx Fixture) Resolve(loc *time.Location) (League, error) {
	if loc == nil {
		loc = time.UTC
	}
	var out League
	rosters := make(map[string]map[string]string, len(fx.Teams))
	for _, ts := range fx.Teams {
		if strings.TrimSpace(ts.ID) == "" {
			return League{}, fmt.Errorf("%w: team without id", ErrInvalidFixture)
		}
		if _, dup := rosters[ts.ID]; dup {
			return League{}, fmt.Errorf("%w: duplicate team %s", ErrInvalidFixture, ts.ID)
		}
		names := make(map[string]string, len(ts.Members))
		t := model.Team{ID: ts.ID, Name: ts.Name, Category: ts.Division, Color: ts.Color}
		for _, m := range ts.Members {
			if strings.TrimSpace(m.ID) == "" {
				return League{}, fmt.Errorf("%w: team %s has a member without id", ErrInvalidFixture, ts.ID)
			}
			names[m.ID] = m.Name
			t.Members = append(t.Members, model.Member{ID: m.ID, Name: m.Name, Number: m.Number})
		}
		rosters[ts.ID] = names
		out.Teams = append(out.Teams, t)
	}

	refs := make(map[string]bool, len(fx.Referees))
	for _, r := range fx.Referees {
		refs[r.ID] = true
		out.Referees = append(out.Referees, model.Referee{ID: r.ID, Name: r.Name})
	}

	for _, es := range fx.Events {
		ev, err := es.resolve(loc, rosters, refs)
		if err != nil {
			return League{}, err
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

func (es EventSpec) resolve(loc *time.Location, rosters map[string]map[string]string, refs map[string]bool) (model.Event, error) {
	if strings.TrimSpace(es.ID) == "" {
		return model.Event{}, fmt.Errorf("%w: event without id", ErrInvalidFixture)
	}
	day, err := time.ParseInLocation(DateLayout, es.Date, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: event %s date: %w", ErrInvalidFixture, es.ID, err)
	}
	ev := model.Event{ID: es.ID, Name: es.Name, Date: model.Epoch(day.Unix()), Description: es.Description, Matches: []model.Match{}}

	for _, ms := range es.Matches {
		where := es.ID + "/" + ms.ID
		home, okHome := rosters[ms.Home]
		away, okAway := rosters[ms.Away]
		if ms.ID == "" || !okHome || !okAway {
			return model.Event{}, fmt.Errorf("%w: match %s needs an id and two known teams", ErrInvalidFixture, where)
		}
		if ms.Referee != "" && !refs[ms.Referee] {
			return model.Event{}, fmt.Errorf("%w: match %s: unknown referee %s", ErrInvalidFixture, where, ms.Referee)
		}
		m := model.Match{
			ID:         ms.ID,
			HomeTeamID: ms.Home,
			AwayTeamID: ms.Away,
			Field:      ms.Field,
			Status:     model.MatchStatus(ms.Status),
			RefereeID:  ms.Referee,
		}
		if m.Status == "" {
			m.Status = model.MatchScheduled
		}
		if ms.Kickoff != "" {
			k, err := time.ParseInLocation(DateLayout+" "+KickoffLayout, es.Date+" "+ms.Kickoff, loc)
			if err != nil {
				return model.Event{}, fmt.Errorf("%w: match %s kickoff: %w", ErrInvalidFixture, where, err)
			}
			at := k.Unix()
			m.Time = &at
		}
		if ms.Score != nil {
			m.Score = &model.Score{Home: ms.Score.Home, Away: ms.Score.Away}
		}
		for _, cs := range ms.Cards {
			side := model.Side(cs.Side)
			typ := model.CardType(cs.Type)
			if !side.Valid() || !typ.Valid() {
				return model.Event{}, fmt.Errorf("%w: match %s: card %q/%q", ErrInvalidFixture, where, cs.Side, cs.Type)
			}
			roster := home
			if side == model.SideAway {
				roster = away
			}
			name, ok := roster[cs.Member]
			if !ok {
				return model.Event{}, fmt.Errorf("%w: match %s: %s is not rostered on the %s team", ErrInvalidFixture, where, cs.Member, side)
			}
			m.Cards = append(m.Cards, model.Card{
				MemberID:   cs.Member,
				PlayerName: name,
				TeamType:   side,
				CardType:   typ,
				Minute:     cs.Minute,
				Reason:     cs.Reason,
				Notes:      cs.Notes,
			})
		}
		ev.Matches = append(ev.Matches, m)
	}
	return ev, nil
}
