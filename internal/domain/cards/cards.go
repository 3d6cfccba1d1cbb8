// Package cards flattens the event, match and card tree into enriched card
// records and rolls them up for statistics.
package cards

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

const (
	unspecifiedReason = "Unspecified"
	unassignedReferee = "Unassigned"
	unknownTeam       = "Unknown team"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// Aggregator walks event data. It holds no per-call state and is safe for
// concurrent use.
type Aggregator struct {
	cal *season.Calendar
	log logger.Logger
}

// New returns an Aggregator bucketing dates in cal's location.
func New(cal *season.Calendar, opts ...Option) *Aggregator {
	if cal == nil {
		cal = season.NewCalendar(nil)
	}
	a := &Aggregator{cal: cal, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect returns one record per card of every event the filter keeps, in
// event, match and card order. Events without a usable date are skipped.
func (a *Aggregator) Collect(ctx context.Context, events []model.Event, dir *model.Directory, filter Filter) []model.CardRecord {
	out := make([]model.CardRecord, 0)
	counts := map[model.CardType]int{}
	for _, ev := range events {
		if !ev.Date.Valid {
			a.log.Warn(ctx, "skipping event with invalid date",
				logger.String("eventId", ev.ID),
				logger.String("eventName", ev.Name),
				logger.String("date", ev.Date.Raw),
			)
			metrics.RecordEventSkipped("invalid_date")
			continue
		}
		label, ok := filter.Include(ev.Date.Seconds)
		if !ok {
			continue
		}
		for _, m := range ev.Matches {
			for i, c := range m.Cards {
				out = append(out, a.enrich(ev, m, i, c, label, dir))
				counts[c.CardType]++
			}
		}
	}
	for t, n := range counts {
		metrics.RecordCardsCollected(string(t), n)
	}
	return out
}

func (a *Aggregator) enrich(ev model.Event, m model.Match, idx int, c model.Card, label string, dir *model.Directory) model.CardRecord {
	rec := model.CardRecord{
		ID:         CardID(ev.ID, m.ID, idx),
		MemberID:   c.MemberID,
		PlayerName: c.PlayerName,
		CardType:   c.CardType,
		Minute:     c.Minute,
		Reason:     c.Reason,
		Notes:      c.Notes,
		EventID:    ev.ID,
		EventName:  ev.Name,
		EventDate:  ev.Date.Seconds,
		MatchID:    m.ID,
		CardIndex:  idx,
		RefereeID:  m.RefereeID,
		Season:     label,
	}

	// Team context follows the side the card was given on.
	teamID := ""
	if c.TeamType.Valid() {
		teamID = m.TeamFor(c.TeamType)
	}

	// Name: API value, then the two match rosters, then every roster.
	found := false
	for _, id := range []string{m.HomeTeamID, m.AwayTeamID} {
		t, ok := dir.Team(id)
		if !ok {
			continue
		}
		if mem, ok := t.Member(c.MemberID); ok {
			rec.PlayerName = mem.Name
			if teamID == "" {
				teamID = t.ID
			}
			found = true
			break
		}
	}
	if !found {
		if _, mem, ok := dir.FindMember(c.MemberID); ok {
			rec.PlayerName = mem.Name
		}
	}

	rec.TeamID = teamID
	if t, ok := dir.Team(teamID); ok {
		rec.TeamName = t.Name
		rec.Division = t.Category
	}
	if r, ok := dir.Referee(m.RefereeID); ok {
		rec.RefereeName = r.Name
	}
	return rec
}

// CardID identifies a card by its position in the live data.
func CardID(eventID, matchID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", eventID, matchID, index)
}

// Stats rolls records up by date, team, reason and referee. Each roll-up is
// sorted by descending total, ties in first-seen order.
func (a *Aggregator) Stats(records []model.CardRecord) model.SeasonStats {
	byDate := newRollups()
	byTeam := newRollups()
	byReason := newRollups()
	byReferee := newRollups()

	st := model.SeasonStats{}
	for _, r := range records {
		switch r.CardType {
		case model.CardYellow:
			st.TotalYellow++
		case model.CardRed:
			st.TotalRed++
		}
		st.TotalCards++

		day := time.Unix(r.EventDate, 0).In(a.cal.Location()).Format(time.DateOnly)
		byDate.add(day, day, "", r.CardType)

		teamLabel := r.TeamName
		if teamLabel == "" {
			teamLabel = unknownTeam
		}
		byTeam.add(r.TeamID+"|"+r.Division, teamLabel, r.Division, r.CardType)

		reason := r.Reason
		if reason == "" {
			reason = unspecifiedReason
		}
		byReason.add(reason, reason, "", r.CardType)

		refLabel := r.RefereeName
		if refLabel == "" {
			refLabel = unassignedReferee
		}
		byReferee.add(r.RefereeID, refLabel, "", r.CardType)
	}

	st.ByDate = byDate.sorted()
	st.ByTeam = byTeam.sorted()
	st.ByReason = byReason.sorted()
	st.ByReferee = byReferee.sorted()
	return st
}

type rollups struct {
	index map[string]int
	list  []model.Rollup
}

func newRollups() *rollups {
	return &rollups{index: make(map[string]int)}
}

func (r *rollups) add(key, label, division string, t model.CardType) {
	i, ok := r.index[key]
	if !ok {
		i = len(r.list)
		r.index[key] = i
		r.list = append(r.list, model.Rollup{Key: key, Label: label, Division: division})
	}
	r.list[i].Add(t)
}

func (r *rollups) sorted() []model.Rollup {
	out := append([]model.Rollup{}, r.list...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
