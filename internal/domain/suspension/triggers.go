package suspension

import (
	"fmt"

	"github.com/okian/sideline/internal/domain/model"
)

// RedSource identifies the trigger of one red card.
func RedSource(eventID, matchID string, cardIndex int) string {
	return fmt.Sprintf("red:%s:%s:%d", eventID, matchID, cardIndex)
}

// YellowSource identifies the yellow accumulation trigger of a member in a season.
func YellowSource(seasonLabel, memberID string) string {
	return fmt.Sprintf("yellow:%s:%s", seasonLabel, memberID)
}

// Triggers derives suspension triggers from live-season card records in
// record order. A yellow accumulation trigger is placed where the member
// reached the threshold and counts every yellow of the season.
func (e *Engine) Triggers(records []model.CardRecord) []model.Trigger {
	out := make([]model.Trigger, 0)
	yellowAt := map[string]int{}
	yellowCards := map[string][]model.CardRecord{}

	for _, r := range records {
		if r.MemberID == "" {
			continue
		}
		switch r.CardType {
		case model.CardRed:
			out = append(out, model.Trigger{
				Kind:         model.TriggerRed,
				MemberID:     r.MemberID,
				PlayerName:   r.PlayerName,
				TeamID:       r.TeamID,
				Source:       RedSource(r.EventID, r.MatchID, r.CardIndex),
				Count:        1,
				CardIDs:      []string{r.ID},
				IncidentDate: r.EventDate,
				Reason:       r.Reason,
			})
		case model.CardYellow:
			key := r.Season + "\x00" + r.MemberID
			yellowCards[key] = append(yellowCards[key], r)
			if len(yellowCards[key]) == e.yellowThreshold {
				yellowAt[key] = len(out)
				out = append(out, model.Trigger{
					Kind:         model.TriggerYellowAccumulation,
					MemberID:     r.MemberID,
					PlayerName:   r.PlayerName,
					TeamID:       r.TeamID,
					Source:       YellowSource(r.Season, r.MemberID),
					IncidentDate: r.EventDate,
					Reason:       fmt.Sprintf("%d yellow cards", e.yellowThreshold),
				})
			}
		}
	}

	for key, i := range yellowAt {
		cards := yellowCards[key]
		ids := make([]string, len(cards))
		for j, c := range cards {
			ids[j] = c.ID
		}
		out[i].Count = len(cards)
		out[i].CardIDs = ids
		out[i].Reason = fmt.Sprintf("%d yellow cards", len(cards))
	}
	return out
}

// Pending pairs every trigger with its suspension. An active suspension
// wins over served ones for the same source; among served ones the last
// created wins.
func (e *Engine) Pending(records []model.CardRecord, existing []model.Suspension) []model.PendingSuspension {
	type key struct{ member, source string }
	best := map[key]model.Suspension{}
	for _, s := range existing {
		k := key{s.MemberID, s.Source}
		cur, ok := best[k]
		switch {
		case !ok:
			best[k] = s
		case cur.Status != model.SuspensionActive && s.Status == model.SuspensionActive:
			best[k] = s
		case cur.Status != model.SuspensionActive && !s.CreatedAt.Before(cur.CreatedAt):
			best[k] = s
		}
	}

	triggers := e.Triggers(records)
	out := make([]model.PendingSuspension, 0, len(triggers))
	for _, t := range triggers {
		p := model.PendingSuspension{Trigger: t, Status: model.StatusPending}
		if s, ok := best[key{t.MemberID, t.Source}]; ok {
			p.Suspension = &s
			if s.Status == model.SuspensionActive {
				p.Status = model.StatusActive
			} else {
				p.Status = model.StatusServed
			}
		}
		out = append(out, p)
	}
	return out
}
