package seed

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Constants for card generation.
const (
	yellowChance     = 0.35 // per player slot and match
	redChance        = 0.04
	cardSlotsPerTeam = 2
	matchMinutes     = 90
	kickoffHour      = 10
	matchSpacing     = 90 * time.Minute
	daysPerWeek      = 7
	pcgStream        = 0x5eed
)

var (
	teamNames  = []string{"Lions", "Tigers", "Hawks", "Wolves", "Sharks", "Bears", "Foxes", "Eagles", "Bulls", "Rams"}
	colors     = []string{"red", "blue", "green", "yellow", "black", "white", "orange", "purple"}
	firstNames = []string{"Ana", "Bo", "Cy", "Dani", "Eli", "Fran", "Gus", "Hana", "Ivo", "Jo", "Kai", "Lia", "Max", "Nia", "Oli", "Pia"}
	lastNames  = []string{"Silva", "Park", "Okafor", "Novak", "Reyes", "Schmidt", "Tanaka", "Moreau", "Kowalski", "Haddad"}
	yellowWhy  = []string{"Dissent", "Unsporting behaviour", "Reckless tackle", "Delaying restart", "Persistent infringement"}
	redWhy     = []string{"Serious foul play", "Violent conduct", "Denying a goal-scoring opportunity", "Second caution"}
	refNames   = []string{"M. Oliver", "S. Frappart", "A. Taylor", "K. Nakamura", "P. Ruiz", "L. Weber"}
)

// Generate builds a deterministic league from cfg: the same seed and sizes
// always yield the same fixture. Every event but the last is completed.
func Generate(cfg Config) Fixture {
	r := rand.New(rand.NewPCG(cfg.Seed, pcgStream))
	first := cfg.FirstEvent
	if first.IsZero() {
		first = time.Now()
	}

	var fx Fixture
	for i := range cfg.Teams {
		t := TeamSpec{
			ID:       fmt.Sprintf("team-%02d", i+1),
			Name:     teamNames[i%len(teamNames)],
			Division: string(rune('A' + i%2)),
			Color:    colors[i%len(colors)],
		}
		if i >= len(teamNames) {
			t.Name = fmt.Sprintf("%s %d", t.Name, i/len(teamNames)+1)
		}
		for j := range cfg.PlayersPerTeam {
			t.Members = append(t.Members, MemberSpec{
				ID:     fmt.Sprintf("%s-p%02d", t.ID, j+1),
				Name:   firstNames[r.IntN(len(firstNames))] + " " + lastNames[r.IntN(len(lastNames))],
				Number: fmt.Sprint(j + 1),
			})
		}
		fx.Teams = append(fx.Teams, t)
	}
	for i := range cfg.Referees {
		fx.Referees = append(fx.Referees, RefereeSpec{
			ID:   fmt.Sprintf("ref-%02d", i+1),
			Name: refNames[i%len(refNames)],
		})
	}

	for e := range cfg.Events {
		day := first.AddDate(0, 0, e*daysPerWeek)
		ev := EventSpec{
			ID:   fmt.Sprintf("event-%02d", e+1),
			Name: fmt.Sprintf("Week %d", e+1),
			Date: day.Format(DateLayout),
		}
		completed := e < cfg.Events-1
		for k, pair := range pairings(len(fx.Teams), e) {
			home, away := fx.Teams[pair[0]], fx.Teams[pair[1]]
			m := MatchSpec{
				ID:      fmt.Sprintf("%s-m%d", ev.ID, k+1),
				Home:    home.ID,
				Away:    away.ID,
				Kickoff: time.Date(0, 1, 1, kickoffHour, 0, 0, 0, time.UTC).Add(time.Duration(k) * matchSpacing).Format(KickoffLayout),
				Field:   fmt.Sprintf("Field %d", k%2+1),
				Status:  "scheduled",
			}
			if len(fx.Referees) > 0 {
				m.Referee = fx.Referees[(e+k)%len(fx.Referees)].ID
			}
			if completed {
				m.Status = "completed"
				m.Score = &ScoreSpec{Home: r.IntN(5), Away: r.IntN(5)}
				m.Cards = append(cards(r, home, "home"), cards(r, away, "away")...)
			}
			ev.Matches = append(ev.Matches, m)
		}
		fx.Events = append(fx.Events, ev)
	}
	return fx
}

// pairings returns a round-robin round for n teams using the circle method.
// An odd team out sits the round.
func pairings(n, round int) [][2]int {
	if n < 2 {
		return nil
	}
	slots := n
	if slots%2 == 1 {
		slots++
	}
	ring := make([]int, slots)
	for i := range ring {
		ring[i] = i
	}
	rot := round % (slots - 1)
	for range rot {
		last := ring[slots-1]
		copy(ring[2:], ring[1:slots-1])
		ring[1] = last
	}
	var out [][2]int
	for i := range slots / 2 {
		a, b := ring[i], ring[slots-1-i]
		if a >= n || b >= n {
			continue
		}
		if round%2 == 1 {
			a, b = b, a
		}
		out = append(out, [2]int{a, b})
	}
	return out
}

func cards(r *rand.Rand, t TeamSpec, side string) []CardSpec {
	if len(t.Members) == 0 {
		return nil
	}
	var out []CardSpec
	for range cardSlotsPerTeam {
		p := r.Float64()
		if p >= yellowChance+redChance {
			continue
		}
		minute := r.IntN(matchMinutes) + 1
		c := CardSpec{Member: t.Members[r.IntN(len(t.Members))].ID, Side: side, Minute: &minute}
		if p < redChance {
			c.Type, c.Reason = "red", redWhy[r.IntN(len(redWhy))]
		} else {
			c.Type, c.Reason = "yellow", yellowWhy[r.IntN(len(yellowWhy))]
		}
		out = append(out, c)
	}
	return out
}
