package model

// Member is a rostered player.
type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number,omitempty"`
}

// Team is a roster plus the display attributes used by roll-ups.
type Team struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"` // division
	Color    string   `json:"color,omitempty"`
	Members  []Member `json:"members,omitempty"`
}

// Member returns the member with id on this team.
func (t Team) Member(id string) (Member, bool) {
	for _, m := range t.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Referee officiates matches.
type Referee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory is a read-only, indexed view over teams and referees.
type Directory struct {
	teams    []Team
	teamByID map[string]int
	refByID  map[string]Referee
}

// NewDirectory indexes teams and referees. Teams keep their input order so
// cross-team searches are deterministic.
func NewDirectory(teams []Team, referees []Referee) *Directory {
	d := &Directory{
		teams:    teams,
		teamByID: make(map[string]int, len(teams)),
		refByID:  make(map[string]Referee, len(referees)),
	}
	for i, t := range teams {
		if _, dup := d.teamByID[t.ID]; !dup {
			d.teamByID[t.ID] = i
		}
	}
	for _, r := range referees {
		d.refByID[r.ID] = r
	}
	return d
}

// Teams returns all teams in input order.
func (d *Directory) Teams() []Team {
	if d == nil {
		return nil
	}
	return d.teams
}

// Team looks up a team by id.
func (d *Directory) Team(id string) (Team, bool) {
	if d == nil {
		return Team{}, false
	}
	i, ok := d.teamByID[id]
	if !ok {
		return Team{}, false
	}
	return d.teams[i], true
}

// Referee looks up a referee by id.
func (d *Directory) Referee(id string) (Referee, bool) {
	if d == nil {
		return Referee{}, false
	}
	r, ok := d.refByID[id]
	return r, ok
}

// FindMember searches every roster for memberID, first team wins.
func (d *Directory) FindMember(memberID string) (Team, Member, bool) {
	if d == nil {
		return Team{}, Member{}, false
	}
	for _, t := range d.teams {
		if m, ok := t.Member(memberID); ok {
			return t, m, true
		}
	}
	return Team{}, Member{}, false
}

// MemberIDs returns the member ids of the given teams, deduplicated.
func (d *Directory) MemberIDs(teamIDs ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range teamIDs {
		t, ok := d.Team(id)
		if !ok {
			continue
		}
		for _, m := range t.Members {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m.ID)
		}
	}
	return out
}
