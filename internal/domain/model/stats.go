package model

// Rollup counts cards grouped under one key.
type Rollup struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Division string `json:"division,omitempty"`
	Yellow   int    `json:"yellow"`
	Red      int    `json:"red"`
	Total    int    `json:"total"`
}

// Add counts one card of type t.
func (r *Rollup) Add(t CardType) {
	switch t {
	case CardYellow:
		r.Yellow++
	case CardRed:
		r.Red++
	}
	r.Total++
}

// SeasonStats holds the card roll-ups of a set of card records.
type SeasonStats struct {
	TotalCards  int      `json:"totalCards"`
	TotalYellow int      `json:"totalYellow"`
	TotalRed    int      `json:"totalRed"`
	ByDate      []Rollup `json:"byDate"`
	ByTeam      []Rollup `json:"byTeam"`
	ByReason    []Rollup `json:"byReason"`
	ByReferee   []Rollup `json:"byReferee"`
}
