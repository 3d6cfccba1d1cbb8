package model

import "time"

// CardRecord is a live card enriched with roster, event, match and referee
// context.
type CardRecord struct {
	ID          string   `json:"id"`
	MemberID    string   `json:"memberId"`
	PlayerName  string   `json:"playerName"`
	TeamID      string   `json:"teamId"`
	TeamName    string   `json:"teamName"`
	Division    string   `json:"division,omitempty"`
	CardType    CardType `json:"cardType"`
	Minute      *int     `json:"minute,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	EventID     string   `json:"eventId"`
	EventName   string   `json:"eventName"`
	EventDate   int64    `json:"eventDate"`
	MatchID     string   `json:"matchId"`
	CardIndex   int      `json:"cardIndex"`
	RefereeID   string   `json:"refereeId,omitempty"`
	RefereeName string   `json:"refereeName,omitempty"`
	Season      string   `json:"season"`
}

// TriggerKind discriminates suspension triggers.
type TriggerKind string

// Trigger kinds.
const (
	TriggerRed                TriggerKind = "red"
	TriggerYellowAccumulation TriggerKind = "yellow_accumulation"
)

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool {
	return k == TriggerRed || k == TriggerYellowAccumulation
}

// Trigger is a reason a member may be suspended: one red card, or a
// yellow-card accumulation treated as a red-card equivalent.
type Trigger struct {
	Kind         TriggerKind `json:"kind"`
	MemberID     string      `json:"memberId"`
	PlayerName   string      `json:"playerName,omitempty"`
	TeamID       string      `json:"teamId,omitempty"`
	Source       string      `json:"source"`
	Count        int         `json:"count"`
	CardIDs      []string    `json:"cardIds"`
	IncidentDate int64       `json:"incidentDate"`
	Reason       string      `json:"reason,omitempty"`
}

// SuspensionState is the persisted state of a suspension.
type SuspensionState string

// Suspension states.
const (
	SuspensionActive SuspensionState = "active"
	SuspensionServed SuspensionState = "served"
)

// Suspension restricts a member for a number of events.
type Suspension struct {
	ID               string          `json:"id"`
	MemberID         string          `json:"memberId"`
	PlayerName       string          `json:"playerName,omitempty"`
	Trigger          TriggerKind     `json:"trigger"`
	Source           string          `json:"source"`
	SuspensionEvents int             `json:"suspensionEvents"`
	EventsRemaining  int             `json:"eventsRemaining"`
	Status           SuspensionState `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	ServedAt         *time.Time      `json:"servedAt,omitempty"`
}

// IsActive reports whether the suspension still restricts the member.
func (s Suspension) IsActive() bool {
	return s.Status == SuspensionActive && s.EventsRemaining > 0
}

// PendingStatus is the admin-facing state of a trigger.
type PendingStatus string

// Pending statuses.
const (
	StatusPending PendingStatus = "pending"
	StatusActive  PendingStatus = "active"
	StatusServed  PendingStatus = "served"
)

// PendingSuspension pairs a trigger with the suspension assigned for it, if
// any.
type PendingSuspension struct {
	Trigger    Trigger       `json:"trigger"`
	Suspension *Suspension   `json:"suspension,omitempty"`
	Status     PendingStatus `json:"status"`
}

// SuspensionStatus aggregates every active suspension of a member.
type SuspensionStatus struct {
	MemberID             string       `json:"memberId"`
	IsSuspended          bool         `json:"isSuspended"`
	TotalEventsRemaining int          `json:"totalEventsRemaining"`
	Suspensions          []Suspension `json:"suspensions"`
}

// NewSuspensionStatus sums the remaining events of the active suspensions
// in list.
func NewSuspensionStatus(memberID string, list []Suspension) SuspensionStatus {
	st := SuspensionStatus{MemberID: memberID, Suspensions: []Suspension{}}
	for _, s := range list {
		if s.MemberID != memberID || !s.IsActive() {
			continue
		}
		st.Suspensions = append(st.Suspensions, s)
		st.TotalEventsRemaining += s.EventsRemaining
	}
	st.IsSuspended = st.TotalEventsRemaining > 0
	return st
}

// DisciplinaryRecord is a permanent card entry, independent of any season's
// live data.
type DisciplinaryRecord struct {
	ID               string    `json:"id"`
	BatchID          string    `json:"batchId"`
	MemberID         string    `json:"memberId"`
	PlayerName       string    `json:"playerName"`
	TeamID           string    `json:"teamId"`
	CardType         CardType  `json:"cardType"`
	Reason           string    `json:"reason,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	IncidentDate     int64     `json:"incidentDate"`
	SuspensionEvents int       `json:"suspensionEvents"`
	SuspensionServed bool      `json:"suspensionServed"`
	EventID          string    `json:"eventId"`
	MatchID          string    `json:"matchId"`
	Season           string    `json:"season"`
	CreatedAt        time.Time `json:"createdAt"`
}
