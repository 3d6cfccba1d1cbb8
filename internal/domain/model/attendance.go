package model

import "time"

// AttendanceRequest asks to mark a rostered member present or absent for one
// side of a match.
type AttendanceRequest struct {
	EventID  string `json:"eventId"`
	MatchID  string `json:"matchId"`
	Side     Side   `json:"side"`
	MemberID string `json:"memberId"`
	Present  bool   `json:"present"`
}

// AttendanceCheck is the background validation job for an optimistic
// attendance toggle.
type AttendanceCheck struct {
	TransitionID string
	Request      AttendanceRequest
}

// TransitionState is the phase of an optimistic attendance toggle.
type TransitionState string

// Transition states.
const (
	TransitionTentative TransitionState = "tentative"
	TransitionConfirmed TransitionState = "confirmed"
	TransitionReverted  TransitionState = "reverted"
)

// Transition tracks one optimistic attendance toggle until its validation
// resolves it.
type Transition struct {
	ID         string            `json:"id"`
	Request    AttendanceRequest `json:"request"`
	State      TransitionState   `json:"state"`
	Reason     string            `json:"reason,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ResolvedAt *time.Time        `json:"resolvedAt,omitempty"`
}

// Notification tells an admin that an attendance toggle was reverted.
type Notification struct {
	ID              string    `json:"id"`
	TransitionID    string    `json:"transitionId"`
	MemberID        string    `json:"memberId"`
	EventID         string    `json:"eventId"`
	MatchID         string    `json:"matchId"`
	Message         string    `json:"message"`
	EventsRemaining int       `json:"eventsRemaining"`
	At              time.Time `json:"at"`
}
