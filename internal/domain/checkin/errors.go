package checkin

import (
	"errors"
	"fmt"

	"github.com/okian/sideline/internal/domain/model"
)

// Sentinel kinds for check-in errors.
var (
	ErrSuspended         = errors.New("member is suspended")
	ErrInvalidRequest    = errors.New("invalid attendance request")
	ErrNotRostered       = errors.New("member is not on the team roster")
	ErrUnknownTransition = errors.New("unknown attendance transition")
)

// SuspendedError rejects a check-in. It wraps ErrSuspended.
type SuspendedError struct {
	MemberID        string
	Triggers        []model.TriggerKind
	EventsRemaining int
}

func (e *SuspendedError) Error() string {
	return fmt.Sprintf("member %s is suspended for %d more event(s)", e.MemberID, e.EventsRemaining)
}

func (e *SuspendedError) Unwrap() error { return ErrSuspended }

func suspendedError(st model.SuspensionStatus) *SuspendedError {
	e := &SuspendedError{MemberID: st.MemberID, EventsRemaining: st.TotalEventsRemaining}
	seen := map[model.TriggerKind]bool{}
	for _, s := range st.Suspensions {
		if !seen[s.Trigger] {
			seen[s.Trigger] = true
			e.Triggers = append(e.Triggers, s.Trigger)
		}
	}
	return e
}
