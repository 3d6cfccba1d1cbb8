package api

import (
	"context"
	"net/http"

	"github.com/okian/sideline/internal/domain/model"
)

// AttendanceDependencies covers the check-in gate and optimistic toggles.
type AttendanceDependencies interface {
	CheckIn(ctx context.Context, req model.AttendanceRequest) (model.Match, error)
	ToggleAttendance(ctx context.Context, req model.AttendanceRequest) (model.Transition, error)
	Transition(id string) (model.Transition, error)
	Notifications() []model.Notification
}

// AttendanceHandler handles attendance requests.
type AttendanceHandler struct {
	deps AttendanceDependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps AttendanceDependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

// HandleCheckIn handles POST /checkins. Suspended members get 409 with the
// remaining event count.
func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.check_in"
	var req model.AttendanceRequest
	if err := decode(r, op, &req); err != nil {
		fail(w, r, err)
		return
	}
	m, err := h.deps.CheckIn(r.Context(), req)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleToggle handles POST /attendance. A still tentative toggle answers
// 202 Accepted.
func (h *AttendanceHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_attendance"
	var req model.AttendanceRequest
	if err := decode(r, op, &req); err != nil {
		fail(w, r, err)
		return
	}
	t, err := h.deps.ToggleAttendance(r.Context(), req)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if t.State == model.TransitionTentative {
		status = http.StatusAccepted
	}
	writeJSON(w, status, t)
}

// HandleTransition handles GET /attendance/{transitionID}.
func (h *AttendanceHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_transition"
	t, err := h.deps.Transition(r.PathValue("transitionID"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleNotifications handles GET /notifications.
func (h *AttendanceHandler) HandleNotifications(w http.ResponseWriter, _ *http.Request) {
	n := h.deps.Notifications()
	if n == nil {
		n = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, n)
}
