package api

import (
	"context"
	"net/http"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// SuspensionDependencies covers the admin suspension workflow and the
// disciplinary history.
type SuspensionDependencies interface {
	ComputePendingSuspendable(ctx context.Context) ([]model.PendingSuspension, string, error)
	YellowThreshold() int
	ApplySuspension(ctx context.Context, memberID string, trigger model.Trigger, events int) (model.Suspension, error)
	MarkSuspensionServed(ctx context.Context, id string) (model.Suspension, error)
	ServeSuspensionEvent(ctx context.Context, id string) (model.Suspension, error)
	GetPlayerSuspensionStatus(ctx context.Context, memberID string) (model.SuspensionStatus, error)
	LoadTeamSuspensions(ctx context.Context, teamIDs ...string) (map[string]model.SuspensionStatus, error)
	MemberHistory(ctx context.Context, memberID string) ([]model.DisciplinaryRecord, error)
	TeamHistory(ctx context.Context, teamID string) ([]model.DisciplinaryRecord, error)
}

// SuspensionsHandler handles suspension requests.
type SuspensionsHandler struct {
	deps SuspensionDependencies
}

// NewSuspensionsHandler creates a new suspensions handler.
func NewSuspensionsHandler(deps SuspensionDependencies) *SuspensionsHandler {
	return &SuspensionsHandler{deps: deps}
}

// HandlePending handles GET /suspensions/pending.
func (h *SuspensionsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	const op = "api.pending_suspensions"
	items, label, err := h.deps.ComputePendingSuspendable(r.Context())
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	if items == nil {
		items = []model.PendingSuspension{}
	}
	writeJSON(w, http.StatusOK, types.PendingList{Season: label, Threshold: h.deps.YellowThreshold(), Items: items})
}

// HandleApply handles POST /suspensions.
func (h *SuspensionsHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	const op = "api.apply_suspension"
	var req types.ApplySuspension
	if err := decode(r, op, &req); err != nil {
		fail(w, r, err)
		return
	}
	s, err := h.deps.ApplySuspension(r.Context(), req.MemberID, req.Trigger, req.SuspensionEvents)
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// HandleServed handles POST /suspensions/{id}/served.
func (h *SuspensionsHandler) HandleServed(w http.ResponseWriter, r *http.Request) {
	const op = "api.mark_served"
	s, err := h.deps.MarkSuspensionServed(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleServeEvent handles POST /suspensions/{id}/serve-event.
func (h *SuspensionsHandler) HandleServeEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.serve_event"
	s, err := h.deps.ServeSuspensionEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandlePlayerStatus handles GET /players/{memberID}/suspension.
func (h *SuspensionsHandler) HandlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_suspension"
	st, err := h.deps.GetPlayerSuspensionStatus(r.Context(), r.PathValue("memberID"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleTeamStatus handles GET /teams/{teamID}/suspensions.
func (h *SuspensionsHandler) HandleTeamStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_suspensions"
	st, err := h.deps.LoadTeamSuspensions(r.Context(), r.PathValue("teamID"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandlePlayerRecords handles GET /players/{memberID}/records.
func (h *SuspensionsHandler) HandlePlayerRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_records"
	recs, err := h.deps.MemberHistory(r.Context(), r.PathValue("memberID"))
	writeRecords(w, r, op, recs, err)
}

// HandleTeamRecords handles GET /teams/{teamID}/records.
func (h *SuspensionsHandler) HandleTeamRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_records"
	recs, err := h.deps.TeamHistory(r.Context(), r.PathValue("teamID"))
	writeRecords(w, r, op, recs, err)
}

func writeRecords(w http.ResponseWriter, r *http.Request, op string, recs []model.DisciplinaryRecord, err error) {
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	if recs == nil {
		recs = []model.DisciplinaryRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
