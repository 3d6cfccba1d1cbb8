package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/sideline/internal/domain/model"
)

// EventDependencies defines the live event operations used by the API.
type EventDependencies interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpsertEvent(ctx context.Context, ev model.Event) error
	UpdateMatch(ctx context.Context, eventID string, m model.Match) error
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleListEvents handles GET /events requests
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	events, err := h.deps.ListEvents(r.Context())
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandlePostEvent handles POST /events requests
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var ev model.Event
	if err := decode(r, op, &ev); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(ev.ID) == "" {
		fail(w, r, WrapKind(op, ErrBadRequest, errors.New("missing id")))
		return
	}
	if err := h.deps.UpsertEvent(r.Context(), ev); err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandlePutMatch handles PUT /events/{eventID}/matches/{matchID} requests.
// The path match id wins over the body.
func (h *EventsHandler) HandlePutMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_match"
	var m model.Match
	if err := decode(r, op, &m); err != nil {
		fail(w, r, err)
		return
	}
	m.ID = r.PathValue("matchID")
	if err := h.deps.UpdateMatch(r.Context(), r.PathValue("eventID"), m); err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}
