// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/sideline/internal/adapters/repository"
	service "github.com/okian/sideline/internal/app"
	"github.com/okian/sideline/internal/domain/checkin"
	"github.com/okian/sideline/internal/domain/migration"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/domain/suspension"
	"github.com/okian/sideline/internal/domain/types"
	"github.com/okian/sideline/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SeasonDependencies
	EventDependencies
	CardDependencies
	SuspensionDependencies
	SeasonCloseDependencies
	AttendanceDependencies
	StatsProvider
}

// Server wires HTTP routes for the league API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	seasonHandler      *SeasonHandler
	eventsHandler      *EventsHandler
	cardsHandler       *CardsHandler
	suspensionsHandler *SuspensionsHandler
	closeHandler       *SeasonCloseHandler
	attendanceHandler  *AttendanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		seasonHandler:      NewSeasonHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		cardsHandler:       NewCardsHandler(deps),
		suspensionsHandler: NewSuspensionsHandler(deps),
		closeHandler:       NewSeasonCloseHandler(deps),
		attendanceHandler:  NewAttendanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /season", MetricsMiddleware(s.seasonHandler.HandleGetSeason, "season"))
	mux.HandleFunc("GET /season/classify", MetricsMiddleware(s.seasonHandler.HandleClassify, "season_classify"))
	mux.HandleFunc("GET /season/close/preview", MetricsMiddleware(s.closeHandler.HandlePreview, "season_close_preview"))
	mux.HandleFunc("POST /season/close", MetricsMiddleware(s.closeHandler.HandleClose, "season_close"))
	mux.HandleFunc("GET /season/snapshots", MetricsMiddleware(s.closeHandler.HandleSnapshots, "season_snapshots"))

	mux.HandleFunc("GET /events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events_list"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events_upsert"))
	mux.HandleFunc("PUT /events/{eventID}/matches/{matchID}", MetricsMiddleware(s.eventsHandler.HandlePutMatch, "match_update"))

	mux.HandleFunc("GET /cards", MetricsMiddleware(s.cardsHandler.HandleListCards, "cards"))
	mux.HandleFunc("GET /cards/stats", MetricsMiddleware(s.cardsHandler.HandleStats, "cards_stats"))

	mux.HandleFunc("GET /suspensions/pending", MetricsMiddleware(s.suspensionsHandler.HandlePending, "suspensions_pending"))
	mux.HandleFunc("POST /suspensions", MetricsMiddleware(s.suspensionsHandler.HandleApply, "suspensions_apply"))
	mux.HandleFunc("POST /suspensions/{id}/served", MetricsMiddleware(s.suspensionsHandler.HandleServed, "suspensions_served"))
	mux.HandleFunc("POST /suspensions/{id}/serve-event", MetricsMiddleware(s.suspensionsHandler.HandleServeEvent, "suspensions_serve_event"))
	mux.HandleFunc("GET /players/{memberID}/suspension", MetricsMiddleware(s.suspensionsHandler.HandlePlayerStatus, "player_suspension"))
	mux.HandleFunc("GET /players/{memberID}/records", MetricsMiddleware(s.suspensionsHandler.HandlePlayerRecords, "player_records"))
	mux.HandleFunc("GET /teams/{teamID}/suspensions", MetricsMiddleware(s.suspensionsHandler.HandleTeamStatus, "team_suspensions"))
	mux.HandleFunc("GET /teams/{teamID}/records", MetricsMiddleware(s.suspensionsHandler.HandleTeamRecords, "team_records"))

	mux.HandleFunc("POST /checkins", MetricsMiddleware(s.attendanceHandler.HandleCheckIn, "checkins"))
	mux.HandleFunc("POST /attendance", MetricsMiddleware(s.attendanceHandler.HandleToggle, "attendance_toggle"))
	mux.HandleFunc("GET /attendance/{transitionID}", MetricsMiddleware(s.attendanceHandler.HandleTransition, "attendance_transition"))
	mux.HandleFunc("GET /notifications", MetricsMiddleware(s.attendanceHandler.HandleNotifications, "notifications"))
}

type errorResponse = types.ErrorBody

// suspendedResponse carries the details of a rejected check-in.
type suspendedResponse struct {
	errorResponse
	MemberID        string              `json:"memberId"`
	Triggers        []model.TriggerKind `json:"triggers"`
	EventsRemaining int                 `json:"eventsRemaining"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto an HTTP status and writes it.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var se *checkin.SuspendedError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusConflict, suspendedResponse{
			errorResponse:   errorResponse{Code: "suspended", Message: err.Error()},
			MemberID:        se.MemberID,
			Triggers:        se.Triggers,
			EventsRemaining: se.EventsRemaining,
		})
		return
	}
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// classify returns the HTTP status and error code for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, suspension.ErrValidation),
		errors.Is(err, checkin.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidSeason),
		errors.Is(err, season.ErrInvalidLabel),
		errors.Is(err, repository.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, checkin.ErrNotRostered):
		return http.StatusBadRequest, "not_rostered"
	case errors.Is(err, checkin.ErrSuspended):
		return http.StatusConflict, "suspended"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, checkin.ErrUnknownTransition):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, suspension.ErrAlreadySuspended):
		return http.StatusConflict, "already_suspended"
	case errors.Is(err, migration.ErrActiveSuspensions):
		return http.StatusConflict, "active_suspensions"
	case errors.Is(err, migration.ErrCloseInProgress):
		return http.StatusConflict, "close_in_progress"
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, repository.ErrEventsChanged):
		return http.StatusConflict, "events_changed"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
