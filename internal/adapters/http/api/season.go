package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/domain/types"
)

// SeasonDependencies resolves season windows.
type SeasonDependencies interface {
	CurrentSeason() season.Season
	SeasonAt(epoch int64) season.Season
	IsCurrentSeasonEvent(epoch int64) bool
	ClassifyEvent(epoch int64) string
}

// SeasonHandler handles season lookups.
type SeasonHandler struct {
	deps SeasonDependencies
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(deps SeasonDependencies) *SeasonHandler {
	return &SeasonHandler{deps: deps}
}

// HandleGetSeason handles GET /season. Without ?at the current season is
// returned.
func (h *SeasonHandler) HandleGetSeason(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_season"
	at := r.URL.Query().Get("at")
	if at == "" {
		writeJSON(w, http.StatusOK, types.NewSeasonView(h.deps.CurrentSeason()))
		return
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewSeasonView(h.deps.SeasonAt(t.Unix())))
}

// HandleClassify handles GET /season/classify?epoch=N.
func (h *SeasonHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify_event"
	epoch, err := strconv.ParseInt(r.URL.Query().Get("epoch"), 10, 64)
	if err != nil {
		fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, types.Classification{
		Epoch:         epoch,
		Label:         h.deps.ClassifyEvent(epoch),
		CurrentSeason: h.deps.IsCurrentSeasonEvent(epoch),
	})
}
