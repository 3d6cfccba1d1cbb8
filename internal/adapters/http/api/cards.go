package api

import (
	"context"
	"net/http"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// CardDependencies collects season cards.
type CardDependencies interface {
	CollectSeasonCards(ctx context.Context, selector string) ([]model.CardRecord, string, error)
	ComputeSeasonStats(ctx context.Context, selector string) (model.SeasonStats, string, error)
}

// CardsHandler handles card collection requests.
type CardsHandler struct {
	deps CardDependencies
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(deps CardDependencies) *CardsHandler {
	return &CardsHandler{deps: deps}
}

type statsResponse struct {
	Season string            `json:"season"`
	Stats  model.SeasonStats `json:"stats"`
}

// HandleListCards handles GET /cards?season=current|all|{label}.
func (h *CardsHandler) HandleListCards(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_cards"
	recs, label, err := h.deps.CollectSeasonCards(r.Context(), r.URL.Query().Get("season"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	if recs == nil {
		recs = []model.CardRecord{}
	}
	writeJSON(w, http.StatusOK, types.CardList{Season: label, Count: len(recs), Cards: recs})
}

// HandleStats handles GET /cards/stats.
func (h *CardsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.card_stats"
	stats, label, err := h.deps.ComputeSeasonStats(r.Context(), r.URL.Query().Get("season"))
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Season: label, Stats: stats})
}
