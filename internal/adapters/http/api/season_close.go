package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/sideline/internal/domain/migration"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
)

// SeasonCloseDependencies runs the end-of-season migration.
type SeasonCloseDependencies interface {
	PreviewMigration(ctx context.Context) (model.MigrationPreview, error)
	CloseSeason(ctx context.Context, report migration.ProgressFunc) (model.MigrationResult, error)
	Snapshots(ctx context.Context) ([]model.SeasonSnapshot, error)
}

// SeasonCloseHandler handles season close requests.
type SeasonCloseHandler struct {
	deps SeasonCloseDependencies
}

// NewSeasonCloseHandler creates a new season close handler.
func NewSeasonCloseHandler(deps SeasonCloseDependencies) *SeasonCloseHandler {
	return &SeasonCloseHandler{deps: deps}
}

// closeLine is one NDJSON line of the close stream.
type closeLine struct {
	Type     string                   `json:"type"`
	Progress *model.MigrationProgress `json:"progress,omitempty"`
	Result   *model.MigrationResult   `json:"result,omitempty"`
	Error    *types.ErrorBody         `json:"error,omitempty"`
}

// progressStream buffers lines until opened, so that failures before the
// close starts its real work still get a plain error status. Writes are
// best effort: once the client is gone the remaining lines are dropped.
type progressStream struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	open    bool
	gone    bool
	pending []closeLine
}

func newProgressStream(w http.ResponseWriter) *progressStream {
	f, _ := w.(http.Flusher)
	return &progressStream{w: w, enc: json.NewEncoder(w), flusher: f}
}

func (s *progressStream) start() {
	if s.open {
		return
	}
	s.open = true
	s.w.Header().Set("Content-Type", "application/x-ndjson")
	s.w.WriteHeader(http.StatusOK)
	for _, l := range s.pending {
		s.write(l)
	}
	s.pending = nil
	s.flush()
}

func (s *progressStream) send(l closeLine) {
	if !s.open {
		s.pending = append(s.pending, l)
		return
	}
	s.write(l)
	s.flush()
}

func (s *progressStream) write(l closeLine) {
	if s.gone {
		return
	}
	if err := s.enc.Encode(l); err != nil {
		s.gone = true
	}
}

func (s *progressStream) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// HandlePreview handles GET /season/close/preview.
func (h *SeasonCloseHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_preview"
	p, err := h.deps.PreviewMigration(r.Context())
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleClose handles POST /season/close. Progress is streamed as NDJSON
// once the precheck passes; the last line carries the result or the error.
// A close cannot be resumed, so it runs to the end even if the client
// disconnects.
func (h *SeasonCloseHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_season"
	stream := newProgressStream(w)
	res, err := h.deps.CloseSeason(context.WithoutCancel(r.Context()), func(p model.MigrationProgress) {
		stream.send(closeLine{Type: "progress", Progress: &p})
		if p.Step == model.StepPrecheck && p.State == model.StepCompleted {
			stream.start()
		}
	})
	if err != nil {
		err = Wrap(op, err)
		if !stream.open {
			fail(w, r, err)
			return
		}
		_, code := classify(err)
		stream.send(closeLine{Type: "error", Error: &types.ErrorBody{Code: code, Message: err.Error()}})
		return
	}
	stream.start()
	stream.send(closeLine{Type: "result", Result: &res})
}

// HandleSnapshots handles GET /season/snapshots.
func (h *SeasonCloseHandler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshots"
	snaps, err := h.deps.Snapshots(r.Context())
	if err != nil {
		fail(w, r, Wrap(op, err))
		return
	}
	if snaps == nil {
		snaps = []model.SeasonSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}
