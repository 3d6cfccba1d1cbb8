// Package migration closes a season: live cards become permanent
// disciplinary records, the live events are archived and the live store is
// cleared.
//
// A close is a strict sequence of steps. It is not resumable and committed
// steps are not compensated; a failure after persist needs manual recovery.
// Record ids derive from card provenance so re-running persist after a
// partial failure rewrites the same records instead of duplicating them.
package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/domain/cards"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/domain/suspension"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// Store is the persistence a season close reads and writes.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ListReferees(ctx context.Context) ([]model.Referee, error)
	ListActive(ctx context.Context, memberID string) ([]model.Suspension, error)
	List(ctx context.Context) ([]model.Suspension, error)
	CreateRecords(ctx context.Context, batchID string, records []model.DisciplinaryRecord) error
	CreateSnapshot(ctx context.Context, snap model.SeasonSnapshot) error
	ClearEvents(ctx context.Context, receipt model.ClearReceipt) error
}

// ProgressFunc receives step reports. It is called synchronously.
type ProgressFunc func(model.MigrationProgress)

// Coordinator runs season closes.
type Coordinator struct {
	store Store
	cal   *season.Calendar
	agg   *cards.Aggregator
	clock clockwork.Clock
	log   logger.Logger
	newID func() string

	running sync.Mutex
}

// New creates a coordinator.
func New(store Store, cal *season.Calendar, agg *cards.Aggregator, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		cal:   cal,
		agg:   agg,
		clock: clockwork.NewRealClock(),
		log:   logger.Nop(),
		newID: defaultID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// live is what the collect step reads.
type live struct {
	season  season.Season
	events  []model.Event
	cards   []model.CardRecord
	lengths map[string]int
}

func (c *Coordinator) collect(ctx context.Context) (live, error) {
	events, err := c.store.ListEvents(ctx)
	if err != nil {
		return live{}, fmt.Errorf("list events: %w", err)
	}
	teams, err := c.store.ListTeams(ctx)
	if err != nil {
		return live{}, fmt.Errorf("list teams: %w", err)
	}
	refs, err := c.store.ListReferees(ctx)
	if err != nil {
		return live{}, fmt.Errorf("list referees: %w", err)
	}
	all, err := c.store.List(ctx)
	if err != nil {
		return live{}, fmt.Errorf("list suspensions: %w", err)
	}
	lengths := make(map[string]int, len(all))
	for _, s := range all {
		lengths[s.MemberID+"\x00"+s.Source] = s.SuspensionEvents
	}

	now := c.clock.Now()
	dir := model.NewDirectory(teams, refs)
	return live{
		season:  c.cal.Current(now),
		events:  events,
		cards:   c.agg.Collect(ctx, events, dir, cards.CurrentSeason(c.cal, now)),
		lengths: lengths,
	}, nil
}

// RecordID is the permanent id of the disciplinary record made from a card.
func RecordID(seasonLabel, cardID string) string {
	return seasonLabel + "/" + cardID
}

// transform turns live cards into served disciplinary records. A record
// carries the length of the suspension assigned for its trigger, if any.
func (c *Coordinator) transform(l live) []model.DisciplinaryRecord {
	now := c.clock.Now().UTC()
	out := make([]model.DisciplinaryRecord, 0, len(l.cards))
	for _, r := range l.cards {
		source := suspension.YellowSource(r.Season, r.MemberID)
		if r.CardType == model.CardRed {
			source = suspension.RedSource(r.EventID, r.MatchID, r.CardIndex)
		}
		out = append(out, model.DisciplinaryRecord{
			ID:               RecordID(r.Season, r.ID),
			MemberID:         r.MemberID,
			PlayerName:       r.PlayerName,
			TeamID:           r.TeamID,
			CardType:         r.CardType,
			Reason:           r.Reason,
			Notes:            r.Notes,
			IncidentDate:     r.EventDate,
			SuspensionEvents: l.lengths[r.MemberID+"\x00"+source],
			SuspensionServed: true,
			EventID:          r.EventID,
			MatchID:          r.MatchID,
			Season:           r.Season,
			CreatedAt:        now,
		})
	}
	return out
}

// Preview reports what closing the live season would do without writing.
func (c *Coordinator) Preview(ctx context.Context) (model.MigrationPreview, error) {
	active, err := c.store.ListActive(ctx, "")
	if err != nil {
		return model.MigrationPreview{}, fmt.Errorf("list active suspensions: %w", err)
	}
	l, err := c.collect(ctx)
	if err != nil {
		return model.MigrationPreview{}, err
	}
	p := model.MigrationPreview{
		Season:            l.season.Label(),
		EventCount:        len(l.events),
		CardCount:         len(l.cards),
		ActiveSuspensions: active,
		Blocked:           len(active) > 0,
		Records:           c.transform(l),
	}
	for _, r := range l.cards {
		switch r.CardType {
		case model.CardYellow:
			p.YellowCount++
		case model.CardRed:
			p.RedCount++
		}
	}
	return p, nil
}

// Close runs a season close, reporting every step to report. A second close
// while one is running fails with ErrCloseInProgress.
func (c *Coordinator) Close(ctx context.Context, report ProgressFunc) (model.MigrationResult, error) {
	if !c.running.TryLock() {
		metrics.RecordSeasonClose("busy")
		return model.MigrationResult{}, ErrCloseInProgress
	}
	defer c.running.Unlock()

	start := c.clock.Now()
	r := &run{ctx: ctx, c: c, report: report}

	r.started(model.StepPrecheck)
	active, err := c.store.ListActive(ctx, "")
	if err != nil {
		return r.failed(model.StepPrecheck, fmt.Errorf("list active suspensions: %w", err))
	}
	if len(active) > 0 {
		err := fmt.Errorf("%w: %d still active", ErrActiveSuspensions, len(active))
		r.emit(model.StepPrecheck, model.StepFailed, "", err)
		metrics.RecordSeasonClose("blocked")
		return model.MigrationResult{}, err
	}
	r.completed(model.StepPrecheck, "no active suspensions")

	r.started(model.StepCollect)
	l, err := c.collect(ctx)
	if err != nil {
		return r.failed(model.StepCollect, err)
	}
	r.completed(model.StepCollect, fmt.Sprintf("%d cards from %d events in %s", len(l.cards), len(l.events), l.season.Label()))

	r.started(model.StepTransform)
	records := c.transform(l)
	r.completed(model.StepTransform, fmt.Sprintf("%d records", len(records)))

	r.started(model.StepPersist)
	batchID := c.newID()
	if err := c.store.CreateRecords(ctx, batchID, records); err != nil {
		return r.failed(model.StepPersist, fmt.Errorf("create records: %w", err))
	}
	metrics.RecordRecordsPersisted(len(records))
	r.completed(model.StepPersist, "batch "+batchID)

	r.started(model.StepArchive)
	snap := model.SeasonSnapshot{
		ID:         c.newID(),
		Season:     l.season.Label(),
		BatchID:    batchID,
		Events:     l.events,
		ArchivedAt: c.clock.Now().UTC(),
	}
	if err := c.store.CreateSnapshot(ctx, snap); err != nil {
		return r.failed(model.StepArchive, fmt.Errorf("create snapshot: %w", err))
	}
	r.completed(model.StepArchive, "snapshot "+snap.ID)

	r.started(model.StepClear)
	receipt, err := model.NewClearReceipt(batchID, len(records), l.events)
	if err != nil {
		return r.failed(model.StepClear, err)
	}
	if err := c.store.ClearEvents(ctx, receipt); err != nil {
		return r.failed(model.StepClear, fmt.Errorf("clear events: %w", err))
	}
	r.completed(model.StepClear, fmt.Sprintf("%d events cleared", len(l.events)))

	res := model.MigrationResult{
		Season:           l.season.Label(),
		BatchID:          batchID,
		RecordsPersisted: len(records),
		EventsArchived:   len(l.events),
		SnapshotID:       snap.ID,
		CompletedAt:      c.clock.Now().UTC(),
	}
	r.completed(model.StepDone, "season "+res.Season+" closed")
	metrics.RecordSeasonClose("success")
	metrics.RecordSeasonCloseDuration(float64(c.clock.Since(start).Milliseconds()))
	return res, nil
}

type run struct {
	ctx    context.Context
	c      *Coordinator
	report ProgressFunc
}

func (r *run) started(step model.MigrationStep) {
	r.emit(step, model.StepStarted, "", nil)
}

func (r *run) completed(step model.MigrationStep, msg string) {
	r.emit(step, model.StepCompleted, msg, nil)
}

func (r *run) failed(step model.MigrationStep, err error) (model.MigrationResult, error) {
	r.emit(step, model.StepFailed, "", err)
	metrics.RecordSeasonClose("failed")
	metrics.RecordSeasonStepFailure(string(step))
	return model.MigrationResult{}, &StepError{Step: step, Err: err}
}

func (r *run) emit(step model.MigrationStep, state model.StepState, msg string, err error) {
	p := model.MigrationProgress{Step: step, State: state, Message: msg, At: r.c.clock.Now().UTC()}
	fields := []logger.Field{logger.String("step", string(step)), logger.String("state", string(state))}
	if msg != "" {
		fields = append(fields, logger.String("detail", msg))
	}
	if err != nil {
		p.Error = err.Error()
		r.c.log.Error(r.ctx, "season close step failed", append(fields, logger.Error(err))...)
	} else {
		r.c.log.Info(r.ctx, "season close", fields...)
	}
	if r.report != nil {
		r.report(p)
	}
}
