package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-memory Store. Values are copied on the
// way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	log         logger.Logger
	events      []model.Event
	teams       []model.Team
	referees    []model.Referee
	records     map[string]model.DisciplinaryRecord
	recordOrder []string
	suspensions map[string]model.Suspension
	suspOrder   []string
	snapshots   []model.SeasonSnapshot
	closed      bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		log:         o.log,
		records:     make(map[string]model.DisciplinaryRecord),
		suspensions: make(map[string]model.Suspension),
	}
}

// Close marks the store closed. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ListEvents implements EventStore.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Event, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Clone()
	}
	return out, nil
}

// SaveEvents implements EventStore.
func (s *MemoryStore) SaveEvents(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.events = make([]model.Event, len(events))
	for i, ev := range events {
		s.events[i] = ev.Clone()
	}
	metrics.UpdateRepositoryEvents(len(s.events))
	return nil
}

// UpsertEvent implements EventStore.
func (s *MemoryStore) UpsertEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events[i] = ev.Clone()
			return nil
		}
	}
	s.events = append(s.events, ev.Clone())
	metrics.UpdateRepositoryEvents(len(s.events))
	return nil
}

// must be called with s.mu held
func (s *MemoryStore) matchLocked(eventID, matchID string) (*model.Match, error) {
	for i := range s.events {
		if s.events[i].ID != eventID {
			continue
		}
		for j := range s.events[i].Matches {
			if s.events[i].Matches[j].ID == matchID {
				return &s.events[i].Matches[j], nil
			}
		}
		return nil, fmt.Errorf("match %s/%s: %w", eventID, matchID, ErrNotFound)
	}
	return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
}

// GetMatch implements EventStore.
func (s *MemoryStore) GetMatch(ctx context.Context, eventID, matchID string) (model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Match{}, err
	}
	m, err := s.matchLocked(eventID, matchID)
	if err != nil {
		return model.Match{}, err
	}
	return m.Clone(), nil
}

// UpdateMatch implements EventStore.
func (s *MemoryStore) UpdateMatch(ctx context.Context, eventID string, m model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	cur, err := s.matchLocked(eventID, m.ID)
	if err != nil {
		return err
	}
	*cur = m.Clone()
	return nil
}

// MutateMatch implements EventStore.
func (s *MemoryStore) MutateMatch(ctx context.Context, eventID, matchID string, fn func(*model.Match) (bool, error)) (model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return model.Match{}, err
	}
	cur, err := s.matchLocked(eventID, matchID)
	if err != nil {
		return model.Match{}, err
	}
	work := cur.Clone()
	changed, err := fn(&work)
	if err != nil {
		return model.Match{}, err
	}
	if changed {
		work.ID = matchID
		*cur = work.Clone()
	}
	return work, nil
}

// ClearEvents implements EventStore.
func (s *MemoryStore) ClearEvents(ctx context.Context, receipt model.ClearReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if receipt.BatchID == "" {
		return fmt.Errorf("%w: batch id is required", ErrInvalidArgument)
	}
	if n := s.countBatchLocked(receipt.BatchID); n < receipt.RecordCount {
		return fmt.Errorf("%w: batch %s has %d of %d records", ErrRecordsNotPersisted, receipt.BatchID, n, receipt.RecordCount)
	}
	kept := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		want, archived := receipt.Events[ev.ID]
		if !archived {
			kept = append(kept, ev)
			continue
		}
		got, err := model.EventFingerprint(ev)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("%w: event %s", ErrEventsChanged, ev.ID)
		}
	}
	cleared := len(s.events) - len(kept)
	s.events = kept
	metrics.UpdateRepositoryEvents(len(kept))
	s.log.Info(ctx, "live events cleared",
		logger.String("batchId", receipt.BatchID),
		logger.Int("events", cleared),
		logger.Int("kept", len(kept)),
	)
	return nil
}

// ListTeams implements TeamStore.
func (s *MemoryStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Team, len(s.teams))
	for i, t := range s.teams {
		t.Members = append([]model.Member(nil), t.Members...)
		out[i] = t
	}
	return out, nil
}

// UpsertTeam implements TeamStore.
func (s *MemoryStore) UpsertTeam(ctx context.Context, t model.Team) error {
	if t.ID == "" {
		return fmt.Errorf("%w: team id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	t.Members = append([]model.Member(nil), t.Members...)
	for i := range s.teams {
		if s.teams[i].ID == t.ID {
			s.teams[i] = t
			return nil
		}
	}
	s.teams = append(s.teams, t)
	return nil
}

// ListReferees implements RefereeStore.
func (s *MemoryStore) ListReferees(ctx context.Context) ([]model.Referee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return append([]model.Referee{}, s.referees...), nil
}

// UpsertReferee implements RefereeStore.
func (s *MemoryStore) UpsertReferee(ctx context.Context, r model.Referee) error {
	if r.ID == "" {
		return fmt.Errorf("%w: referee id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	for i := range s.referees {
		if s.referees[i].ID == r.ID {
			s.referees[i] = r
			return nil
		}
	}
	s.referees = append(s.referees, r)
	return nil
}

// CreateRecords implements DisciplinaryStore. All records are validated
// before any is written.
func (s *MemoryStore) CreateRecords(ctx context.Context, batchID string, records []model.DisciplinaryRecord) error {
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", ErrInvalidArgument)
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record id is required", ErrInvalidArgument)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	for _, r := range records {
		r.BatchID = batchID
		if _, exists := s.records[r.ID]; !exists {
			s.recordOrder = append(s.recordOrder, r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) listRecords(ctx context.Context, keep func(model.DisciplinaryRecord) bool) ([]model.DisciplinaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.DisciplinaryRecord, 0)
	for _, id := range s.recordOrder {
		if r := s.records[id]; keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IncidentDate < out[j].IncidentDate })
	return out, nil
}

// ListRecordsByMember implements DisciplinaryStore.
func (s *MemoryStore) ListRecordsByMember(ctx context.Context, memberID string) ([]model.DisciplinaryRecord, error) {
	return s.listRecords(ctx, func(r model.DisciplinaryRecord) bool { return r.MemberID == memberID })
}

// ListRecordsByTeam implements DisciplinaryStore.
func (s *MemoryStore) ListRecordsByTeam(ctx context.Context, teamID string) ([]model.DisciplinaryRecord, error) {
	return s.listRecords(ctx, func(r model.DisciplinaryRecord) bool { return r.TeamID == teamID })
}

// CountRecordsInBatch implements DisciplinaryStore.
func (s *MemoryStore) CountRecordsInBatch(ctx context.Context, batchID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return s.countBatchLocked(batchID), nil
}

// must be called with s.mu held
func (s *MemoryStore) countBatchLocked(batchID string) int {
	n := 0
	for _, r := range s.records {
		if r.BatchID == batchID {
			n++
		}
	}
	return n
}

// ListActive implements SuspensionStore.
func (s *MemoryStore) ListActive(ctx context.Context, memberID string) ([]model.Suspension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Suspension, 0)
	for _, id := range s.suspOrder {
		sp := s.suspensions[id]
		if sp.Status != model.SuspensionActive {
			continue
		}
		if memberID != "" && sp.MemberID != memberID {
			continue
		}
		out = append(out, copySuspension(sp))
	}
	return out, nil
}

// List implements SuspensionStore.
func (s *MemoryStore) List(ctx context.Context) ([]model.Suspension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Suspension, 0, len(s.suspOrder))
	for _, id := range s.suspOrder {
		out = append(out, copySuspension(s.suspensions[id]))
	}
	return out, nil
}

// Get implements SuspensionStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Suspension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Suspension{}, err
	}
	sp, ok := s.suspensions[id]
	if !ok {
		return model.Suspension{}, fmt.Errorf("suspension %s: %w", id, ErrNotFound)
	}
	return copySuspension(sp), nil
}

// Create implements SuspensionStore.
func (s *MemoryStore) Create(ctx context.Context, sp model.Suspension) error {
	if sp.ID == "" {
		return fmt.Errorf("%w: suspension id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.suspensions[sp.ID]; ok {
		return fmt.Errorf("suspension %s: %w", sp.ID, ErrAlreadyExists)
	}
	if sp.Status == model.SuspensionActive {
		for _, other := range s.suspensions {
			if other.Status == model.SuspensionActive && other.MemberID == sp.MemberID && other.Source == sp.Source {
				return fmt.Errorf("active suspension for %s from %s: %w", sp.MemberID, sp.Source, ErrAlreadyExists)
			}
		}
	}
	s.suspensions[sp.ID] = copySuspension(sp)
	s.suspOrder = append(s.suspOrder, sp.ID)
	return nil
}

// Update implements SuspensionStore.
func (s *MemoryStore) Update(ctx context.Context, sp model.Suspension) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, ok := s.suspensions[sp.ID]; !ok {
		return fmt.Errorf("suspension %s: %w", sp.ID, ErrNotFound)
	}
	s.suspensions[sp.ID] = copySuspension(sp)
	return nil
}

// CreateSnapshot implements ArchiveStore.
func (s *MemoryStore) CreateSnapshot(ctx context.Context, snap model.SeasonSnapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("%w: snapshot id is required", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	events := make([]model.Event, len(snap.Events))
	for i, ev := range snap.Events {
		events[i] = ev.Clone()
	}
	snap.Events = events
	s.snapshots = append(s.snapshots, snap)
	return nil
}

// ListSnapshots implements ArchiveStore.
func (s *MemoryStore) ListSnapshots(ctx context.Context) ([]model.SeasonSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return append([]model.SeasonSnapshot{}, s.snapshots...), nil
}

func copySuspension(sp model.Suspension) model.Suspension {
	if sp.ServedAt != nil {
		t := *sp.ServedAt
		sp.ServedAt = &t
	}
	return sp
}
