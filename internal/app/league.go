package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/sideline/internal/domain/cards"
	"github.com/okian/sideline/internal/domain/migration"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
)

// CurrentSeason returns the live competitive season.
func (s *Service) CurrentSeason() season.Season {
	return s.cal.Current(s.clock.Now())
}

// SeasonAt returns the competitive season of an arbitrary instant.
func (s *Service) SeasonAt(epoch int64) season.Season {
	return s.cal.Current(unix(epoch))
}

// IsCurrentSeasonEvent reports whether an event dated epoch is in the live season.
func (s *Service) IsCurrentSeasonEvent(epoch int64) bool {
	return s.cal.IsCurrentSeasonEvent(epoch, s.clock.Now())
}

// ClassifyEvent labels an event date with the calendar-half rule.
func (s *Service) ClassifyEvent(epoch int64) string {
	return s.cal.ClassifyEvent(epoch)
}

// filter resolves a season selector: "" or "current", "all", or a label.
func (s *Service) filter(selector string) (cards.Filter, string, error) {
	switch sel := strings.TrimSpace(selector); strings.ToLower(sel) {
	case "", "current":
		return cards.CurrentSeason(s.cal, s.clock.Now()), s.CurrentSeason().Label(), nil
	case "all":
		return cards.AllSeasons(s.cal), "all", nil
	default:
		typ, year, err := season.ParseLabel(sel)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidSeason, err)
		}
		label := fmt.Sprintf("%d-%s", year, typ)
		return cards.SeasonLabel(s.cal, label), label, nil
	}
}

func (s *Service) directory(ctx context.Context) (*model.Directory, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	refs, err := s.store.ListReferees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referees: %w", err)
	}
	return model.NewDirectory(teams, refs), nil
}

// CollectSeasonCards flattens every card of the selected season and returns
// the resolved season label.
func (s *Service) CollectSeasonCards(ctx context.Context, selector string) ([]model.CardRecord, string, error) {
	f, label, err := s.filter(selector)
	if err != nil {
		return nil, "", err
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list events: %w", err)
	}
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, "", err
	}
	return s.cards.Collect(ctx, events, dir, f), label, nil
}

// ComputeSeasonStats rolls up the cards of the selected season.
func (s *Service) ComputeSeasonStats(ctx context.Context, selector string) (model.SeasonStats, string, error) {
	recs, label, err := s.CollectSeasonCards(ctx, selector)
	if err != nil {
		return model.SeasonStats{}, "", err
	}
	return s.cards.Stats(recs), label, nil
}

// ComputePendingSuspendable lists the live season's suspension triggers,
// each with the suspension assigned for it, if any.
func (s *Service) ComputePendingSuspendable(ctx context.Context) ([]model.PendingSuspension, string, error) {
	recs, label, err := s.CollectSeasonCards(ctx, "current")
	if err != nil {
		return nil, "", err
	}
	existing, err := s.store.List(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list suspensions: %w", err)
	}
	return s.engine.Pending(recs, existing), label, nil
}

// YellowThreshold returns the configured yellow accumulation threshold.
func (s *Service) YellowThreshold() int { return s.yellowThreshold }

// ApplySuspension assigns a suspension of events match days for a trigger.
func (s *Service) ApplySuspension(ctx context.Context, memberID string, trigger model.Trigger, events int) (model.Suspension, error) {
	return s.engine.Apply(ctx, memberID, trigger, events)
}

// MarkSuspensionServed ends a suspension.
func (s *Service) MarkSuspensionServed(ctx context.Context, id string) (model.Suspension, error) {
	return s.engine.MarkServed(ctx, id)
}

// ServeSuspensionEvent counts one served match day.
func (s *Service) ServeSuspensionEvent(ctx context.Context, id string) (model.Suspension, error) {
	return s.engine.ServeEvent(ctx, id)
}

// GetPlayerSuspensionStatus aggregates a member's active suspensions.
func (s *Service) GetPlayerSuspensionStatus(ctx context.Context, memberID string) (model.SuspensionStatus, error) {
	return s.engine.Status(ctx, memberID)
}

// LoadTeamSuspensions prefetches the suspension status of every member of
// the given teams.
func (s *Service) LoadTeamSuspensions(ctx context.Context, teamIDs ...string) (map[string]model.SuspensionStatus, error) {
	dir, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.LoadTeamSuspensions(ctx, dir, teamIDs...)
}

// MemberHistory returns a member's permanent disciplinary records.
func (s *Service) MemberHistory(ctx context.Context, memberID string) ([]model.DisciplinaryRecord, error) {
	return s.store.ListRecordsByMember(ctx, memberID)
}

// TeamHistory returns a team's permanent disciplinary records.
func (s *Service) TeamHistory(ctx context.Context, teamID string) ([]model.DisciplinaryRecord, error) {
	return s.store.ListRecordsByTeam(ctx, teamID)
}

// PreviewMigration reports what closing the live season would do.
func (s *Service) PreviewMigration(ctx context.Context) (model.MigrationPreview, error) {
	return s.closer.Preview(ctx)
}

// CloseSeason runs a season close. Cached statuses are dropped afterwards
// whatever the outcome.
func (s *Service) CloseSeason(ctx context.Context, report migration.ProgressFunc) (model.MigrationResult, error) {
	defer s.cache.Purge(ctx)
	return s.closer.Close(ctx, report)
}

// Snapshots lists archived seasons.
func (s *Service) Snapshots(ctx context.Context) ([]model.SeasonSnapshot, error) {
	return s.store.ListSnapshots(ctx)
}

// CheckIn marks a member present if they are not suspended.
func (s *Service) CheckIn(ctx context.Context, req model.AttendanceRequest) (model.Match, error) {
	return s.gate.CheckIn(ctx, req)
}

// ToggleAttendance applies an optimistic attendance toggle. Toggles need
// the workers running.
func (s *Service) ToggleAttendance(ctx context.Context, req model.AttendanceRequest) (model.Transition, error) {
	if !s.isStarted() {
		return model.Transition{}, ErrNotStarted
	}
	return s.gate.Toggle(ctx, req)
}

// Transition returns the state of an attendance toggle.
func (s *Service) Transition(id string) (model.Transition, error) {
	return s.gate.Transition(id)
}

// Notifications lists recent revert notifications, newest first.
func (s *Service) Notifications() []model.Notification {
	return s.inbox.List()
}

// ListEvents returns the live events.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// UpsertEvent creates or replaces a live event.
func (s *Service) UpsertEvent(ctx context.Context, ev model.Event) error {
	return s.store.UpsertEvent(ctx, ev)
}

// UpdateMatch replaces one match of a live event.
func (s *Service) UpdateMatch(ctx context.Context, eventID string, m model.Match) error {
	return s.store.UpdateMatch(ctx, eventID, m)
}
