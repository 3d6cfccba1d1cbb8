// Package repository defines the storage boundaries of the league engine and
// their SQLite and in-memory implementations.
package repository

import (
	"context"

	"github.com/okian/sideline/internal/domain/model"
)

// EventStore holds the live season's events. Cards only exist inside them.
type EventStore interface {
	// ListEvents returns every live event in stored order.
	ListEvents(ctx context.Context) ([]model.Event, error)
	// SaveEvents replaces the whole live list.
	SaveEvents(ctx context.Context, events []model.Event) error
	// UpsertEvent inserts ev or replaces the event with the same id in place.
	UpsertEvent(ctx context.Context, ev model.Event) error
	// GetMatch returns ErrNotFound if the event or match is unknown.
	GetMatch(ctx context.Context, eventID, matchID string) (model.Match, error)
	// UpdateMatch replaces the match with m.ID inside eventID.
	UpdateMatch(ctx context.Context, eventID string, m model.Match) error
	// MutateMatch applies fn to the stored match atomically. The match is
	// written back only when fn reports a change.
	MutateMatch(ctx context.Context, eventID, matchID string, fn func(*model.Match) (bool, error)) (model.Match, error)
	// ClearEvents deletes all live events, but only once receipt.RecordCount
	// records of receipt.BatchID are persisted. Otherwise it returns
	// ErrRecordsNotPersisted and deletes nothing.
	ClearEvents(ctx context.Context, receipt model.ClearReceipt) error
}

// TeamStore reads rosters. UpsertTeam exists for seeding only.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]model.Team, error)
	UpsertTeam(ctx context.Context, t model.Team) error
}

// RefereeStore reads referees. UpsertReferee exists for seeding only.
type RefereeStore interface {
	ListReferees(ctx context.Context) ([]model.Referee, error)
	UpsertReferee(ctx context.Context, r model.Referee) error
}

// DisciplinaryStore is the permanent card history.
type DisciplinaryStore interface {
	// CreateRecords writes records in one transaction under batchID.
	// Re-writing an existing record id moves it into batchID.
	CreateRecords(ctx context.Context, batchID string, records []model.DisciplinaryRecord) error
	ListRecordsByMember(ctx context.Context, memberID string) ([]model.DisciplinaryRecord, error)
	ListRecordsByTeam(ctx context.Context, teamID string) ([]model.DisciplinaryRecord, error)
	CountRecordsInBatch(ctx context.Context, batchID string) (int, error)
}

// SuspensionStore persists suspensions.
type SuspensionStore interface {
	// ListActive returns active suspensions of memberID, or of everyone when
	// memberID is empty.
	ListActive(ctx context.Context, memberID string) ([]model.Suspension, error)
	List(ctx context.Context) ([]model.Suspension, error)
	Get(ctx context.Context, id string) (model.Suspension, error)
	// Create returns ErrAlreadyExists when s is active and an active
	// suspension with the same member and source exists.
	Create(ctx context.Context, s model.Suspension) error
	Update(ctx context.Context, s model.Suspension) error
}

// ArchiveStore keeps snapshots of closed seasons.
type ArchiveStore interface {
	CreateSnapshot(ctx context.Context, snap model.SeasonSnapshot) error
	ListSnapshots(ctx context.Context) ([]model.SeasonSnapshot, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	EventStore
	TeamStore
	RefereeStore
	DisciplinaryStore
	SuspensionStore
	ArchiveStore
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
