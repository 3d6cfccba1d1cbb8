package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/pkg/logger"
	"github.com/okian/sideline/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore persists league state in SQLite through the pure-Go driver.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// OpenSQLite opens path (or MemoryDSN), applies the embedded migrations and
// returns a ready store.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrInvalidArgument)
	}

	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", o.busyTimeout.Milliseconds())
	var dsn string
	if path == MemoryDSN {
		dsn = "file::memory:?" + pragmas
		o.maxConns = 1
	} else {
		clean := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + clean + "?" + pragmas + "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(o.maxConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	o.log.Info(ctx, "sqlite store ready", logger.String("path", path))
	return &SQLiteStore{db: db, log: o.log}, nil
}

// runMigrations applies the embedded schema. ErrNoChange is not an error.
func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(fmt.Sprint(err)), "unique constraint failed")
}

// inTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Events.

// ListEvents implements EventStore.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	defer observe("list_events", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// SaveEvents implements EventStore.
func (s *SQLiteStore) SaveEvents(ctx context.Context, events []model.Event) error {
	defer observe("save_events", time.Now())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		for i, ev := range events {
			if ev.ID == "" {
				return fmt.Errorf("%w: event id is required", ErrInvalidArgument)
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encode event %s: %w", ev.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO events (id, position, payload) VALUES (?, ?, ?)`, ev.ID, i, string(payload)); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("event %s: %w", ev.ID, ErrAlreadyExists)
				}
				return fmt.Errorf("insert event %s: %w", ev.ID, err)
			}
		}
		return nil
	})
	if err == nil {
		metrics.UpdateRepositoryEvents(len(events))
	}
	return err
}

// UpsertEvent implements EventStore.
func (s *SQLiteStore) UpsertEvent(ctx context.Context, ev model.Event) error {
	defer observe("upsert_event", time.Now())
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO events (id, position, payload)
VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM events), ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
`, ev.ID, string(payload))
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	return nil
}

func loadEventTx(ctx context.Context, tx *sql.Tx, eventID string) (model.Event, error) {
	var payload string
	err := tx.QueryRowContext(ctx, `SELECT payload FROM events WHERE id = ?`, eventID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("load event %s: %w", eventID, err)
	}
	var ev model.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return model.Event{}, fmt.Errorf("decode event %s: %w", eventID, err)
	}
	return ev, nil
}

func storeEventTx(ctx context.Context, tx *sql.Tx, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET payload = ? WHERE id = ?`, string(payload), ev.ID); err != nil {
		return fmt.Errorf("update event %s: %w", ev.ID, err)
	}
	return nil
}

func matchIndex(ev model.Event, matchID string) int {
	for i := range ev.Matches {
		if ev.Matches[i].ID == matchID {
			return i
		}
	}
	return -1
}

// GetMatch implements EventStore.
func (s *SQLiteStore) GetMatch(ctx context.Context, eventID, matchID string) (model.Match, error) {
	var out model.Match
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ev, err := loadEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		i := matchIndex(ev, matchID)
		if i < 0 {
			return fmt.Errorf("match %s/%s: %w", eventID, matchID, ErrNotFound)
		}
		out = ev.Matches[i]
		return nil
	})
	return out, err
}

// UpdateMatch implements EventStore.
func (s *SQLiteStore) UpdateMatch(ctx context.Context, eventID string, m model.Match) error {
	_, err := s.MutateMatch(ctx, eventID, m.ID, func(cur *model.Match) (bool, error) {
		*cur = m
		return true, nil
	})
	return err
}

// MutateMatch implements EventStore.
func (s *SQLiteStore) MutateMatch(ctx context.Context, eventID, matchID string, fn func(*model.Match) (bool, error)) (model.Match, error) {
	defer observe("mutate_match", time.Now())
	var out model.Match
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ev, err := loadEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		i := matchIndex(ev, matchID)
		if i < 0 {
			return fmt.Errorf("match %s/%s: %w", eventID, matchID, ErrNotFound)
		}
		changed, err := fn(&ev.Matches[i])
		if err != nil {
			return err
		}
		ev.Matches[i].ID = matchID
		out = ev.Matches[i].Clone()
		if !changed {
			return nil
		}
		return storeEventTx(ctx, tx, ev)
	})
	return out, err
}

// ClearEvents implements EventStore. The record count check, the
// fingerprint check and the delete share one transaction.
func (s *SQLiteStore) ClearEvents(ctx context.Context, receipt model.ClearReceipt) error {
	defer observe("clear_events", time.Now())
	if receipt.BatchID == "" {
		return fmt.Errorf("%w: batch id is required", ErrInvalidArgument)
	}
	var (
		cleared int64
		kept    int
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM disciplinary_records WHERE batch_id = ?`, receipt.BatchID).Scan(&n); err != nil {
			return fmt.Errorf("count batch %s: %w", receipt.BatchID, err)
		}
		if n < receipt.RecordCount {
			return fmt.Errorf("%w: batch %s has %d of %d records", ErrRecordsNotPersisted, receipt.BatchID, n, receipt.RecordCount)
		}
		ids := make([]string, 0, len(receipt.Events))
		for id, want := range receipt.Events {
			ev, err := loadEventTx(ctx, tx, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			got, err := model.EventFingerprint(ev)
			if err != nil {
				return err
			}
			if got != want {
				return fmt.Errorf("%w: event %s", ErrEventsChanged, id)
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete event %s: %w", id, err)
			}
			n, _ := res.RowsAffected()
			cleared += n
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&kept)
	})
	if err != nil {
		return err
	}
	metrics.UpdateRepositoryEvents(kept)
	s.log.Info(ctx, "live events cleared",
		logger.String("batchId", receipt.BatchID),
		logger.Int64("events", cleared),
		logger.Int("kept", kept),
	)
	return nil
}

// Teams and referees.

// ListTeams implements TeamStore.
func (s *SQLiteStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	defer observe("list_teams", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, color FROM teams ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := make([]model.Team, 0)
	index := map[string]int{}
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Color); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan team: %w", err)
		}
		index[t.ID] = len(teams)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list teams: %w", err)
	}
	_ = rows.Close()

	mrows, err := s.db.QueryContext(ctx, `SELECT team_id, id, name, number FROM members ORDER BY team_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var teamID string
		var m model.Member
		if err := mrows.Scan(&teamID, &m.ID, &m.Name, &m.Number); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if i, ok := index[teamID]; ok {
			teams[i].Members = append(teams[i].Members, m)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return teams, nil
}

// UpsertTeam implements TeamStore. The roster is replaced.
func (s *SQLiteStore) UpsertTeam(ctx context.Context, t model.Team) error {
	defer observe("upsert_team", time.Now())
	if t.ID == "" {
		return fmt.Errorf("%w: team id is required", ErrInvalidArgument)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO teams (id, position, name, category, color)
VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM teams), ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, category = excluded.category, color = excluded.color
`, t.ID, t.Name, t.Category, t.Color); err != nil {
			return fmt.Errorf("upsert team %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE team_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clear roster %s: %w", t.ID, err)
		}
		for i, m := range t.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO members (team_id, id, position, name, number) VALUES (?, ?, ?, ?, ?)`,
				t.ID, m.ID, i, m.Name, m.Number); err != nil {
				return fmt.Errorf("insert member %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// ListReferees implements RefereeStore.
func (s *SQLiteStore) ListReferees(ctx context.Context) ([]model.Referee, error) {
	defer observe("list_referees", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM referees ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list referees: %w", err)
	}
	defer rows.Close()
	out := make([]model.Referee, 0)
	for rows.Next() {
		var r model.Referee
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan referee: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertReferee implements RefereeStore.
func (s *SQLiteStore) UpsertReferee(ctx context.Context, r model.Referee) error {
	if r.ID == "" {
		return fmt.Errorf("%w: referee id is required", ErrInvalidArgument)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO referees (id, position, name)
VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM referees), ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, r.ID, r.Name)
	if err != nil {
		return fmt.Errorf("upsert referee %s: %w", r.ID, err)
	}
	return nil
}

// Disciplinary records.

const recordColumns = `id, batch_id, member_id, player_name, team_id, card_type, reason, notes,
	incident_date, suspension_events, suspension_served, event_id, match_id, season, created_at`

// CreateRecords implements DisciplinaryStore.
func (s *SQLiteStore) CreateRecords(ctx context.Context, batchID string, records []model.DisciplinaryRecord) error {
	defer observe("create_records", time.Now())
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", ErrInvalidArgument)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO disciplinary_records (`+recordColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET batch_id = excluded.batch_id
`)
		if err != nil {
			return fmt.Errorf("prepare insert record: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			if r.ID == "" {
				return fmt.Errorf("%w: record id is required", ErrInvalidArgument)
			}
			if _, err := stmt.ExecContext(ctx,
				r.ID, batchID, r.MemberID, r.PlayerName, r.TeamID, string(r.CardType), r.Reason, r.Notes,
				r.IncidentDate, r.SuspensionEvents, r.SuspensionServed, r.EventID, r.MatchID, r.Season,
				toMillis(r.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert record %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) queryRecords(ctx context.Context, where string, arg string) ([]model.DisciplinaryRecord, error) {
	defer observe("list_records", time.Now())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM disciplinary_records WHERE `+where+` = ? ORDER BY incident_date, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	out := make([]model.DisciplinaryRecord, 0)
	for rows.Next() {
		var (
			r         model.DisciplinaryRecord
			cardType  string
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.BatchID, &r.MemberID, &r.PlayerName, &r.TeamID, &cardType, &r.Reason, &r.Notes,
			&r.IncidentDate, &r.SuspensionEvents, &r.SuspensionServed, &r.EventID, &r.MatchID, &r.Season, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.CardType = model.CardType(cardType)
		r.CreatedAt = fromMillis(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRecordsByMember implements DisciplinaryStore.
func (s *SQLiteStore) ListRecordsByMember(ctx context.Context, memberID string) ([]model.DisciplinaryRecord, error) {
	return s.queryRecords(ctx, "member_id", memberID)
}

// ListRecordsByTeam implements DisciplinaryStore.
func (s *SQLiteStore) ListRecordsByTeam(ctx context.Context, teamID string) ([]model.DisciplinaryRecord, error) {
	return s.queryRecords(ctx, "team_id", teamID)
}

// CountRecordsInBatch implements DisciplinaryStore.
func (s *SQLiteStore) CountRecordsInBatch(ctx context.Context, batchID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM disciplinary_records WHERE batch_id = ?`, batchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count batch %s: %w", batchID, err)
	}
	return n, nil
}

// Suspensions.

const suspensionColumns = `id, member_id, player_name, trigger_kind, source, suspension_events,
	events_remaining, status, created_at, served_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuspension(row rowScanner) (model.Suspension, error) {
	var (
		sp              model.Suspension
		trigger, status string
		createdAt       int64
		servedAt        sql.NullInt64
	)
	if err := row.Scan(&sp.ID, &sp.MemberID, &sp.PlayerName, &trigger, &sp.Source, &sp.SuspensionEvents,
		&sp.EventsRemaining, &status, &createdAt, &servedAt); err != nil {
		return model.Suspension{}, err
	}
	sp.Trigger = model.TriggerKind(trigger)
	sp.Status = model.SuspensionState(status)
	sp.CreatedAt = fromMillis(createdAt)
	if servedAt.Valid {
		t := fromMillis(servedAt.Int64)
		sp.ServedAt = &t
	}
	return sp, nil
}

func (s *SQLiteStore) querySuspensions(ctx context.Context, query string, args ...any) ([]model.Suspension, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	defer rows.Close()
	out := make([]model.Suspension, 0)
	for rows.Next() {
		sp, err := scanSuspension(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suspension: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// ListActive implements SuspensionStore.
func (s *SQLiteStore) ListActive(ctx context.Context, memberID string) ([]model.Suspension, error) {
	defer observe("list_active_suspensions", time.Now())
	if memberID == "" {
		return s.querySuspensions(ctx,
			`SELECT `+suspensionColumns+` FROM suspensions WHERE status = 'active' ORDER BY seq`)
	}
	return s.querySuspensions(ctx,
		`SELECT `+suspensionColumns+` FROM suspensions WHERE status = 'active' AND member_id = ? ORDER BY seq`, memberID)
}

// List implements SuspensionStore.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Suspension, error) {
	defer observe("list_suspensions", time.Now())
	return s.querySuspensions(ctx, `SELECT `+suspensionColumns+` FROM suspensions ORDER BY seq`)
}

// Get implements SuspensionStore.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Suspension, error) {
	sp, err := scanSuspension(s.db.QueryRowContext(ctx,
		`SELECT `+suspensionColumns+` FROM suspensions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Suspension{}, fmt.Errorf("suspension %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Suspension{}, fmt.Errorf("get suspension %s: %w", id, err)
	}
	return sp, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// Create implements SuspensionStore. The partial unique index enforces one
// active suspension per member and source.
func (s *SQLiteStore) Create(ctx context.Context, sp model.Suspension) error {
	defer observe("create_suspension", time.Now())
	if sp.ID == "" {
		return fmt.Errorf("%w: suspension id is required", ErrInvalidArgument)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO suspensions (seq, `+suspensionColumns+`)
VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM suspensions), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, sp.ID, sp.MemberID, sp.PlayerName, string(sp.Trigger), sp.Source, sp.SuspensionEvents,
		sp.EventsRemaining, string(sp.Status), toMillis(sp.CreatedAt), nullMillis(sp.ServedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("active suspension for %s from %s: %w", sp.MemberID, sp.Source, ErrAlreadyExists)
		}
		return fmt.Errorf("create suspension: %w", err)
	}
	return nil
}

// Update implements SuspensionStore.
func (s *SQLiteStore) Update(ctx context.Context, sp model.Suspension) error {
	defer observe("update_suspension", time.Now())
	res, err := s.db.ExecContext(ctx, `
UPDATE suspensions
SET player_name = ?, suspension_events = ?, events_remaining = ?, status = ?, served_at = ?
WHERE id = ?
`, sp.PlayerName, sp.SuspensionEvents, sp.EventsRemaining, string(sp.Status), nullMillis(sp.ServedAt), sp.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("active suspension for %s from %s: %w", sp.MemberID, sp.Source, ErrAlreadyExists)
		}
		return fmt.Errorf("update suspension %s: %w", sp.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("suspension %s: %w", sp.ID, ErrNotFound)
	}
	return nil
}

// Archives.

// CreateSnapshot implements ArchiveStore.
func (s *SQLiteStore) CreateSnapshot(ctx context.Context, snap model.SeasonSnapshot) error {
	defer observe("create_snapshot", time.Now())
	if snap.ID == "" {
		return fmt.Errorf("%w: snapshot id is required", ErrInvalidArgument)
	}
	payload, err := json.Marshal(snap.Events)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO season_archives (id, season, batch_id, payload, archived_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Season, snap.BatchID, string(payload), toMillis(snap.ArchivedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %s: %w", snap.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// ListSnapshots implements ArchiveStore.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]model.SeasonSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, season, batch_id, payload, archived_at FROM season_archives ORDER BY archived_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	out := make([]model.SeasonSnapshot, 0)
	for rows.Next() {
		var (
			snap       model.SeasonSnapshot
			payload    string
			archivedAt int64
		)
		if err := rows.Scan(&snap.ID, &snap.Season, &snap.BatchID, &payload, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &snap.Events); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
		}
		snap.ArchivedAt = fromMillis(archivedAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}
