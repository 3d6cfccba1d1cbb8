package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MigrationStep names one step of a season close.
type MigrationStep string

// Season close steps, in execution order.
const (
	StepPrecheck  MigrationStep = "precheck"
	StepCollect   MigrationStep = "collect"
	StepTransform MigrationStep = "transform"
	StepPersist   MigrationStep = "persist"
	StepArchive   MigrationStep = "archive"
	StepClear     MigrationStep = "clear"
	StepDone      MigrationStep = "done"
)

// StepState is the outcome reported for a step.
type StepState string

// Step states.
const (
	StepStarted   StepState = "started"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
)

// MigrationProgress is one progress report of a running season close.
type MigrationProgress struct {
	Step    MigrationStep `json:"step"`
	State   StepState     `json:"state"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	At      time.Time     `json:"at"`
}

// MigrationPreview describes what closing the current season would do.
type MigrationPreview struct {
	Season            string               `json:"season"`
	EventCount        int                  `json:"eventCount"`
	CardCount         int                  `json:"cardCount"`
	YellowCount       int                  `json:"yellowCount"`
	RedCount          int                  `json:"redCount"`
	ActiveSuspensions []Suspension         `json:"activeSuspensions"`
	Blocked           bool                 `json:"blocked"`
	Records           []DisciplinaryRecord `json:"records"`
}

// MigrationResult summarises a completed season close.
type MigrationResult struct {
	Season           string    `json:"season"`
	BatchID          string    `json:"batchId"`
	RecordsPersisted int       `json:"recordsPersisted"`
	EventsArchived   int       `json:"eventsArchived"`
	SnapshotID       string    `json:"snapshotId"`
	CompletedAt      time.Time `json:"completedAt"`
}

// SeasonSnapshot is the archived live data of a closed season.
type SeasonSnapshot struct {
	ID         string    `json:"id"`
	Season     string    `json:"season"`
	BatchID    string    `json:"batchId"`
	Events     []Event   `json:"events"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// ClearReceipt proves to the event store which record batch must already
// be persisted before live events may be deleted, and names the archived
// events by fingerprint. Only those events may be deleted.
type ClearReceipt struct {
	BatchID     string
	RecordCount int
	Events      map[string]string // event id to fingerprint
}

// NewClearReceipt builds the receipt for a batch and the events it was
// derived from.
func NewClearReceipt(batchID string, recordCount int, events []Event) (ClearReceipt, error) {
	r := ClearReceipt{BatchID: batchID, RecordCount: recordCount, Events: make(map[string]string, len(events))}
	for _, ev := range events {
		fp, err := EventFingerprint(ev)
		if err != nil {
			return ClearReceipt{}, err
		}
		r.Events[ev.ID] = fp
	}
	return r, nil
}

// EventFingerprint hashes the JSON form of ev. Any edit to the event, its
// matches or its cards changes it.
func EventFingerprint(ev Event) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("fingerprint event %s: %w", ev.ID, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
