// Package types contains the request and response shapes shared by the
// service facade and the HTTP API.
package types

import (
	"time"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/season"
)

// SeasonView is a season window with its label.
type SeasonView struct {
	Label     string      `json:"label"`
	Type      season.Type `json:"type"`
	Year      int         `json:"year"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
}

// NewSeasonView converts a season window.
func NewSeasonView(s season.Season) SeasonView {
	return SeasonView{Label: s.Label(), Type: s.Type, Year: s.Year, StartDate: s.Start, EndDate: s.End}
}

// Classification answers where an event date falls under both season rules.
type Classification struct {
	Epoch         int64  `json:"epoch"`
	Label         string `json:"label"`
	CurrentSeason bool   `json:"currentSeason"`
}

// CardList is a season card collection.
type CardList struct {
	Season string             `json:"season"`
	Count  int                `json:"count"`
	Cards  []model.CardRecord `json:"cards"`
}

// PendingList is the admin view of suspension triggers.
type PendingList struct {
	Season    string                    `json:"season"`
	Threshold int                       `json:"yellowThreshold"`
	Items     []model.PendingSuspension `json:"items"`
}

// ApplySuspension is the body of a suspension request.
type ApplySuspension struct {
	MemberID         string        `json:"memberId"`
	Trigger          model.Trigger `json:"trigger"`
	SuspensionEvents int           `json:"suspensionEvents"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
