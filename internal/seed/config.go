// Package seed populates a league database with teams, referees and
// events, either generated from a seed or loaded from a YAML fixture.
package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	DatabasePath   string         // SQLite file, or repository.MemoryDSN
	Fixture        string         // YAML fixture to load instead of generating
	OutputFile     string         // Where to write the applied fixture as YAML
	Location       *time.Location // League timezone for fixture dates
	Teams          int            // Generated teams
	PlayersPerTeam int            // Generated players per roster
	Referees       int            // Generated referees
	Events         int            // Generated weekly events
	FirstEvent     time.Time      // Date of the first generated event
	Seed           uint64         // Generator seed; same seed, same league
	Replace        bool           // Replace the live event list instead of upserting
	Verbose        bool           // Log every written entity
}

// Defaults for generated leagues.
const (
	DefaultTeams          = 6
	DefaultPlayersPerTeam = 12
	DefaultReferees       = 4
	DefaultEvents         = 8
)

// Stats holds what a seed run wrote.
type Stats struct {
	Teams     int
	Members   int
	Referees  int
	Events    int
	Matches   int
	Yellow    int
	Red       int
	StartTime time.Time
	Duration  time.Duration
}
