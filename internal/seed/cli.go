package seed

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Sideline Seed Tool
==================

Populates a league database with teams, referees and match days.

Usage:
  go run ./cmd/seed [options]

Options:
  -db string
        SQLite database file, or :memory: (default "sideline.db")
  -fixture string
        YAML fixture to load instead of generating a league
  -output string
        Write the applied fixture as YAML
  -tz string
        League timezone for fixture dates (default "America/Los_Angeles")
  -teams int
        Generated teams (default 6)
  -players int
        Generated players per team (default 12)
  -referees int
        Generated referees (default 4)
  -events int
        Generated weekly events (default 8)
  -start string
        Date of the first generated event, YYYY-MM-DD (default: 7 weeks ago)
  -seed uint
        Generator seed (default 1)
  -replace
        Replace the live event list instead of upserting
  -verbose
        Log every written entity
  -help
        Show this help message

Examples:
  # Seed a demo league
  go run ./cmd/seed -db sideline.db

  # Save the generated league for editing, then reload it
  go run ./cmd/seed -db :memory: -output league.yaml
  go run ./cmd/seed -db sideline.db -fixture league.yaml -replace
`)
}
