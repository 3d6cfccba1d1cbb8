package main

import (
	"context"
	"flag"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/internal/seed"
	"github.com/okian/sideline/pkg/logger"
)

// Default configuration constants.
const (
	defaultSeed        = 1
	defaultWeeksBack   = 7
	defaultSeedTimeout = 2 * time.Minute
)

func main() {
	var (
		dbPath   = flag.String("db", "sideline.db", "SQLite database file, or :memory:")
		fixture  = flag.String("fixture", "", "YAML fixture to load instead of generating")
		output   = flag.String("output", "", "Write the applied fixture as YAML")
		tz       = flag.String("tz", season.DefaultTimezone, "League timezone for fixture dates")
		teams    = flag.Int("teams", seed.DefaultTeams, "Generated teams")
		players  = flag.Int("players", seed.DefaultPlayersPerTeam, "Generated players per team")
		referees = flag.Int("referees", seed.DefaultReferees, "Generated referees")
		events   = flag.Int("events", seed.DefaultEvents, "Generated weekly events")
		start    = flag.String("start", "", "Date of the first generated event, YYYY-MM-DD")
		seedVal  = flag.Uint64("seed", defaultSeed, "Generator seed")
		replace  = flag.Bool("replace", false, "Replace the live event list instead of upserting")
		verbose  = flag.Bool("verbose", false, "Log every written entity")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	cal, err := season.LoadCalendar(*tz)
	if err != nil {
		os.Stderr.WriteString("Invalid timezone: " + err.Error() + "\n")
		os.Exit(1)
	}

	first := time.Now().In(cal.Location()).AddDate(0, 0, -7*defaultWeeksBack)
	if *start != "" {
		if first, err = time.ParseInLocation(seed.DateLayout, *start, cal.Location()); err != nil {
			os.Stderr.WriteString("Invalid -start: " + err.Error() + "\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	config := &seed.Config{
		DatabasePath:   *dbPath,
		Fixture:        *fixture,
		OutputFile:     *output,
		Location:       cal.Location(),
		Teams:          *teams,
		PlayersPerTeam: *players,
		Referees:       *referees,
		Events:         *events,
		FirstEvent:     first,
		Seed:           *seedVal,
		Replace:        *replace,
		Verbose:        *verbose,
	}

	if _, err := seed.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
