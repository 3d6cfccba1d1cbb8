package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sideline/internal/adapters/repository"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/pkg/logger"
)

// File permission constants.
const (
	filePermission = 0o600
)

// Store is the write side a seed run needs.
type Store interface {
	UpsertTeam(ctx context.Context, t model.Team) error
	UpsertReferee(ctx context.Context, r model.Referee) error
	UpsertEvent(ctx context.Context, ev model.Event) error
	SaveEvents(ctx context.Context, events []model.Event) error
}

// Run executes a complete seed: open the database, build the fixture and
// write it.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("seed")
	stats := &Stats{StartTime: time.Now()}

	var (
		fx  Fixture
		err error
	)
	if cfg.Fixture != "" {
		log.Info(ctx, "loading fixture", logger.String("file", cfg.Fixture))
		if fx, err = LoadFixture(cfg.Fixture); err != nil {
			return nil, err
		}
	} else {
		log.Info(ctx, "generating league",
			logger.Int("teams", cfg.Teams),
			logger.Int("playersPerTeam", cfg.PlayersPerTeam),
			logger.Int("events", cfg.Events),
			logger.Any("seed", cfg.Seed))
		fx = Generate(*cfg)
	}

	league, err := fx.Resolve(cfg.Location)
	if err != nil {
		return nil, err
	}

	store, err := open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := Apply(ctx, store, league, cfg.Replace, stats, cfg.Verbose); err != nil {
		return nil, err
	}

	if cfg.OutputFile != "" {
		if err := WriteFixture(cfg.OutputFile, fx); err != nil {
			return nil, err
		}
		log.Info(ctx, "fixture written", logger.String("file", cfg.OutputFile))
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "seed complete",
		logger.String("database", cfg.DatabasePath),
		logger.Int("teams", stats.Teams),
		logger.Int("members", stats.Members),
		logger.Int("referees", stats.Referees),
		logger.Int("events", stats.Events),
		logger.Int("matches", stats.Matches),
		logger.Int("yellow", stats.Yellow),
		logger.Int("red", stats.Red),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

type closingStore interface {
	Store
	Close() error
}

func open(ctx context.Context, path string) (closingStore, error) {
	if path == repository.MemoryDSN {
		return repository.NewMemoryStore(), nil
	}
	s, err := repository.OpenSQLite(ctx, path, repository.WithLogger(logger.Named("repository")))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return s, nil
}

// Apply writes league to store. With replace the live event list is
// swapped wholesale, otherwise events are upserted one by one.
func Apply(ctx context.Context, store Store, league League, replace bool, stats *Stats, verbose bool) error {
	log := logger.Named("seed")
	for _, t := range league.Teams {
		if err := store.UpsertTeam(ctx, t); err != nil {
			return fmt.Errorf("team %s: %w", t.ID, err)
		}
		stats.Teams++
		stats.Members += len(t.Members)
		if verbose {
			log.Debug(ctx, "team written", logger.String("team", t.ID), logger.Int("members", len(t.Members)))
		}
	}
	for _, r := range league.Referees {
		if err := store.UpsertReferee(ctx, r); err != nil {
			return fmt.Errorf("referee %s: %w", r.ID, err)
		}
		stats.Referees++
	}

	if replace {
		if err := store.SaveEvents(ctx, league.Events); err != nil {
			return fmt.Errorf("save events: %w", err)
		}
	}
	for _, ev := range league.Events {
		if !replace {
			if err := store.UpsertEvent(ctx, ev); err != nil {
				return fmt.Errorf("event %s: %w", ev.ID, err)
			}
		}
		stats.Events++
		stats.Matches += len(ev.Matches)
		for _, m := range ev.Matches {
			for _, c := range m.Cards {
				if c.CardType == model.CardRed {
					stats.Red++
				} else {
					stats.Yellow++
				}
			}
		}
		if verbose {
			log.Debug(ctx, "event written", logger.String("event", ev.ID), logger.Int("matches", len(ev.Matches)))
		}
	}
	return nil
}
