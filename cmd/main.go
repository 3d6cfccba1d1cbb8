package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/okian/sideline/internal/adapters/http/api"
	"github.com/okian/sideline/internal/adapters/http/swagger"
	"github.com/okian/sideline/internal/adapters/repository"
	service "github.com/okian/sideline/internal/app"
	"github.com/okian/sideline/internal/config"
	"github.com/okian/sideline/internal/domain/season"
	"github.com/okian/sideline/pkg/logger"
)

// HTTP server timeout constants. Writes are left unbounded so that a
// season close can stream its progress.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

var _ api.Dependencies = (*service.Service)(nil)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("sideline: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	cal, err := season.LoadCalendar(cfg.Timezone)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.DatabasePath, log.Named("repository"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	svc := newService(cfg, cal, store, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	sched, err := schedule(ctx, log.Named("scheduler"),
		job{name: "refresh-metrics", every: cfg.MetricsInterval(), task: svc.RefreshMetrics},
		job{name: "sweep-status-cache", every: cfg.CacheSweepInterval(), task: func(ctx context.Context) {
			if n := svc.SweepCache(ctx); n > 0 {
				log.Debug(ctx, "status cache swept", logger.Int("evicted", n))
			}
		}},
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn(ctx, "scheduler shutdown", logger.Error(err))
		}
	}()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// openStore opens the SQLite database at path, or an in-memory store for
// repository.MemoryDSN.
func openStore(ctx context.Context, path string, log logger.Logger) (repository.Store, error) {
	if path == repository.MemoryDSN {
		return repository.NewMemoryStore(repository.WithLogger(log)), nil
	}
	store, err := repository.OpenSQLite(ctx, path, repository.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return store, nil
}

func newService(cfg *config.Config, cal *season.Calendar, store repository.Store, log logger.Logger) *service.Service {
	return service.New(
		service.WithStore(store),
		service.WithLocation(cal.Location()),
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.CheckInQueueSize),
		service.WithCacheTTL(cfg.StatusCacheTTL()),
		service.WithYellowThreshold(cfg.YellowThreshold),
		service.WithSuspensionBounds(cfg.MinSuspensionEvents, cfg.MaxSuspensionEvents),
	)
}
