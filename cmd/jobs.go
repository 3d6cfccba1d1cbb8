package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/okian/sideline/pkg/logger"
)

// job is a periodic background task.
type job struct {
	name  string
	every time.Duration
	task  func(context.Context)
}

// schedule starts a scheduler running jobs until it is shut down. Runs of
// the same job never overlap.
func schedule(ctx context.Context, log logger.Logger, jobs ...job) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error(ctx, "scheduled job panicked",
						logger.String("job_id", jobID.String()),
						logger.String("job_name", jobName),
						logger.Any("panic", recoverData))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	for _, j := range jobs {
		task := j.task
		if _, err := s.NewJob(
			gocron.DurationJob(j.every),
			gocron.NewTask(func() { task(ctx) }),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
		log.Info(ctx, "scheduled job", logger.String("job", j.name), logger.Duration("every", j.every))
	}

	s.Start()
	return s, nil
}
