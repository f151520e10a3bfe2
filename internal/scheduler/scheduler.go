// Package scheduler runs the periodic jobs of the worker: the statement
// closing sweep and the notification scan.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"hogar/internal/log"
)

// Job represents a scheduled job.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
func (j JobFunc) Name() string                  { return j.JobName }

// Scheduler manages background jobs on standard cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger
	ctx    context.Context
}

// New creates a new scheduler. Jobs receive ctx and should stop work
// when it is cancelled.
func New(ctx context.Context, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.WithComponent(log.ComponentWorker),
		ctx:    ctx,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// AddJob registers a job with a cron schedule. Schedule examples:
//   - "30 0 * * *"  - 00:30 daily
//   - "@hourly"     - every hour
//   - "@every 30s"  - every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug("Running job", "job", job.Name())

		if err := job.Run(s.ctx); err != nil {
			s.logger.Error("Job failed", "job", job.Name(), "error", err)
			return
		}
		s.logger.Debug("Job completed", "job", job.Name())
	})
	if err != nil {
		return err
	}

	s.logger.Info("Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info("Running job immediately", "job", job.Name())
	return job.Run(s.ctx)
}
