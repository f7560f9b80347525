package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"arabic_content_publisher/config"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/logger"
)

// Runner is the part of Pipeline the scheduler drives.
type Runner interface {
	Run(ctx context.Context, req generator.Request) (Outcome, error)
}

// Scheduler triggers generation of the configured (type, level) jobs on a cron spec.
type Scheduler struct {
	c       *cron.Cron
	runner  Runner
	jobs    []config.ScheduledJob
	timeout time.Duration
	log     *logger.Logger
}

func NewScheduler(spec string, jobs []config.ScheduledJob, runner Runner, timeout time.Duration, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	cl := log.CronLogger()
	s := &Scheduler{
		c:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner:  runner,
		jobs:    jobs,
		timeout: timeout,
		log:     log.With("component", "Scheduler"),
	}
	if _, err := s.c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid CONTENT_SCHEDULE %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce runs every job sequentially. A failed job does not stop the others.
func (s *Scheduler) RunOnce() {
	for _, job := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		_, err := s.runner.Run(ctx, generator.Request{ContentType: job.ContentType, Level: job.Level})
		cancel()
		if err != nil {
			s.log.Error("scheduled generation failed", "type", job.ContentType, "level", job.Level, "error", err)
			continue
		}
		s.log.Info("scheduled generation done", "type", job.ContentType, "level", job.Level)
	}
}

func (s *Scheduler) Start() {
	s.c.Start()
	s.log.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
