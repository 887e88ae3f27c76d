// Package jobs runs the member center's background maintenance on cron
// schedules: nightly knowledge base resync and enrollment expiry sweeps.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// KnowledgeSyncer rebuilds the knowledge base index.
type KnowledgeSyncer interface {
	Sync(ctx context.Context) error
}

// EnrollmentSweeper deactivates enrollments past their termination date.
type EnrollmentSweeper interface {
	SweepExpiredEnrollments(ctx context.Context) (int64, error)
}

// Config holds the cron expressions for each job.
type Config struct {
	KnowledgeResync string
	EnrollmentSweep string
	JobTimeout      time.Duration
	Logger          zerolog.Logger
}

// Scheduler owns the cron runner and its registered jobs.
type Scheduler struct {
	cron       *cron.Cron
	logger     zerolog.Logger
	jobTimeout time.Duration
}

// NewScheduler registers the maintenance jobs. An empty cron expression
// disables that job.
func NewScheduler(cfg Config, knowledge KnowledgeSyncer, sweeper EnrollmentSweeper) (*Scheduler, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}

	s := &Scheduler{
		cron:       cron.New(),
		logger:     cfg.Logger,
		jobTimeout: cfg.JobTimeout,
	}

	if cfg.KnowledgeResync != "" {
		if knowledge == nil {
			return nil, fmt.Errorf("knowledge resync scheduled but no knowledge manager provided")
		}
		if _, err := s.cron.AddFunc(cfg.KnowledgeResync, s.wrap("knowledge_resync", func(ctx context.Context) error {
			return knowledge.Sync(ctx)
		})); err != nil {
			return nil, fmt.Errorf("invalid knowledge resync schedule %q: %w", cfg.KnowledgeResync, err)
		}
	}

	if cfg.EnrollmentSweep != "" {
		if sweeper == nil {
			return nil, fmt.Errorf("enrollment sweep scheduled but no store provided")
		}
		if _, err := s.cron.AddFunc(cfg.EnrollmentSweep, s.wrap("enrollment_sweep", func(ctx context.Context) error {
			n, err := sweeper.SweepExpiredEnrollments(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				s.logger.Info().Int64("expired", n).Msg("Expired enrollments deactivated")
			}
			return nil
		})); err != nil {
			return nil, fmt.Errorf("invalid enrollment sweep schedule %q: %w", cfg.EnrollmentSweep, err)
		}
	}

	return s, nil
}

// wrap gives each job a timeout, logging and panic isolation.
func (s *Scheduler) wrap(name string, run func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("Background job panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("Background job failed")
			return
		}
		s.logger.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Background job completed")
	}
}

// Start begins running the schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Background scheduler started")
}

// Stop waits for any running job and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Background scheduler stopped")
}

// JobCount reports how many jobs are scheduled.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
