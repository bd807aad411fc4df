package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the Assessor once at start and then on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	assessor *Assessor
	logger   *slog.Logger
	ran      atomic.Bool
}

// NewScheduler parses a standard five-field cron spec (or a descriptor such as
// "@daily"). Jobs fire in UTC and never overlap.
func NewScheduler(spec string, assessor *Assessor, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, assessor: assessor, logger: logger}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("schedule risk job %q: %w", spec, err)
	}
	return s, nil
}

// Run performs an immediate assessment, starts the schedule and blocks until
// ctx is cancelled. Running jobs are allowed to finish before it returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.runWithContext(ctx)
	s.cron.Start()
	s.logger.Info("risk scheduler started", "next_run", s.Next())

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("risk scheduler stopped")
}

// Next returns the next scheduled run, or zero if the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// CheckReadiness returns nil once the first assessment has completed.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ran.Load() {
		return errors.New("city risk has not been computed yet")
	}
	return nil
}

func (s *Scheduler) runOnce() {
	s.runWithContext(context.Background())
}

func (s *Scheduler) runWithContext(ctx context.Context) {
	start := time.Now()
	s.assessor.Run(ctx)
	s.ran.Store(true)
	s.logger.Debug("risk job finished", "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
