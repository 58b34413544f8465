package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PivotScreener/internal/logger"
	"PivotScreener/internal/model"
)

// Runner executes one scan cycle.
type Runner interface {
	RunCycle(ctx context.Context) (*model.CycleReport, error)
}

// Scheduler fires scan cycles on a cron spec and once at boot.
type Scheduler struct {
	Cron   *cron.Cron
	Runner Runner
	Ctx    context.Context

	log *zap.Logger
	wg  sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Ticks that land while a cycle is
// still running are dropped, never queued.
func NewScheduler(ctx context.Context, runner Runner, l *zap.Logger) *Scheduler {
	l = logger.OrDefault(l).Named("scheduler")
	cl := cronLogger{l.Sugar()}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Runner: runner,
		Ctx:    ctx,
		log:    l,
	}
}

// Register adds the periodic scan task.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task %q: %w", scanCron, err)
	}
	s.log.Info("scan task registered", zap.String("spec", scanCron))
	return nil
}

// Start runs a cycle immediately and then starts the cron scheduler.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scanTask()
	}()
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for any running cycle.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunNow executes a cycle synchronously (manual trigger).
func (s *Scheduler) RunNow() (*model.CycleReport, error) {
	return s.Runner.RunCycle(s.Ctx)
}

func (s *Scheduler) scanTask() {
	_, err := s.Runner.RunCycle(s.Ctx)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrCycleInProgress):
		s.log.Warn("previous cycle still running, tick dropped")
	case errors.Is(err, model.ErrUniverseUnavailable):
		// already logged by the scanner; retry on the next tick
	case errors.Is(err, model.ErrPersistence):
		s.log.Error("cycle committed without durable write", zap.Error(err))
	case s.Ctx.Err() != nil:
		s.log.Info("cycle interrupted by shutdown")
	default:
		s.log.Error("scan cycle failed", zap.Error(err))
	}
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		c.l.Warnw("cron tick skipped, previous run still active", keysAndValues...)
		return
	}
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
