// Package worker runs the periodic sweeps next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"coach-booking/pkg/cache"

	"go.uber.org/zap"
)

// Report is the outcome of one sweep run.
type Report struct {
	Selected  int
	Processed int
	Skipped   int
	Failed    int
}

func (r Report) fields() []zap.Field {
	return []zap.Field{
		zap.Int("selected", r.Selected),
		zap.Int("processed", r.Processed),
		zap.Int("skipped", r.Skipped),
		zap.Int("failed", r.Failed),
	}
}

// Sweep is one idempotent pass over the records it selects.
type Sweep interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// Schedule decides when a task runs next.
type Schedule interface {
	Next(after time.Time) time.Time
}

type every time.Duration

// Every runs a task on each multiple of d, so a slow run never shifts later ticks.
func Every(d time.Duration) Schedule { return every(d) }

func (e every) Next(after time.Time) time.Time {
	d := time.Duration(e)
	return after.Truncate(d).Add(d)
}

type dailyAt int

// DailyAt runs a task once a day at the given UTC hour.
func DailyAt(hour int) Schedule { return dailyAt(hour) }

func (h dailyAt) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), int(h), 0, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TickSource is the scheduler's view of time.
type TickSource interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time                         { return time.Now() }
func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type task struct {
	sweep    Sweep
	schedule Schedule
	running  atomic.Bool
}

type Scheduler struct {
	tasks   []*task
	ticks   TickSource
	locker  cache.Locker
	lockTTL time.Duration
	log     *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithTickSource(ts TickSource) Option { return func(s *Scheduler) { s.ticks = ts } }

// WithLocker keeps a sweep to one instance at a time across processes.
func WithLocker(l cache.Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func NewScheduler(log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		ticks: wallClock{},
		log:   log.With(zap.String("worker", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Add(sweep Sweep, schedule Schedule) {
	s.tasks = append(s.tasks, &task{sweep: sweep, schedule: schedule})
}

// Start runs every task on its schedule until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.log.Info("Starting background scheduler", zap.Int("tasks", len(s.tasks)))
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("Background scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.wg.Done()
	for {
		now := s.ticks.Now()
		wait := t.schedule.Next(now).Sub(now)
		select {
		case <-ctx.Done():
			return
		case <-s.ticks.After(wait):
			s.run(ctx, t)
		}
	}
}

// RunOnce runs the named sweep now, for the CLI and tests.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (Report, error) {
	for _, t := range s.tasks {
		if t.sweep.Name() == name {
			return s.run(ctx, t)
		}
	}
	return Report{}, fmt.Errorf("unknown sweep %q", name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.sweep.Name()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, t *task) (Report, error) {
	name := t.sweep.Name()
	if !t.running.CompareAndSwap(false, true) {
		s.log.Warn("Sweep still running, tick skipped", zap.String("sweep", name))
		return Report{}, nil
	}
	defer t.running.Store(false)

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "sweep:"+name, s.lockTTL)
		if err != nil {
			s.log.Error("Failed to take sweep lock", zap.Error(err), zap.String("sweep", name))
			return Report{}, err
		}
		if !ok {
			s.log.Info("Sweep held by another instance", zap.String("sweep", name))
			return Report{}, nil
		}
		defer unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Sweep panicked", zap.String("sweep", name), zap.Any("panic", r))
		}
	}()

	started := s.ticks.Now()
	report, err := t.sweep.Run(ctx)
	fields := append(report.fields(), zap.String("sweep", name), zap.Duration("took", s.ticks.Now().Sub(started)))
	if err != nil {
		s.log.Error("Sweep failed", append(fields, zap.Error(err))...)
		return report, err
	}
	s.log.Info("Sweep finished", fields...)
	return report, nil
}
