package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coach-booking/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type manualTicks struct {
	mu    sync.Mutex
	now   time.Time
	ch    chan time.Time
	waits []time.Duration
}

func newManualTicks(now time.Time) *manualTicks {
	return &manualTicks{now: now, ch: make(chan time.Time)}
}

func (m *manualTicks) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTicks) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, d)
	return m.ch
}

func (m *manualTicks) fire() { m.ch <- m.Now() }

type countingSweep struct {
	name  string
	runs  atomic.Int32
	block chan struct{}
	panic bool
}

func (c *countingSweep) Name() string { return c.name }

func (c *countingSweep) Run(context.Context) (Report, error) {
	c.runs.Add(1)
	if c.block != nil {
		<-c.block
	}
	if c.panic {
		panic("boom")
	}
	return Report{Selected: 1, Processed: 1}, nil
}

func TestSchedules(t *testing.T) {
	at := time.Date(2030, 3, 1, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, at.Add(5*time.Minute), Every(5*time.Minute).Next(at))
	assert.Equal(t, time.Date(2030, 3, 1, 12, 31, 0, 0, time.UTC), Every(time.Minute).Next(at.Add(300*time.Millisecond)), "run time does not push the next tick")
	assert.Equal(t, time.Date(2030, 3, 1, 12, 35, 0, 0, time.UTC), Every(5*time.Minute).Next(at.Add(4*time.Minute+59*time.Second)))
	assert.Equal(t, time.Date(2030, 3, 2, 2, 0, 0, 0, time.UTC), DailyAt(2).Next(at))
	assert.Equal(t, time.Date(2030, 3, 1, 13, 0, 0, 0, time.UTC), DailyAt(13).Next(at))
	assert.Equal(t, time.Date(2030, 3, 2, 12, 0, 0, 0, time.UTC), DailyAt(12).Next(time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestScheduler(t *testing.T) {
	t.Run("Given a started scheduler, When ticks fire, Then the sweep runs once per tick", func(t *testing.T) {
		ticks := newManualTicks(time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC))
		sweep := &countingSweep{name: "count"}
		s := NewScheduler(zap.NewNop(), WithTickSource(ticks))
		s.Add(sweep, Every(time.Minute))

		s.Start(context.Background())
		ticks.fire()
		ticks.fire()
		s.Stop()

		assert.GreaterOrEqual(t, sweep.runs.Load(), int32(1))
		ticks.mu.Lock()
		assert.Equal(t, time.Minute, ticks.waits[0])
		ticks.mu.Unlock()
	})

	t.Run("Given the clock drifted past a boundary during a run, When the next tick is planned, Then it waits only until the next boundary", func(t *testing.T) {
		ticks := newManualTicks(time.Date(2030, 3, 1, 12, 0, 0, 300_000_000, time.UTC))
		s := NewScheduler(zap.NewNop(), WithTickSource(ticks))
		s.Add(&countingSweep{name: "drift"}, Every(time.Minute))

		s.Start(context.Background())
		require.Eventually(t, func() bool {
			ticks.mu.Lock()
			defer ticks.mu.Unlock()
			return len(ticks.waits) > 0
		}, time.Second, time.Millisecond)
		s.Stop()

		ticks.mu.Lock()
		defer ticks.mu.Unlock()
		assert.Equal(t, 59700*time.Millisecond, ticks.waits[0])
	})

	t.Run("Given an unknown name, When RunOnce is called, Then it fails", func(t *testing.T) {
		s := NewScheduler(zap.NewNop())
		_, err := s.RunOnce(context.Background(), "nope")
		assert.Error(t, err)
	})

	t.Run("Given a run in progress, When the sweep is triggered again, Then the second run is skipped", func(t *testing.T) {
		sweep := &countingSweep{name: "slow", block: make(chan struct{})}
		s := NewScheduler(zap.NewNop())
		s.Add(sweep, Every(time.Minute))

		done := make(chan struct{})
		go func() {
			_, _ = s.RunOnce(context.Background(), "slow")
			close(done)
		}()
		require.Eventually(t, func() bool { return sweep.runs.Load() == 1 }, time.Second, time.Millisecond)

		report, err := s.RunOnce(context.Background(), "slow")
		require.NoError(t, err)
		assert.Equal(t, Report{}, report)

		close(sweep.block)
		<-done
		assert.Equal(t, int32(1), sweep.runs.Load())
	})

	t.Run("Given the lock is held elsewhere, When the sweep runs, Then it does nothing", func(t *testing.T) {
		locker := cache.NewMemoryLocker()
		unlock, ok, err := locker.TryLock(context.Background(), "sweep:locked", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		defer unlock()

		sweep := &countingSweep{name: "locked"}
		s := NewScheduler(zap.NewNop(), WithLocker(locker, time.Minute))
		s.Add(sweep, Every(time.Minute))

		_, err = s.RunOnce(context.Background(), "locked")
		require.NoError(t, err)
		assert.Zero(t, sweep.runs.Load())
	})

	t.Run("Given a panicking sweep, When it runs, Then the scheduler recovers and can run it again", func(t *testing.T) {
		sweep := &countingSweep{name: "panics", panic: true}
		s := NewScheduler(zap.NewNop())
		s.Add(sweep, Every(time.Minute))

		assert.NotPanics(t, func() { _, _ = s.RunOnce(context.Background(), "panics") })
		assert.NotPanics(t, func() { _, _ = s.RunOnce(context.Background(), "panics") })
		assert.Equal(t, int32(2), sweep.runs.Load())
		assert.Equal(t, []string{"panics"}, s.Names())
	})
}
