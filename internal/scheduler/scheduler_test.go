package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PivotScreener/internal/model"
)

// fakeRunner mimics the scanner's single-flight guard.
type fakeRunner struct {
	mu       sync.Mutex
	hold     time.Duration
	err      error
	started  atomic.Int32
	rejected atomic.Int32
	active   atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeRunner) RunCycle(ctx context.Context) (*model.CycleReport, error) {
	if !f.mu.TryLock() {
		f.rejected.Add(1)
		return nil, model.ErrCycleInProgress
	}
	defer f.mu.Unlock()

	f.started.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	select {
	case <-time.After(f.hold):
	case <-ctx.Done():
	}
	return &model.CycleReport{Outcome: model.OutcomeNoSignals}, f.err
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(context.Background(), r, nil)
	require.NoError(t, s.Register("@every 1h"))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return r.started.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_DropsOverlappingTicks(t *testing.T) {
	r := &fakeRunner{hold: 1500 * time.Millisecond}
	s := NewScheduler(context.Background(), r, nil)
	require.NoError(t, s.Register("@every 1s"))

	s.Start()
	require.Eventually(t, func() bool { return r.rejected.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), r.maxSeen.Load(), "never more than one active cycle")
}

func TestScheduler_SurvivesErrors(t *testing.T) {
	r := &fakeRunner{err: errors.New("upstream exploded")}
	s := NewScheduler(context.Background(), r, nil)

	assert.NotPanics(t, s.scanTask)
	r.err = model.ErrUniverseUnavailable
	assert.NotPanics(t, s.scanTask)
	r.err = model.ErrPersistence
	assert.NotPanics(t, s.scanTask)
	assert.Equal(t, int32(3), r.started.Load())
}

func TestScheduler_RunNow(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(context.Background(), r, nil)

	rep, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoSignals, rep.Outcome)
}

func TestScheduler_RegisterRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil)
	assert.Error(t, s.Register("every three minutes"))
}

func TestScheduler_StopInterruptsViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{hold: time.Hour}
	s := NewScheduler(ctx, r, nil)
	require.NoError(t, s.Register("@every 1h"))

	s.Start()
	require.Eventually(t, func() bool { return r.started.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	stopped := make(chan struct{})
	go func() { s.Stop(); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
