package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner returns the scripted errors in order, then nil forever.
type scriptedRunner struct {
	mu     sync.Mutex
	errs   []error
	cycles int
}

func (r *scriptedRunner) RunCycle(context.Context) (*CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles++
	if len(r.errs) == 0 {
		return newCycleReport(), nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return nil, err
}

func (r *scriptedRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles
}

type advancingClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type waitEvent struct {
	wait time.Duration
	err  error
}

func startScheduler(t *testing.T, runner CycleRunner, nudge <-chan struct{}) (*Scheduler, advancingClock, <-chan waitEvent, context.CancelFunc, <-chan error) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	waits := make(chan waitEvent, 16)
	s := NewScheduler(runner, SchedulerConfig{
		Interval:      time.Minute,
		RetryInterval: 10 * time.Second,
		Debounce:      2 * time.Second,
		Clock:         clock,
		Nudge:         nudge,
		OnWait: func(d time.Duration, err error) {
			waits <- waitEvent{d, err}
		},
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	return s, clock, waits, cancel, done
}

func nextWait(t *testing.T, waits <-chan waitEvent) waitEvent {
	t.Helper()
	select {
	case w := <-waits:
		return w
	case <-time.After(2 * time.Second):
		require.FailNow(t, "scheduler did not start waiting")
		return waitEvent{}
	}
}

func TestScheduler_NextWait(t *testing.T) {
	s := NewScheduler(&scriptedRunner{}, SchedulerConfig{Interval: time.Minute, RetryInterval: 10 * time.Second})

	assert.Equal(t, time.Minute, s.NextWait(nil))
	assert.Equal(t, 10*time.Second, s.NextWait(&CycleError{Stage: StageScan, Err: errors.New("gone")}))
	assert.Equal(t, time.Minute, s.NextWait(ErrSyncAlreadyRunning))
}

func TestScheduler_Defaults(t *testing.T) {
	s := NewScheduler(&scriptedRunner{}, SchedulerConfig{})
	assert.Equal(t, DefaultInterval, s.NextWait(nil))
	assert.Equal(t, DefaultRetryInterval, s.NextWait(errors.New("x")))
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_BackoffDistinction(t *testing.T) {
	runner := &scriptedRunner{errs: []error{
		&CycleError{Stage: StageCredential, Err: errors.New("denied")},
		&CycleError{Stage: StageScan, Err: errors.New("root gone")},
	}}
	s, clock, waits, cancel, done := startScheduler(t, runner, nil)

	w := nextWait(t, waits)
	assert.Equal(t, 10*time.Second, w.wait)
	assert.Error(t, w.err)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, clock.Now().Add(10*time.Second), s.NextRun())

	clock.Advance(10 * time.Second)
	w = nextWait(t, waits)
	assert.Equal(t, 10*time.Second, w.wait)

	clock.Advance(10 * time.Second)
	w = nextWait(t, waits)
	assert.Equal(t, time.Minute, w.wait)
	assert.NoError(t, w.err)

	// not due yet
	clock.Advance(30 * time.Second)
	assert.Equal(t, 3, runner.count())

	clock.Advance(30 * time.Second)
	w = nextWait(t, waits)
	assert.Equal(t, time.Minute, w.wait)
	assert.Equal(t, 4, runner.count())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_NudgeShortensWait(t *testing.T) {
	runner := &scriptedRunner{}
	nudger := NewNudger()
	_, clock, waits, cancel, done := startScheduler(t, runner, nudger.C())
	defer func() {
		cancel()
		<-done
	}()

	nextWait(t, waits)
	assert.Equal(t, 1, runner.count())

	nudger.Nudge()
	nudger.Nudge()

	require.Eventually(t, func() bool {
		clock.Advance(500 * time.Millisecond)
		return runner.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	w := nextWait(t, waits)
	assert.Equal(t, time.Minute, w.wait)
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	runner := &scriptedRunner{}
	_, _, waits, cancel, done := startScheduler(t, runner, nil)

	nextWait(t, waits)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "scheduler did not stop")
	}
	assert.Equal(t, 1, runner.count())
}

func TestNudger_Coalesces(t *testing.T) {
	n := NewNudger()
	n.Nudge()
	n.Nudge()

	<-n.C()
	select {
	case <-n.C():
		t.Fatal("nudges should coalesce")
	default:
	}
}
