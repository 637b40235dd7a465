package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultInterval      = 60 * time.Second
	DefaultRetryInterval = 10 * time.Second
	DefaultDebounce      = 2 * time.Second
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// CycleRunner runs a single sync cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

type SchedulerConfig struct {
	// Interval is the wait after a completed cycle.
	Interval time.Duration
	// RetryInterval is the wait after a cycle-level failure.
	RetryInterval time.Duration
	// Debounce is how long a nudged wait lasts at most.
	Debounce time.Duration
	Clock    clockwork.Clock
	Nudge    <-chan struct{}
	// OnWait is called once the wait before the next cycle has started.
	OnWait func(wait time.Duration, cycleErr error)
}

// Scheduler drives cycles one after the other until its context is done.
type Scheduler struct {
	runner CycleRunner
	cfg    SchedulerConfig

	mu      sync.RWMutex
	state   State
	nextRun time.Time
}

func NewScheduler(runner CycleRunner, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		state:  StateIdle,
	}
}

// NextWait is the idle time after a cycle that returned err.
func (s *Scheduler) NextWait(err error) time.Duration {
	if err != nil && !errors.Is(err, ErrSyncAlreadyRunning) {
		return s.cfg.RetryInterval
	}
	return s.cfg.Interval
}

func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// NextRun is when the next cycle is due. Zero while a cycle runs.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRun
}

func (s *Scheduler) setState(state State, next time.Time) {
	s.mu.Lock()
	s.state = state
	s.nextRun = next
	s.mu.Unlock()
}

// Run loops until ctx is done and then returns ctx.Err(). A cycle in flight gets
// the same ctx, so its remote calls stop with the process.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler start", "interval", s.cfg.Interval, "retryInterval", s.cfg.RetryInterval)
	defer slog.Info("scheduler stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setState(StateRunning, time.Time{})
		report, err := s.runner.RunCycle(ctx)

		if ctxErr := ctx.Err(); ctxErr != nil {
			s.setState(StateIdle, time.Time{})
			return ctxErr
		}

		if err != nil {
			slog.Error("sync cycle failed", "error", err, "report", report)
		} else if report != nil {
			slog.Info("sync cycle done", "report", report)
		}

		if err := s.wait(ctx, s.NextWait(err), err); err != nil {
			return err
		}
	}
}

// wait blocks for d. The first nudge that arrives while more than the debounce
// remains cuts the wait down to the debounce. Later nudges do not extend it.
func (s *Scheduler) wait(ctx context.Context, d time.Duration, cycleErr error) error {
	clock := s.cfg.Clock
	deadline := clock.Now().Add(d)
	timer := clock.NewTimer(d)
	defer timer.Stop()

	s.setState(StateIdle, deadline)
	if s.cfg.OnWait != nil {
		s.cfg.OnWait(d, cycleErr)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.Chan():
			return nil
		case <-s.cfg.Nudge:
			if deadline.Sub(clock.Now()) <= s.cfg.Debounce {
				continue
			}
			slog.Debug("scheduler nudged", "in", s.cfg.Debounce)
			timer.Reset(s.cfg.Debounce)
			deadline = clock.Now().Add(s.cfg.Debounce)
			s.setState(StateIdle, deadline)
		}
	}
}

// Nudger fans nudges from any number of sources into one channel without blocking.
type Nudger struct {
	ch chan struct{}
}

func NewNudger() *Nudger {
	return &Nudger{ch: make(chan struct{}, 1)}
}

// Nudge asks for an early cycle. Nudges coalesce while one is pending.
func (n *Nudger) Nudge() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Nudger) C() <-chan struct{} {
	return n.ch
}
