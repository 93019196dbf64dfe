package animation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlanticdynamic/inklynx/internal/animation/finitestate"
	"github.com/robbyt/go-supervisor/supervisor"
)

var (
	_ supervisor.Runnable  = (*Runner)(nil)
	_ supervisor.Stateable = (*Runner)(nil)
)

// Runner drives a Timeline under go-supervisor, ticking at the animation's
// frame rate until the context is canceled, Stop is called, or a
// non-looping animation completes.
type Runner struct {
	timeline *Timeline

	logger *slog.Logger
	fsm    finitestate.Machine

	runCtx    context.Context
	runCancel context.CancelFunc
	parentCtx context.Context
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogHandler sets a custom slog handler.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler).WithGroup("animation.Runner")
		}
	}
}

// WithContext sets a parent context; its cancellation stops playback.
func WithContext(ctx context.Context) Option {
	return func(r *Runner) {
		if ctx != nil {
			r.parentCtx = ctx
		}
	}
}

// NewRunner creates a playback runner over timeline.
func NewRunner(timeline *Timeline, opts ...Option) (*Runner, error) {
	if timeline == nil {
		return nil, fmt.Errorf("timeline cannot be nil")
	}

	runner := &Runner{
		timeline:  timeline,
		logger:    slog.Default().WithGroup("animation.Runner"),
		parentCtx: context.Background(),
	}

	for _, opt := range opts {
		opt(runner)
	}

	fsm, err := finitestate.New(runner.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	runner.fsm = fsm

	return runner, nil
}

// String implements the supervisor.Runnable interface
func (r *Runner) String() string {
	return "animation.Runner"
}

// Run implements the supervisor.Runnable interface. It starts playback and
// blocks, ticking the timeline once per frame interval, until the context
// is canceled or a non-looping animation finishes.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("Starting Runner")

	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return fmt.Errorf("failed to transition to booting state: %w", err)
	}

	r.runCtx, r.runCancel = context.WithCancel(ctx)
	defer r.runCancel()

	done := make(chan struct{})
	r.timeline.SetOnComplete(func() { close(done) })
	r.timeline.Play()

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		return fmt.Errorf("failed to transition to running state: %w", err)
	}

	interval := time.Duration(float64(time.Second) / r.timeline.anim.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-r.parentCtx.Done():
			r.logger.Debug("Parent context canceled")
			return r.shutdown()
		case <-r.runCtx.Done():
			r.logger.Debug("Run context canceled")
			return r.shutdown()
		case <-done:
			r.logger.Debug("Animation completed")
			return r.shutdown()
		case now := <-ticker.C:
			r.timeline.Tick(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Stop implements the supervisor.Runnable interface
func (r *Runner) Stop() {
	r.logger.Debug("Stopping Runner")
	if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
		r.logger.Error("Failed to transition to stopping state", "error", err)
	}
	if r.runCancel != nil {
		r.runCancel()
	}
}

// GetState implements the supervisor.Stateable interface
func (r *Runner) GetState() string {
	return r.fsm.GetState()
}

// GetStateChan implements the supervisor.Stateable interface
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.fsm.GetStateChan(ctx)
}

// IsRunning implements the supervisor.Stateable interface
func (r *Runner) IsRunning() bool {
	return r.fsm.GetState() == finitestate.StatusRunning
}

func (r *Runner) shutdown() error {
	r.timeline.Pause()

	if r.fsm.GetState() != finitestate.StatusStopping {
		if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
			r.logger.Error("Failed to transition to stopping state", "error", err)
		}
	}
	if err := r.fsm.Transition(finitestate.StatusStopped); err != nil {
		return fmt.Errorf("failed to transition to stopped state: %w", err)
	}
	return nil
}
