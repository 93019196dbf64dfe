// Package scheduler serializes script executions for one script instance.
// Requests arrive from several asynchronous sources (manual runs, control
// edits, animation ticks); the scheduler guarantees at most one script
// body executes at a time, runs queued requests in FIFO arrival order, and
// short-circuits render-only "fast path" requests when a ready
// precompute/render pipeline already holds the needed frames.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/atlanticdynamic/inklynx/internal/scheduler/finitestate"
)

// Request is one execution trigger. Immutable once submitted.
type Request struct {
	// ControlValuesOverride replaces durable control values for this run.
	ControlValuesOverride map[string]any

	// IncludeControlsUpdate asks the executor to surface the declared
	// control set in the outcome, for triggers that refresh the UI.
	IncludeControlsUpdate bool

	// AnimationTime, when set, marks this request as an animation-driven
	// frame render at the given time in seconds. Such requests are fast
	// path candidates.
	AnimationTime *float64
}

// clone detaches the request from caller-held maps.
func (r Request) clone() Request {
	r.ControlValuesOverride = maps.Clone(r.ControlValuesOverride)
	return r
}

// Executor runs one full script execution for a request. Implementations
// report script failures through their own outcome state; an error return
// is logged and the queue keeps draining.
type Executor interface {
	Execute(ctx context.Context, req Request) error
}

// Pipeline is the render-only surface the fast path needs.
type Pipeline interface {
	// Attached reports whether a precompute/render pipeline exists.
	Attached() bool
	// Ready reports whether render calls can be served from cache.
	Ready() bool
	// FPS returns the frame rate used to quantize animation time.
	FPS() float64
	// ExecuteRender paints the frame at a fractional index.
	ExecuteRender(frameIndex float64) bool
}

// Scheduler owns the execution queue and state for one script instance.
type Scheduler struct {
	mu       sync.Mutex
	queue    []Request
	fsm      finitestate.Machine
	exec     Executor
	pipeline Pipeline
	logger   *slog.Logger
}

// New creates a scheduler for one script instance. pipeline may be nil
// when the instance never registers precompute/render hooks.
func New(exec Executor, pipeline Pipeline, logger *slog.Logger) (*Scheduler, error) {
	if exec == nil {
		return nil, fmt.Errorf("scheduler requires an executor")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	machine, err := finitestate.New(logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}

	return &Scheduler{
		fsm:      machine,
		exec:     exec,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// State returns the current execution state.
func (s *Scheduler) State() string {
	return s.fsm.GetState()
}

// QueueLen returns the number of requests waiting behind the current one.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Submit routes one execution request. When the scheduler is busy the
// request joins the FIFO queue (or, for an animation-time request arriving
// mid-precompute, is dropped: the full re-run in flight obsoletes it).
// When idle, the request runs immediately on the calling goroutine,
// followed by every request queued behind it before the scheduler reports
// idle again.
//
// The returned error is the submitting request's execution error; errors
// from drained queue entries are logged.
func (s *Scheduler) Submit(ctx context.Context, req Request) error {
	req = req.clone()

	s.mu.Lock()
	if s.fsm.GetState() != finitestate.StatusIdle {
		if req.AnimationTime != nil && s.fsm.GetState() == finitestate.StatusPrecomputing {
			s.mu.Unlock()
			s.logger.Warn("dropping animation frame request during precompute",
				"animation_time", *req.AnimationTime)
			return nil
		}
		s.queue = append(s.queue, req)
		s.mu.Unlock()
		return nil
	}

	// Fast path: an explicit animation time against a ready pipeline only
	// needs the render phase; re-running the full script body would be
	// wasted work.
	if req.AnimationTime != nil && s.pipeline != nil && s.pipeline.Attached() && s.pipeline.Ready() {
		if !s.fsm.TransitionBool(finitestate.StatusRendering) {
			s.mu.Unlock()
			return fmt.Errorf("failed to enter rendering state")
		}
		s.mu.Unlock()

		frameIndex := *req.AnimationTime * s.pipeline.FPS()
		ok := s.pipeline.ExecuteRender(frameIndex)

		s.drainAndIdle(ctx)
		if !ok {
			return fmt.Errorf("render failed at frame %v", frameIndex)
		}
		return nil
	}

	if err := s.enterFullRunState(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	err := s.exec.Execute(ctx, req)
	if err != nil {
		s.logger.Error("execution failed", "error", err)
	}

	s.drainAndIdle(ctx)
	return err
}

// enterFullRunState transitions into the state a full execution occupies:
// precomputing when a pipeline is attached, rendering otherwise. Caller
// holds the mutex.
func (s *Scheduler) enterFullRunState() error {
	target := finitestate.StatusRendering
	if s.pipeline != nil && s.pipeline.Attached() {
		target = finitestate.StatusPrecomputing
	}
	if !s.fsm.TransitionBool(target) {
		return fmt.Errorf("failed to enter %s state from %s", target, s.fsm.GetState())
	}
	return nil
}

// drainAndIdle pops and runs every queued request in arrival order, then
// transitions to idle. The idle transition happens only after the queue is
// empty; returning to idle with work still queued would silently drop
// animation frames.
func (s *Scheduler) drainAndIdle(ctx context.Context) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if err := s.fsm.Transition(finitestate.StatusIdle); err != nil {
				s.logger.Error("failed to transition to idle", "error", err)
			}
			s.mu.Unlock()
			return
		}

		next := s.queue[0]
		s.queue = s.queue[1:]
		if err := s.enterFullRunState(); err != nil {
			s.logger.Error("failed to start queued request", "error", err)
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		if err := s.exec.Execute(ctx, next); err != nil {
			s.logger.Error("queued execution failed", "error", err)
		}
	}
}
