package script

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/atlanticdynamic/inklynx/internal/animation"
	"github.com/atlanticdynamic/inklynx/internal/board"
	"github.com/atlanticdynamic/inklynx/internal/controls"
	"github.com/atlanticdynamic/inklynx/internal/guard"
)

const (
	// DefaultTimeout bounds one script body evaluation.
	DefaultTimeout = 5 * time.Second

	// backstopGrace is how long past the cooperative budget the hard
	// cancellation waits, giving the guard check first claim on the
	// timeout.
	backstopGrace = 250 * time.Millisecond

	// DefaultFPS applies when a script sets no frame rate of its own.
	DefaultFPS = 30.0

	// DefaultMaxFPS caps the frame rate a script may request.
	DefaultMaxFPS = 120.0
)

// fileOptions enables the dialect features scripts rely on: while loops,
// top-level control flow, set literals, reassignable globals, and
// recursion.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Engine evaluates one script source. It rewrites the source once at
// construction, injecting a cooperative guard check into every loop body,
// and evaluates the rewritten form per run with a fresh capability
// environment. Not safe for concurrent use; the execution scheduler
// serializes runs.
type Engine struct {
	name       string
	source     string
	rewritten  string
	budget     time.Duration
	defaultFPS float64
	maxFPS     float64
	clock      func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the evaluation time budget.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.budget = d
		}
	}
}

// WithDefaultFPS sets the frame rate used when a script declares none.
func WithDefaultFPS(fps float64) Option {
	return func(e *Engine) {
		if fps > 0 {
			e.defaultFPS = fps
		}
	}
}

// WithMaxFPS caps the frame rate scripts may request via set_fps or
// animate.
func WithMaxFPS(fps float64) Option {
	return func(e *Engine) {
		if fps > 0 {
			e.maxFPS = fps
		}
	}
}

// WithLogHandler sets the handler for the engine's logger.
func WithLogHandler(handler slog.Handler) Option {
	return func(e *Engine) {
		if handler != nil {
			e.logger = slog.New(handler).With("component", "script")
		}
	}
}

// withClock injects the guard's clock. Test hook.
func withClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// NewEngine creates an engine for the given source. The source is parsed
// eagerly so malformed scripts fail at creation, not at first run.
func NewEngine(name, source string, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	e := &Engine{
		name:       name,
		source:     source,
		budget:     DefaultTimeout,
		defaultFPS: DefaultFPS,
		maxFPS:     DefaultMaxFPS,
		logger:     slog.Default().With("component", "script"),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.rewritten = guard.RewriteSource(source, GuardCheckName)
	if _, err := fileOptions.Parse(e.name, e.rewritten, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return e, nil
}

// Validate parses source without executing it, returning the compile
// error if any.
func Validate(name, source string) error {
	if strings.TrimSpace(source) == "" {
		return ErrEmptySource
	}
	if _, err := fileOptions.Parse(name, source, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return nil
}

// Budget returns the engine's evaluation time budget.
func (e *Engine) Budget() time.Duration {
	return e.budget
}

// Source returns the original, unrewritten source.
func (e *Engine) Source() string {
	return e.source
}

// runState carries everything one evaluation accumulates: the guard, the
// control declarations, the output scene, the pipeline hooks, and the
// animation declaration. A fresh runState is built for every run so no
// state leaks between executions.
type runState struct {
	ownerID  string
	guard    *guard.Guard
	timedOut atomic.Bool

	builder  *controls.Builder
	durable  map[string]any
	override map[string]any

	scene *Scene
	board board.Accessor

	anim        *animation.Animation
	fps         float64
	maxFPS      float64
	totalFrames int

	precomputeFn starlark.Callable
	renderFn     starlark.Callable
}

// Outcome is the result of one script body evaluation.
type Outcome struct {
	// LastExecuted is when the evaluation finished.
	LastExecuted time.Time

	// Error holds the user-facing error message, empty on success.
	Error string

	// TimedOut reports whether the evaluation exceeded its budget.
	TimedOut bool

	// Controls is the control set the run declared, in declaration order.
	Controls []controls.Control

	// ControlValues maps control labels to their resolved values.
	ControlValues map[string]any

	// Animation is the animation the run declared, nil when none.
	Animation *animation.Animation

	// VisualizationContent is the serialized output scene.
	VisualizationContent string
}

// Failed reports whether the run ended in an error.
func (o Outcome) Failed() bool {
	return o.Error != ""
}

// evalResult carries the products of one top-level evaluation that the
// outcome does not: the registered pipeline hooks and run parameters.
type evalResult struct {
	outcome Outcome
	rs      *runState
	globals starlark.StringDict
	evalErr error
}

// run evaluates the rewritten source top to bottom with a fresh
// capability environment.
func (e *Engine) run(ownerID string, boardAcc board.Accessor, durable, override map[string]any) *evalResult {
	rs := &runState{
		ownerID:  ownerID,
		builder:  controls.NewBuilder(),
		durable:  durable,
		override: override,
		scene:    &Scene{},
		board:    boardAcc,
		fps:      e.defaultFPS,
		maxFPS:   e.maxFPS,
	}
	if e.clock != nil {
		rs.guard = guard.NewWithClock(e.budget, e.clock)
	} else {
		rs.guard = guard.New(e.budget)
	}

	thread := &starlark.Thread{
		Name: e.name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Info("script print", "script", e.name, "msg", msg)
		},
	}
	disarm := rs.armBackstop(thread, e.budget)
	defer disarm()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, e.name, e.rewritten, newPredeclared(rs))

	result := &evalResult{rs: rs, globals: globals, evalErr: err}
	result.outcome = e.buildOutcome(rs, err)
	return result
}

// buildOutcome classifies the evaluation error and snapshots the run's
// declarations. A run counts as timed out only when evaluation actually
// failed and a timeout flag fired; a guard that trips after the last
// statement is inert.
func (e *Engine) buildOutcome(rs *runState, evalErr error) Outcome {
	out := Outcome{
		LastExecuted:  time.Now(),
		Controls:      rs.builder.Finalize(),
		ControlValues: rs.builder.Values(),
		Animation:     rs.anim,
	}

	if content, err := rs.scene.Serialize(); err == nil {
		out.VisualizationContent = content
	} else {
		e.logger.Error("scene serialization failed", "script", e.name, "error", err)
	}

	if evalErr == nil {
		return out
	}
	if rs.timedOut.Load() {
		out.TimedOut = true
		out.Error = timeoutMessage(e.budget)
		return out
	}
	out.Error = truncateError(evalErr.Error())
	return out
}

// callErr unwraps a Starlark EvalError to its message with backtrace for
// logging while keeping the display form short.
func callErr(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	return err.Error()
}
