package script

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.starlark.net/starlark"

	"github.com/atlanticdynamic/inklynx/internal/animation"
	"github.com/atlanticdynamic/inklynx/internal/board"
	"github.com/atlanticdynamic/inklynx/internal/framecache"
	"github.com/atlanticdynamic/inklynx/internal/guard"
	"github.com/atlanticdynamic/inklynx/internal/pipeline"
	"github.com/atlanticdynamic/inklynx/internal/scheduler"
)

// Instance binds one script to its execution machinery: the engine that
// evaluates the source, the precompute/render pipeline, the scheduler
// that serializes triggers, and the durable control values that survive
// across runs. It is both the scheduler's executor and its fast-path
// pipeline.
type Instance struct {
	id     string
	engine *Engine
	pipe   *pipeline.Engine
	sched  *scheduler.Scheduler
	board  board.Accessor
	logger *slog.Logger

	mu       sync.Mutex
	durable  map[string]any
	lastRun  *runState
	outcome  Outcome
	timeline *animation.Timeline

	// pipelineRun is the run whose hooks are bound to the pipeline. It
	// diverges from lastRun when a later run fails before binding: fast
	// path renders keep drawing into this run's scene.
	pipelineRun *runState
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithBoard sets the canvas accessor scripts operate on. Defaults to an
// empty in-memory board.
func WithBoard(acc board.Accessor) InstanceOption {
	return func(i *Instance) {
		if acc != nil {
			i.board = acc
		}
	}
}

// WithInstanceLogHandler sets the handler for the instance's logger.
func WithInstanceLogHandler(handler slog.Handler) InstanceOption {
	return func(i *Instance) {
		if handler != nil {
			i.logger = slog.New(handler)
		}
	}
}

// NewInstance creates an instance around an engine.
func NewInstance(engine *Engine, opts ...InstanceOption) (*Instance, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: instance requires an engine", ErrScript)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating instance id: %w", err)
	}

	inst := &Instance{
		id:      id.String(),
		engine:  engine,
		board:   board.NewMemory(board.Viewport{Width: 1920, Height: 1080, Zoom: 1}, board.Position{}),
		logger:  slog.Default(),
		durable: make(map[string]any),
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.logger = inst.logger.With("component", "instance", "script", engine.name)
	inst.pipe = pipeline.New(inst.logger)

	sched, err := scheduler.New(inst, inst, inst.logger)
	if err != nil {
		return nil, err
	}
	inst.sched = sched
	return inst, nil
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// String implements fmt.Stringer.
func (i *Instance) String() string {
	return fmt.Sprintf("Instance<%s>", i.engine.name)
}

// Run submits one execution request through the scheduler. The call
// returns once the request and everything queued behind it has drained.
func (i *Instance) Run(ctx context.Context, req scheduler.Request) error {
	return i.sched.Submit(ctx, req)
}

// Outcome returns the result of the most recent full execution.
func (i *Instance) Outcome() Outcome {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.outcome
}

// Timeline returns the animation timeline declared by the last run, nil
// when the script declared no animation.
func (i *Instance) Timeline() *animation.Timeline {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.timeline
}

// Cache exposes the pipeline's frame cache.
func (i *Instance) Cache() *framecache.Cache {
	return i.pipe.Cache()
}

// ControlValues returns a copy of the durable control values.
func (i *Instance) ControlValues() map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return maps.Clone(i.durable)
}

// Execute runs the full execution path for one request: evaluate the
// script body, persist resolved control values, rebind the pipeline
// hooks, run precompute when a pipeline attached, rebuild the animation
// timeline, and paint the first frame. Script failures land in the
// outcome; the returned error is reserved for infrastructure faults.
func (i *Instance) Execute(_ context.Context, req scheduler.Request) error {
	i.mu.Lock()
	durable := maps.Clone(i.durable)
	i.mu.Unlock()

	result := i.engine.run(i.id, i.board, durable, req.ControlValuesOverride)
	out := result.outcome

	i.mu.Lock()
	for label, value := range out.ControlValues {
		i.durable[label] = value
	}
	i.mu.Unlock()

	if out.Failed() {
		i.logger.Warn("script execution failed",
			"timed_out", out.TimedOut, "error", out.Error)
		if result.evalErr != nil {
			i.logger.Debug("script backtrace", "trace", callErr(result.evalErr))
		}
		i.storeOutcome(out, result.rs)
		return nil
	}

	i.bindPipeline(result.rs)

	if i.pipe.Attached() {
		if err := i.pipe.ExecutePrecompute(out.ControlValues); err != nil {
			out.Error = truncateError(err.Error())
			out.TimedOut = result.rs.timedOut.Load()
			if out.TimedOut {
				out.Error = timeoutMessage(i.engine.budget)
			}
			i.logger.Warn("precompute failed", "error", out.Error)
			i.storeOutcome(out, result.rs)
			return nil
		}

		frameIndex := 0.0
		if req.AnimationTime != nil {
			frameIndex = *req.AnimationTime * result.rs.fps
		}
		i.pipe.ExecuteRender(frameIndex)
		if content, err := result.rs.scene.Serialize(); err == nil {
			out.VisualizationContent = content
		}
	}

	i.rebuildTimeline(out.Animation, out.ControlValues)
	i.storeOutcome(out, result.rs)
	return nil
}

func (i *Instance) storeOutcome(out Outcome, rs *runState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.outcome = out
	i.lastRun = rs
}

// bindPipeline rebinds the pipeline hooks to the callables the run just
// registered. A run that registers neither hook detaches the pipeline.
func (i *Instance) bindPipeline(rs *runState) {
	if rs.precomputeFn == nil || rs.renderFn == nil {
		i.pipe.SetPrecompute(nil)
		i.pipe.SetRender(nil)
		i.setPipelineRun(nil)
		return
	}
	i.pipe.SetTotalFrames(rs.totalFrames)
	i.pipe.SetPrecompute(i.precomputeAdapter(rs))
	i.pipe.SetRender(i.renderAdapter(rs))
	i.setPipelineRun(rs)
}

func (i *Instance) setPipelineRun(rs *runState) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pipelineRun = rs
}

// precomputeAdapter wraps the script's precompute callable as a pipeline
// hook. Each invocation gets a fresh guard and backstop so the phase has
// its own time budget.
func (i *Instance) precomputeAdapter(rs *runState) pipeline.PrecomputeFunc {
	return func(register pipeline.RegisterFrame) error {
		registerFrame := starlark.NewBuiltin("register_frame", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var index int
			var data starlark.Value
			if err := starlark.UnpackArgs("register_frame", args, kwargs,
				"index", &index, "data", &data); err != nil {
				return nil, err
			}
			frame, err := stringMapFromStarlark(data)
			if err != nil {
				return nil, fmt.Errorf("register_frame: %w", err)
			}
			register(index, frame)
			return starlark.None, nil
		})

		_, err := i.callHook(rs, rs.precomputeFn, starlark.Tuple{registerFrame})
		return err
	}
}

// renderAdapter wraps the script's render callable as a pipeline hook.
// The output scene is cleared before each call so every rendered frame
// replaces the previous visualization in full.
func (i *Instance) renderAdapter(rs *runState) pipeline.RenderFunc {
	return func(frameIndex float64, frame framecache.FrameData, controlValues map[string]any) error {
		rs.scene.Clear()

		frameArg := starlark.Value(starlark.None)
		if frame != nil {
			frameArg = toStarlark(map[string]any(frame))
		}
		args := starlark.Tuple{
			starlark.Float(frameIndex),
			frameArg,
			toStarlark(anyMap(controlValues)),
		}
		_, err := i.callHook(rs, rs.renderFn, args)
		return err
	}
}

// callHook invokes one registered callable under a fresh guard and
// backstop timer, classifying timeout failures the same way top-level
// evaluation does.
func (i *Instance) callHook(rs *runState, fn starlark.Callable, args starlark.Tuple) (starlark.Value, error) {
	rs.timedOut.Store(false)
	if i.engine.clock != nil {
		rs.guard = guard.NewWithClock(i.engine.budget, i.engine.clock)
	} else {
		rs.guard = guard.New(i.engine.budget)
	}

	thread := &starlark.Thread{
		Name: i.engine.name,
		Print: func(_ *starlark.Thread, msg string) {
			i.logger.Info("script print", "msg", msg)
		},
	}
	disarm := rs.armBackstop(thread, i.engine.budget)
	defer disarm()

	value, err := starlark.Call(thread, fn, args, nil)
	if err != nil && rs.timedOut.Load() {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, timeoutMessage(i.engine.budget))
	}
	return value, err
}

// rebuildTimeline replaces the animation timeline when the run declared
// an animation. Timeline ticks dispatch back into the scheduler as
// animation-time requests, which qualify for the render fast path.
func (i *Instance) rebuildTimeline(anim *animation.Animation, baseline map[string]any) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if anim == nil {
		i.timeline = nil
		return
	}

	dispatch := func(values map[string]any, t float64, _ bool) {
		animTime := t
		req := scheduler.Request{
			ControlValuesOverride: values,
			AnimationTime:         &animTime,
		}
		if err := i.sched.Submit(context.Background(), req); err != nil {
			i.logger.Error("animation dispatch failed", "time", t, "error", err)
		}
	}
	i.timeline = animation.NewTimeline(anim, maps.Clone(baseline), dispatch, i.logger)
}

// Attached implements scheduler.Pipeline.
func (i *Instance) Attached() bool { return i.pipe.Attached() }

// Ready implements scheduler.Pipeline.
func (i *Instance) Ready() bool { return i.pipe.Ready() }

// FPS implements scheduler.Pipeline, reporting the frame rate of the run
// bound to the pipeline, falling back to the last run and then the
// engine default.
func (i *Instance) FPS() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pipelineRun != nil && i.pipelineRun.fps > 0 {
		return i.pipelineRun.fps
	}
	if i.lastRun != nil && i.lastRun.fps > 0 {
		return i.lastRun.fps
	}
	return i.engine.defaultFPS
}

// ExecuteRender implements scheduler.Pipeline: the fast path paints one
// frame from cache without re-running the script body.
func (i *Instance) ExecuteRender(frameIndex float64) bool {
	ok := i.pipe.ExecuteRender(frameIndex)
	if !ok {
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pipelineRun != nil {
		if content, err := i.pipelineRun.scene.Serialize(); err == nil {
			i.outcome.VisualizationContent = content
		}
	}
	return true
}

// Compile-time interface checks.
var (
	_ scheduler.Executor = (*Instance)(nil)
	_ scheduler.Pipeline = (*Instance)(nil)
)
