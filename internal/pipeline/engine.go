// Package pipeline implements the precompute/render separation engine: an
// expensive precompute phase registers frame data into a cache once, and a
// cheap render phase reads (optionally interpolated) frames back out per
// displayed frame. The split is what makes scrubbing and playback smooth;
// nothing in the render path re-runs user computation.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/atlanticdynamic/inklynx/internal/framecache"
)

var (
	// ErrPipeline is the base error type for pipeline errors.
	ErrPipeline = errors.New("pipeline error")

	// ErrNoPrecompute indicates ExecutePrecompute ran before a precompute
	// function was registered.
	ErrNoPrecompute = fmt.Errorf("%w: no precompute function registered", ErrPipeline)

	// ErrPrecompute wraps an error raised by the precompute function.
	ErrPrecompute = fmt.Errorf("%w: precompute failed", ErrPipeline)
)

// RegisterFrame stores one frame of precomputed data under an integer
// index. Passed into the precompute function as its only capability.
type RegisterFrame func(index int, data framecache.FrameData)

// PrecomputeFunc runs the expensive pass, calling register any number of
// times.
type PrecomputeFunc func(register RegisterFrame) error

// RenderFunc paints one displayed frame. frame is nil when the cache is
// empty, so renderers can paint a placeholder state.
type RenderFunc func(frameIndex float64, frame framecache.FrameData, controls map[string]any) error

// ProgressFunc observes precompute progress as frames are registered.
type ProgressFunc func(index, totalFrames int)

// Engine orchestrates the two-phase contract for one script instance. It
// exclusively owns its frame cache. Not safe for concurrent use; the
// execution scheduler serializes all calls.
type Engine struct {
	cache       *framecache.Cache
	precompute  PrecomputeFunc
	render      RenderFunc
	progress    ProgressFunc
	onComplete  func()
	controls    map[string]any
	totalFrames int

	ready        bool
	precomputing bool
	rendering    bool

	logger *slog.Logger
}

// New returns an engine with an empty frame cache.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cache:  framecache.New(),
		logger: logger.With("component", "pipeline"),
	}
}

// SetPrecompute registers the precompute function.
func (e *Engine) SetPrecompute(fn PrecomputeFunc) { e.precompute = fn }

// SetRender registers the render function.
func (e *Engine) SetRender(fn RenderFunc) { e.render = fn }

// SetProgress registers an optional progress observer.
func (e *Engine) SetProgress(fn ProgressFunc) { e.progress = fn }

// SetOnComplete registers an optional callback invoked after a successful
// precompute pass.
func (e *Engine) SetOnComplete(fn func()) { e.onComplete = fn }

// SetTotalFrames declares the expected frame count, reported to the
// progress observer alongside each registration.
func (e *Engine) SetTotalFrames(n int) { e.totalFrames = n }

// Attached reports whether both phases have been registered. A script
// without hooks never attaches a pipeline and always takes the full
// execution path.
func (e *Engine) Attached() bool {
	return e.precompute != nil && e.render != nil
}

// Ready reports whether render calls can be served from the cache: the
// last precompute pass succeeded, left the cache non-empty, and no
// precompute is currently in flight.
func (e *Engine) Ready() bool {
	return e.ready && !e.precomputing && e.cache.Len() > 0
}

// Cache exposes the engine's frame cache for serialization and metadata
// access.
func (e *Engine) Cache() *framecache.Cache {
	return e.cache
}

// Controls returns the control snapshot captured by the last precompute.
func (e *Engine) Controls() map[string]any {
	return e.controls
}

// ExecutePrecompute clears the cache and runs the precompute function once,
// synchronously. Errors propagate to the caller and leave the engine not
// ready: precompute output seeds everything downstream, so failing loudly
// beats a resilient half-filled cache.
func (e *Engine) ExecutePrecompute(controls map[string]any) error {
	if e.precompute == nil {
		return ErrNoPrecompute
	}

	e.controls = maps.Clone(controls)
	e.cache.Clear()
	e.ready = false
	e.precomputing = true
	defer func() { e.precomputing = false }()

	register := func(index int, data framecache.FrameData) {
		e.cache.Register(index, data)
		if e.progress != nil {
			e.progress(index, e.totalFrames)
		}
	}

	if err := e.precompute(register); err != nil {
		return fmt.Errorf("%w: %w", ErrPrecompute, err)
	}

	e.ready = true
	e.logger.Debug("precompute finished", "frames", e.cache.Len())

	if e.onComplete != nil {
		e.onComplete()
	}
	return nil
}

// ExecuteRender paints the frame at a possibly fractional index and
// reports success. An empty cache still invokes the render function, with
// a nil frame payload. Render failures (errors or panics) are logged and
// reported as failure; they never corrupt the cache or the ready state. A
// render call issued from inside a render callback is rejected to prevent
// unbounded recursion.
func (e *Engine) ExecuteRender(frameIndex float64) bool {
	if e.render == nil {
		e.logger.Warn("render requested with no render function registered")
		return false
	}
	if e.rendering {
		e.logger.Warn("re-entrant render call rejected", "frame_index", frameIndex)
		return false
	}

	e.rendering = true
	defer func() { e.rendering = false }()

	frame, _ := e.cache.GetInterpolated(frameIndex)

	err := e.invokeRender(frameIndex, frame)
	if err != nil {
		e.logger.Error("render failed", "frame_index", frameIndex, "error", err)
		return false
	}
	return true
}

// invokeRender isolates the render call so a panicking renderer is
// reported as an error instead of unwinding through the animation loop.
func (e *Engine) invokeRender(frameIndex float64, frame framecache.FrameData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()
	return e.render(frameIndex, frame, e.controls)
}
