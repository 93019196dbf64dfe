package pipeline

import (
	"errors"
	"testing"

	"github.com/atlanticdynamic/inklynx/internal/framecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttachedEngine(frames int) (*Engine, *[]float64) {
	e := New(nil)
	e.SetPrecompute(func(register RegisterFrame) error {
		for i := 0; i < frames; i++ {
			register(i, framecache.FrameData{"x": float64(i * 10)})
		}
		return nil
	})

	rendered := &[]float64{}
	e.SetRender(func(frameIndex float64, frame framecache.FrameData, controls map[string]any) error {
		*rendered = append(*rendered, frameIndex)
		return nil
	})
	return e, rendered
}

func TestEngine_Attached(t *testing.T) {
	e := New(nil)
	assert.False(t, e.Attached())

	e.SetPrecompute(func(RegisterFrame) error { return nil })
	assert.False(t, e.Attached())

	e.SetRender(func(float64, framecache.FrameData, map[string]any) error { return nil })
	assert.True(t, e.Attached())
}

func TestEngine_PrecomputeRegistersFrames(t *testing.T) {
	e, _ := newAttachedEngine(5)

	require.NoError(t, e.ExecutePrecompute(map[string]any{"speed": 2.0}))

	assert.True(t, e.Ready())
	assert.Equal(t, 5, e.Cache().Len())
	assert.Equal(t, map[string]any{"speed": 2.0}, e.Controls())
}

func TestEngine_PrecomputeClearsPreviousFrames(t *testing.T) {
	e, _ := newAttachedEngine(2)
	require.NoError(t, e.ExecutePrecompute(nil))
	e.Cache().Register(99, framecache.FrameData{"stale": true})

	require.NoError(t, e.ExecutePrecompute(nil))

	_, ok := e.Cache().Get(99)
	assert.False(t, ok)
	assert.Equal(t, 2, e.Cache().Len())
}

func TestEngine_PrecomputeErrorPropagatesAndNotReady(t *testing.T) {
	e := New(nil)
	boom := errors.New("boom")
	e.SetPrecompute(func(register RegisterFrame) error {
		// A partial pass must not leave the engine ready.
		register(0, framecache.FrameData{"x": 1.0})
		return boom
	})
	e.SetRender(func(float64, framecache.FrameData, map[string]any) error { return nil })

	err := e.ExecutePrecompute(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecompute)
	assert.ErrorIs(t, err, boom)
	assert.False(t, e.Ready())
}

func TestEngine_PrecomputeWithoutFunction(t *testing.T) {
	e := New(nil)
	err := e.ExecutePrecompute(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPrecompute)
}

func TestEngine_ProgressAndCompletion(t *testing.T) {
	e, _ := newAttachedEngine(3)
	e.SetTotalFrames(3)

	var progressed [][2]int
	e.SetProgress(func(index, total int) {
		progressed = append(progressed, [2]int{index, total})
	})
	completed := false
	e.SetOnComplete(func() { completed = true })

	require.NoError(t, e.ExecutePrecompute(nil))

	assert.Equal(t, [][2]int{{0, 3}, {1, 3}, {2, 3}}, progressed)
	assert.True(t, completed)
}

func TestEngine_CompletionSkippedOnError(t *testing.T) {
	e := New(nil)
	e.SetPrecompute(func(RegisterFrame) error { return errors.New("boom") })

	completed := false
	e.SetOnComplete(func() { completed = true })

	require.Error(t, e.ExecutePrecompute(nil))
	assert.False(t, completed)
}

func TestEngine_RenderInterpolated(t *testing.T) {
	e := New(nil)
	e.SetPrecompute(func(register RegisterFrame) error {
		register(0, framecache.FrameData{"x": 0.0})
		register(10, framecache.FrameData{"x": 100.0})
		return nil
	})

	var lastFrame framecache.FrameData
	e.SetRender(func(frameIndex float64, frame framecache.FrameData, controls map[string]any) error {
		lastFrame = frame
		return nil
	})

	require.NoError(t, e.ExecutePrecompute(nil))
	require.True(t, e.ExecuteRender(5))

	require.NotNil(t, lastFrame)
	assert.Equal(t, 50.0, lastFrame["x"])
}

func TestEngine_RenderEmptyCacheStillSucceeds(t *testing.T) {
	e := New(nil)
	called := false
	var gotFrame framecache.FrameData
	e.SetRender(func(frameIndex float64, frame framecache.FrameData, controls map[string]any) error {
		called = true
		gotFrame = frame
		return nil
	})

	assert.True(t, e.ExecuteRender(0))
	assert.True(t, called)
	assert.Nil(t, gotFrame)
}

func TestEngine_RenderErrorIsNonFatal(t *testing.T) {
	e, _ := newAttachedEngine(2)
	require.NoError(t, e.ExecutePrecompute(nil))

	e.SetRender(func(float64, framecache.FrameData, map[string]any) error {
		return errors.New("bad frame")
	})

	assert.False(t, e.ExecuteRender(0))
	// Cache and ready state survive a failed render.
	assert.True(t, e.Ready())
	assert.Equal(t, 2, e.Cache().Len())
}

func TestEngine_RenderPanicIsCaught(t *testing.T) {
	e, _ := newAttachedEngine(1)
	require.NoError(t, e.ExecutePrecompute(nil))

	e.SetRender(func(float64, framecache.FrameData, map[string]any) error {
		panic("renderer exploded")
	})

	assert.False(t, e.ExecuteRender(0))
	assert.True(t, e.Ready())
}

func TestEngine_ReentrantRenderRejected(t *testing.T) {
	e, _ := newAttachedEngine(3)
	require.NoError(t, e.ExecutePrecompute(nil))

	var nested []bool
	e.SetRender(func(frameIndex float64, frame framecache.FrameData, controls map[string]any) error {
		if frameIndex == 0 {
			// An over-eager loop scheduling the next frame synchronously.
			nested = append(nested, e.ExecuteRender(1))
		}
		return nil
	})

	assert.True(t, e.ExecuteRender(0))
	require.Len(t, nested, 1)
	assert.False(t, nested[0])

	// The lock is released once the outer call returns.
	assert.True(t, e.ExecuteRender(1))
}

func TestEngine_ReentrantLockReleasedOnError(t *testing.T) {
	e, _ := newAttachedEngine(1)
	require.NoError(t, e.ExecutePrecompute(nil))

	e.SetRender(func(float64, framecache.FrameData, map[string]any) error {
		return errors.New("boom")
	})
	assert.False(t, e.ExecuteRender(0))

	e.SetRender(func(float64, framecache.FrameData, map[string]any) error { return nil })
	assert.True(t, e.ExecuteRender(0))
}

func TestEngine_NotReadyDuringPrecompute(t *testing.T) {
	e := New(nil)
	var readyDuring bool
	e.SetPrecompute(func(register RegisterFrame) error {
		register(0, framecache.FrameData{"x": 1.0})
		readyDuring = e.Ready()
		return nil
	})
	e.SetRender(func(float64, framecache.FrameData, map[string]any) error { return nil })

	require.NoError(t, e.ExecutePrecompute(nil))
	assert.False(t, readyDuring)
	assert.True(t, e.Ready())
}
