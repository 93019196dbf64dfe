package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/atlanticdynamic/inklynx/internal/scheduler/finitestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor captures executed requests in order and can trigger
// nested submissions, simulating requests arriving mid-execution.
type recordingExecutor struct {
	executed  []Request
	err       error
	onExecute func(req Request)
}

func (r *recordingExecutor) Execute(ctx context.Context, req Request) error {
	r.executed = append(r.executed, req)
	if r.onExecute != nil {
		fn := r.onExecute
		r.onExecute = nil
		fn(req)
	}
	return r.err
}

// fakePipeline is a controllable Pipeline stand-in.
type fakePipeline struct {
	attached bool
	ready    bool
	fps      float64
	rendered []float64
	renderOK bool
}

func (f *fakePipeline) Attached() bool { return f.attached }
func (f *fakePipeline) Ready() bool    { return f.ready }
func (f *fakePipeline) FPS() float64   { return f.fps }

func (f *fakePipeline) ExecuteRender(frameIndex float64) bool {
	f.rendered = append(f.rendered, frameIndex)
	return f.renderOK
}

func animTime(t float64) *float64 { return &t }

func TestNew_RequiresExecutor(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)
}

func TestScheduler_StartsIdle(t *testing.T) {
	s, err := New(&recordingExecutor{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, finitestate.StatusIdle, s.State())
	assert.Equal(t, 0, s.QueueLen())
}

func TestScheduler_SingleRequestRunsAndReturnsToIdle(t *testing.T) {
	exec := &recordingExecutor{}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Submit(context.Background(), Request{}))

	assert.Len(t, exec.executed, 1)
	assert.Equal(t, finitestate.StatusIdle, s.State())
}

func TestScheduler_QueuedRequestsDrainInArrivalOrder(t *testing.T) {
	exec := &recordingExecutor{}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	// While the first request executes, three more arrive. All three must
	// run as full executions, in arrival order, before idle is reported.
	exec.onExecute = func(Request) {
		for i := 1; i <= 3; i++ {
			v := float64(i)
			require.NoError(t, s.Submit(context.Background(),
				Request{ControlValuesOverride: map[string]any{"n": v}}))
		}
		assert.Equal(t, 3, s.QueueLen())
	}

	require.NoError(t, s.Submit(context.Background(), Request{}))

	require.Len(t, exec.executed, 4)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, float64(i), exec.executed[i].ControlValuesOverride["n"])
	}
	assert.Equal(t, finitestate.StatusIdle, s.State())
	assert.Equal(t, 0, s.QueueLen())
}

func TestScheduler_QueueDrainsThroughFailures(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("script blew up")}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	exec.onExecute = func(Request) {
		require.NoError(t, s.Submit(context.Background(), Request{}))
		require.NoError(t, s.Submit(context.Background(), Request{}))
	}

	// The submitting request's error is returned; queued failures are
	// logged but the queue still drains.
	err = s.Submit(context.Background(), Request{})
	require.Error(t, err)

	assert.Len(t, exec.executed, 3)
	assert.Equal(t, finitestate.StatusIdle, s.State())
}

func TestScheduler_FullRunStateWithPipeline(t *testing.T) {
	pipe := &fakePipeline{attached: true, ready: false, fps: 30}
	exec := &recordingExecutor{}
	s, err := New(exec, pipe, nil)
	require.NoError(t, err)

	var stateDuring string
	exec.onExecute = func(Request) { stateDuring = s.State() }

	require.NoError(t, s.Submit(context.Background(), Request{}))
	assert.Equal(t, finitestate.StatusPrecomputing, stateDuring)
}

func TestScheduler_FullRunStateWithoutPipeline(t *testing.T) {
	exec := &recordingExecutor{}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	var stateDuring string
	exec.onExecute = func(Request) { stateDuring = s.State() }

	require.NoError(t, s.Submit(context.Background(), Request{}))
	assert.Equal(t, finitestate.StatusRendering, stateDuring)
}

func TestScheduler_FastPathRendersWithoutFullExecution(t *testing.T) {
	pipe := &fakePipeline{attached: true, ready: true, fps: 30, renderOK: true}
	exec := &recordingExecutor{}
	s, err := New(exec, pipe, nil)
	require.NoError(t, err)

	require.NoError(t, s.Submit(context.Background(), Request{AnimationTime: animTime(2.0)}))

	assert.Empty(t, exec.executed, "fast path must not run the script body")
	require.Len(t, pipe.rendered, 1)
	assert.Equal(t, 60.0, pipe.rendered[0], "frame index = time * fps")
	assert.Equal(t, finitestate.StatusIdle, s.State())
}

func TestScheduler_FastPathRenderFailureReported(t *testing.T) {
	pipe := &fakePipeline{attached: true, ready: true, fps: 30, renderOK: false}
	s, err := New(&recordingExecutor{}, pipe, nil)
	require.NoError(t, err)

	err = s.Submit(context.Background(), Request{AnimationTime: animTime(1.0)})
	require.Error(t, err)
	assert.Equal(t, finitestate.StatusIdle, s.State())
}

func TestScheduler_AnimationTimeWithColdPipelineRunsFully(t *testing.T) {
	pipe := &fakePipeline{attached: true, ready: false, fps: 30}
	exec := &recordingExecutor{}
	s, err := New(exec, pipe, nil)
	require.NoError(t, err)

	require.NoError(t, s.Submit(context.Background(), Request{AnimationTime: animTime(1.0)}))

	assert.Len(t, exec.executed, 1)
	assert.Empty(t, pipe.rendered)
}

func TestScheduler_FastPathDroppedDuringPrecompute(t *testing.T) {
	pipe := &fakePipeline{attached: true, ready: true, fps: 30, renderOK: true}
	exec := &recordingExecutor{}
	s, err := New(exec, pipe, nil)
	require.NoError(t, err)

	// A frame request arriving mid-precompute is dropped, not queued: the
	// full re-run in flight obsoletes it.
	exec.onExecute = func(Request) {
		require.NoError(t, s.Submit(context.Background(), Request{AnimationTime: animTime(0.5)}))
		assert.Equal(t, 0, s.QueueLen())
	}

	require.NoError(t, s.Submit(context.Background(), Request{}))

	assert.Len(t, exec.executed, 1)
	assert.Empty(t, pipe.rendered)
}

func TestScheduler_NonAnimationRequestQueuedDuringExecution(t *testing.T) {
	exec := &recordingExecutor{}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	exec.onExecute = func(Request) {
		require.NoError(t, s.Submit(context.Background(), Request{IncludeControlsUpdate: true}))
	}

	require.NoError(t, s.Submit(context.Background(), Request{}))

	require.Len(t, exec.executed, 2)
	assert.True(t, exec.executed[1].IncludeControlsUpdate)
}

func TestScheduler_RequestImmutableOnceSubmitted(t *testing.T) {
	exec := &recordingExecutor{}
	s, err := New(exec, nil, nil)
	require.NoError(t, err)

	override := map[string]any{"n": 1.0}
	var queued bool
	exec.onExecute = func(Request) {
		require.NoError(t, s.Submit(context.Background(),
			Request{ControlValuesOverride: override}))
		// Mutation after enqueue must not be observable.
		override["n"] = 99.0
		queued = true
	}

	require.NoError(t, s.Submit(context.Background(), Request{}))
	require.True(t, queued)
	require.Len(t, exec.executed, 2)
	assert.Equal(t, 1.0, exec.executed[1].ControlValuesOverride["n"])
}
