package scriptflow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlanticdynamic/inklynx/internal/scheduler"
	"github.com/atlanticdynamic/inklynx/internal/script"
)

// A script exercising the full surface: controls, a precompute/render
// pipeline, and a keyframe animation over a declared control.
const fullScript = `speed = slider("speed", min=0, max=10, default=2)

def precompute(register_frame):
    for i in range(30):
        register_frame(i, {"x": i * speed, "color": "#336699"})

def render(frame_index, frame, controls):
    if frame != None:
        viz.circle(x=frame["x"], y=50, r=10, fill=frame["color"])

on_precompute(precompute)
on_render(render)
set_total_frames(30)

animate(
    duration=1.0,
    fps=30,
    loop=False,
    keyframes=[
        {"time": 0.0, "values": {"speed": 0}},
        {"time": 1.0, "values": {"speed": 10}},
    ],
)
`

func newInstance(t *testing.T) *script.Instance {
	t.Helper()
	engine, err := script.NewEngine("full.star", fullScript)
	require.NoError(t, err)
	inst, err := script.NewInstance(engine)
	require.NoError(t, err)
	return inst
}

func TestFullExecutionFlow(t *testing.T) {
	inst := newInstance(t)
	ctx := context.Background()

	require.NoError(t, inst.Run(ctx, scheduler.Request{IncludeControlsUpdate: true}))

	out := inst.Outcome()
	require.False(t, out.Failed(), "outcome error: %s", out.Error)

	assert.Equal(t, 2.0, out.ControlValues["speed"])
	assert.Equal(t, 30, inst.Cache().Len())
	assert.True(t, inst.Ready())
	require.NotNil(t, out.Animation)
	require.NotNil(t, inst.Timeline())
}

func TestAnimationTickDrivesFastPath(t *testing.T) {
	inst := newInstance(t)
	ctx := context.Background()
	require.NoError(t, inst.Run(ctx, scheduler.Request{}))

	tl := inst.Timeline()
	require.NotNil(t, tl)
	tl.Play()

	// Half a second in, the keyframe interpolation puts speed at 5; the
	// dispatch loops back through the scheduler as an animation-time
	// request and lands on the fast path.
	dispatched := tl.Tick(0.5)
	assert.True(t, dispatched)
	assert.Equal(t, 30, inst.Cache().Len())

	var payload struct {
		Primitives []map[string]any `json:"primitives"`
	}
	require.NoError(t, json.Unmarshal([]byte(inst.Outcome().VisualizationContent), &payload))
	require.NotEmpty(t, payload.Primitives)
	assert.Equal(t, "circle", payload.Primitives[0]["kind"])
}

func TestCacheSurvivesSerializationRoundTrip(t *testing.T) {
	inst := newInstance(t)
	require.NoError(t, inst.Run(context.Background(), scheduler.Request{}))

	data, err := json.Marshal(inst.Cache())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frames"`)
	assert.Contains(t, string(data), `"metadata"`)
}

func TestOverrideFlowsThroughPrecompute(t *testing.T) {
	inst := newInstance(t)
	ctx := context.Background()

	require.NoError(t, inst.Run(ctx, scheduler.Request{
		ControlValuesOverride: map[string]any{"speed": 4.0},
	}))

	frame, ok := inst.Cache().Get(10)
	require.True(t, ok)
	assert.Equal(t, 40.0, frame["x"])
}
