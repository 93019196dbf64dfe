package animation

import (
	"context"
	"testing"
	"time"

	"github.com/atlanticdynamic/inklynx/internal/animation/finitestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortAnim(loop bool) *Animation {
	return &Animation{
		ID:       "a",
		Duration: 0.05,
		FPS:      100,
		Loop:     loop,
		Keyframes: []Keyframe{
			{ID: "k0", Time: 0, Values: map[string]any{"x": 0.0}},
			{ID: "k1", Time: 0.05, Values: map[string]any{"x": 5.0}},
		},
	}
}

func TestNewRunner_RequiresTimeline(t *testing.T) {
	_, err := NewRunner(nil)
	require.Error(t, err)
}

func TestRunner_CompletesNonLoopingAnimation(t *testing.T) {
	tl := NewTimeline(shortAnim(false), nil, nil, nil)
	runner, err := NewRunner(tl)
	require.NoError(t, err)

	assert.Equal(t, finitestate.StatusNew, runner.GetState())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("runner did not complete in time")
	}

	assert.Equal(t, finitestate.StatusStopped, runner.GetState())
	assert.False(t, runner.IsRunning())
	assert.False(t, tl.IsPlaying())
}

func TestRunner_StopHaltsLoopingAnimation(t *testing.T) {
	tl := NewTimeline(shortAnim(true), nil, nil, nil)
	runner, err := NewRunner(tl, WithContext(context.Background()))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background()) }()

	// Give the runner a moment to boot, then stop it.
	require.Eventually(t, runner.IsRunning, 2*time.Second, 5*time.Millisecond)
	runner.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop in time")
	}

	assert.Equal(t, finitestate.StatusStopped, runner.GetState())
}

func TestRunner_ParentContextCancelStops(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	tl := NewTimeline(shortAnim(true), nil, nil, nil)
	runner, err := NewRunner(tl, WithContext(parent))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(context.Background()) }()

	require.Eventually(t, runner.IsRunning, 2*time.Second, 5*time.Millisecond)
	cancelParent()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not react to parent cancellation")
	}
}
