package framecache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RegisterAndGet(t *testing.T) {
	c := New()
	c.Register(0, FrameData{"x": 1.0})
	c.Register(10, FrameData{"x": 2.0})

	got, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, got["x"])

	_, ok = c.Get(5)
	assert.False(t, ok)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []int{0, 10}, c.FrameIndices())
}

func TestCache_RegisterOverwrites(t *testing.T) {
	c := New()
	c.Register(3, FrameData{"x": 1.0})
	c.Register(3, FrameData{"x": 9.0})

	got, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, 9.0, got["x"])
	assert.Equal(t, 1, c.Len())
}

func TestCache_CloneOnRegister(t *testing.T) {
	c := New()
	original := FrameData{
		"pos":  map[string]any{"x": 1.0},
		"tags": []any{"a"},
	}
	c.Register(0, original)

	// Mutating the caller's tree after registration must not be visible
	// through later reads.
	original["pos"].(map[string]any)["x"] = 99.0
	original["tags"].([]any)[0] = "mutated"

	got, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, got["pos"].(map[string]any)["x"])
	assert.Equal(t, "a", got["tags"].([]any)[0])
}

func TestCache_CloneOnRead(t *testing.T) {
	c := New()
	c.Register(0, FrameData{"pos": map[string]any{"x": 1.0}})
	c.Register(10, FrameData{"pos": map[string]any{"x": 100.0}})

	// Mutating a frame returned by any read path must not be visible
	// through later reads.
	got, ok := c.Get(0)
	require.True(t, ok)
	got["pos"].(map[string]any)["x"] = 99.0

	exact, ok := c.GetInterpolated(10)
	require.True(t, ok)
	exact["pos"].(map[string]any)["x"] = 99.0

	clamped, ok := c.GetInterpolated(-5)
	require.True(t, ok)
	clamped["pos"].(map[string]any)["x"] = 99.0

	reread, ok := c.Get(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, reread["pos"].(map[string]any)["x"])

	rereadHigh, ok := c.Get(10)
	require.True(t, ok)
	assert.Equal(t, 100.0, rereadHigh["pos"].(map[string]any)["x"])
}

func TestCache_GetInterpolated(t *testing.T) {
	c := New()
	c.Register(0, FrameData{"x": 0.0, "label": "start"})
	c.Register(10, FrameData{"x": 100.0, "label": "end"})

	t.Run("exact index", func(t *testing.T) {
		got, ok := c.GetInterpolated(10)
		require.True(t, ok)
		assert.Equal(t, 100.0, got["x"])
	})

	t.Run("fractional index", func(t *testing.T) {
		got, ok := c.GetInterpolated(2.5)
		require.True(t, ok)
		assert.Equal(t, 25.0, got["x"])
		assert.Equal(t, "start", got["label"])
	})

	t.Run("numeric leaves stay bounded by brackets", func(t *testing.T) {
		for _, idx := range []float64{0, 1.3, 4.99, 5, 7.5, 10} {
			got, ok := c.GetInterpolated(idx)
			require.True(t, ok)
			x := got["x"].(float64)
			assert.GreaterOrEqual(t, x, 0.0)
			assert.LessOrEqual(t, x, 100.0)
		}
	})

	t.Run("clamps below range", func(t *testing.T) {
		got, ok := c.GetInterpolated(-5)
		require.True(t, ok)
		assert.Equal(t, 0.0, got["x"])
	})

	t.Run("clamps above range", func(t *testing.T) {
		got, ok := c.GetInterpolated(25)
		require.True(t, ok)
		assert.Equal(t, 100.0, got["x"])
	})

	t.Run("empty cache", func(t *testing.T) {
		empty := New()
		_, ok := empty.GetInterpolated(0)
		assert.False(t, ok)
	})
}

func TestCache_Metadata(t *testing.T) {
	c := New()
	c.SetMeta("fps", 30.0)

	got, ok := c.Meta("fps")
	require.True(t, ok)
	assert.Equal(t, 30.0, got)

	_, ok = c.Meta("missing")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New()
	c.Register(0, FrameData{"x": 1.0})
	c.SetMeta("fps", 30.0)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Meta("fps")
	assert.False(t, ok)
}

func TestCache_SerializeRoundTrip(t *testing.T) {
	c := New()
	c.Register(0, FrameData{"x": 1.0, "nested": map[string]any{"y": []any{1.0, 2.0}}})
	c.Register(30, FrameData{"x": 5.0})
	c.SetMeta("fps", 30.0)
	c.SetMeta("totalFrames", 31.0)

	payload, err := json.Marshal(c)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(payload, restored))

	assert.Equal(t, c.FrameIndices(), restored.FrameIndices())
	orig, _ := c.Get(0)
	back, _ := restored.Get(0)
	assert.Equal(t, orig, back)

	fps, ok := restored.Meta("fps")
	require.True(t, ok)
	assert.Equal(t, 30.0, fps)
}

func TestCache_SerializeShape(t *testing.T) {
	c := New()
	c.Register(2, FrameData{"x": 1.0})
	c.SetMeta("fps", 24.0)

	payload, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Contains(t, decoded, "frames")
	require.Contains(t, decoded, "metadata")

	frames := decoded["frames"].([]any)
	require.Len(t, frames, 1)
	pair := frames[0].([]any)
	assert.Equal(t, 2.0, pair[0])

	metadata := decoded["metadata"].([]any)
	require.Len(t, metadata, 1)
	kv := metadata[0].([]any)
	assert.Equal(t, "fps", kv[0])
	assert.Equal(t, 24.0, kv[1])
}

func TestCache_UnmarshalRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "{"},
		{"fractional frame index", `{"frames":[[1.5,{"x":1}]],"metadata":[]}`},
		{"non-string metadata key", `{"frames":[],"metadata":[[7,"v"]]}`},
		{"frame not a record", `{"frames":[[0,"nope"]],"metadata":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := json.Unmarshal([]byte(tt.payload), c)
			require.Error(t, err)
		})
	}
}
