// Package framecache implements a sparse, frame-indexed store for
// structured animation data. Frames are registered once by an expensive
// precompute pass and read back many times, optionally at fractional
// indices with deep interpolation between the bracketing frames.
package framecache

import (
	"sort"

	"github.com/atlanticdynamic/inklynx/internal/interpolation"
)

// FrameData is an arbitrary tree of JSON-like values (numbers, strings,
// booleans, nested records, arrays) registered under an integer frame index.
type FrameData = map[string]any

// Cache stores frame data keyed by integer frame index plus scalar
// metadata (fps, frame counts, and similar). Values are deep-cloned on
// registration and again on every read, so neither the registering
// caller nor readers can mutate stored frames; stored values are only
// ever replaced wholesale by re-registration.
//
// The cache is intentionally unbounded. It belongs to exactly one
// precompute/render pipeline and is cleared at the start of every
// precompute pass.
type Cache struct {
	frames   map[int]FrameData
	metadata map[string]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		frames:   make(map[int]FrameData),
		metadata: make(map[string]any),
	}
}

// Register stores a deep clone of data under index, replacing any existing
// entry at that index.
func (c *Cache) Register(index int, data FrameData) {
	cloned, _ := deepClone(data).(FrameData)
	c.frames[index] = cloned
}

// Get returns a deep clone of the exact frame at index, or nil and false
// when absent. Cloning keeps callers from reaching back into the store.
func (c *Cache) Get(index int) (FrameData, bool) {
	data, ok := c.frames[index]
	if !ok {
		return nil, false
	}
	cloned, _ := deepClone(data).(FrameData)
	return cloned, true
}

// Len returns the number of registered frames.
func (c *Cache) Len() int {
	return len(c.frames)
}

// FrameIndices returns all registered indices in ascending order.
func (c *Cache) FrameIndices() []int {
	indices := make([]int, 0, len(c.frames))
	for i := range c.frames {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// GetInterpolated returns frame data for a possibly fractional index.
//
// The nearest registered indices at or below and at or above index bracket
// the lookup. Lookups below the smallest registered index clamp to it, and
// lookups above the largest clamp to it; there is no extrapolation. When
// the brackets coincide the exact frame is returned. Otherwise every leaf
// of the two frame trees is interpolated per the rules of the
// interpolation package.
//
// Returns nil and false when the cache is empty.
func (c *Cache) GetInterpolated(index float64) (FrameData, bool) {
	indices := c.FrameIndices()
	if len(indices) == 0 {
		return nil, false
	}

	lower, hasLower := -1, false
	upper, hasUpper := -1, false
	for _, i := range indices {
		if float64(i) <= index {
			lower, hasLower = i, true
		}
		if float64(i) >= index && !hasUpper {
			upper, hasUpper = i, true
		}
	}

	if !hasLower {
		return c.cloneFrame(indices[0]), true
	}
	if !hasUpper {
		return c.cloneFrame(indices[len(indices)-1]), true
	}
	if lower == upper {
		return c.cloneFrame(lower), true
	}

	t := (index - float64(lower)) / float64(upper-lower)
	blended, _ := interpolation.Frame(c.frames[lower], c.frames[upper], t).(FrameData)
	return blended, true
}

// cloneFrame returns a deep clone of the stored frame at index.
func (c *Cache) cloneFrame(index int) FrameData {
	cloned, _ := deepClone(c.frames[index]).(FrameData)
	return cloned
}

// SetMeta stores a scalar metadata value under key.
func (c *Cache) SetMeta(key string, value any) {
	c.metadata[key] = value
}

// Meta returns the metadata value stored under key.
func (c *Cache) Meta(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// Clear drops all frames and metadata.
func (c *Cache) Clear() {
	c.frames = make(map[int]FrameData)
	c.metadata = make(map[string]any)
}

// deepClone copies a JSON-like value tree.
func deepClone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = deepClone(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepClone(e)
		}
		return out
	default:
		return v
	}
}
