package framecache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// serializedCache is the JSON wire shape: frames and metadata as ordered
// [key, value] pairs, safe to hand off or persist after a completed
// precompute pass.
type serializedCache struct {
	Frames   [][2]any `json:"frames"`
	Metadata [][2]any `json:"metadata"`
}

// MarshalJSON encodes the cache as
// {"frames": [[index, data], ...], "metadata": [[key, value], ...]}
// with frames ordered by index and metadata ordered by key.
func (c *Cache) MarshalJSON() ([]byte, error) {
	out := serializedCache{
		Frames:   make([][2]any, 0, len(c.frames)),
		Metadata: make([][2]any, 0, len(c.metadata)),
	}

	for _, i := range c.FrameIndices() {
		out.Frames = append(out.Frames, [2]any{i, c.frames[i]})
	}

	keys := make([]string, 0, len(c.metadata))
	for k := range c.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Metadata = append(out.Metadata, [2]any{k, c.metadata[k]})
	}

	return json.Marshal(out)
}

// UnmarshalJSON replaces the cache contents with the serialized form
// produced by MarshalJSON.
func (c *Cache) UnmarshalJSON(data []byte) error {
	var in serializedCache
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("invalid frame cache payload: %w", err)
	}

	frames := make(map[int]FrameData, len(in.Frames))
	for _, pair := range in.Frames {
		idx, ok := asInt(pair[0])
		if !ok {
			return fmt.Errorf("invalid frame cache payload: non-integer frame index %v", pair[0])
		}
		frameData, ok := pair[1].(map[string]any)
		if !ok && pair[1] != nil {
			return fmt.Errorf("invalid frame cache payload: frame %d is not a record", idx)
		}
		frames[idx] = frameData
	}

	metadata := make(map[string]any, len(in.Metadata))
	for _, pair := range in.Metadata {
		key, ok := pair[0].(string)
		if !ok {
			return fmt.Errorf("invalid frame cache payload: non-string metadata key %v", pair[0])
		}
		metadata[key] = pair[1]
	}

	c.frames = frames
	c.metadata = metadata
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
