package script

import (
	"encoding/json"
	"fmt"
)

// Scene accumulates the drawing primitives one script run emits through
// the output sink capability. Its serialized form is the run's
// visualization content; painting it is the canvas layer's job.
type Scene struct {
	primitives []primitive
}

type primitive struct {
	Kind  string         `json:"kind"`
	Props map[string]any `json:"props"`
}

func (s *Scene) add(kind string, props map[string]any) {
	s.primitives = append(s.primitives, primitive{Kind: kind, Props: props})
}

// Len returns the number of primitives in the scene.
func (s *Scene) Len() int {
	return len(s.primitives)
}

// Clear drops all primitives.
func (s *Scene) Clear() {
	s.primitives = nil
}

// Serialize returns the scene as JSON: {"primitives": [...]}. An empty
// scene serializes to an empty primitive list, not to null.
func (s *Scene) Serialize() (string, error) {
	prims := s.primitives
	if prims == nil {
		prims = []primitive{}
	}
	payload, err := json.Marshal(map[string]any{"primitives": prims})
	if err != nil {
		return "", fmt.Errorf("serializing scene: %w", err)
	}
	return string(payload), nil
}
