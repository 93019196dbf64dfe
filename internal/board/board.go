// Package board defines the canvas surface scripts read and mutate:
// snapshot accessors over the sibling elements of a script's code block,
// and mutating accessors for adding, updating, and deleting elements. The
// drawing canvas itself lives outside this module; Accessor is the call
// shape it must provide, and Memory is the in-process implementation used
// by the CLI and tests.
package board

import (
	"errors"
	"fmt"
)

// ElementKind classifies a canvas element.
type ElementKind string

const (
	KindImage         ElementKind = "image"
	KindText          ElementKind = "text"
	KindShape         ElementKind = "shape"
	KindLatex         ElementKind = "latex"
	KindStroke        ElementKind = "stroke"
	KindVisualization ElementKind = "visualization"
)

var (
	// ErrBoard is the base error type for board errors.
	ErrBoard = errors.New("board error")

	// ErrElementNotFound indicates an update or delete referenced an
	// unknown element id.
	ErrElementNotFound = fmt.Errorf("%w: element not found", ErrBoard)
)

// Element is one canvas element snapshot. Props carries kind-specific
// payload (src for images, content for texts, geometry for shapes).
type Element struct {
	ID    string         `json:"id"`
	Kind  ElementKind    `json:"kind"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Props map[string]any `json:"props,omitempty"`
}

// Viewport describes the visible region of the canvas.
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Zoom   float64 `json:"zoom"`
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Accessor is the board surface handed to executing scripts. Read
// accessors return snapshots; mutating a returned element must never
// change board state. Implementations are not required to be safe for
// concurrent use: a script run is the only caller for its duration.
type Accessor interface {
	GetImages() []Element
	GetTexts() []Element
	GetShapes() []Element
	GetLatex() []Element
	GetStrokes() []Element
	GetVisualizations() []Element
	GetAll() []Element

	AddImage(x, y float64, props map[string]any) (Element, error)
	AddText(x, y float64, props map[string]any) (Element, error)
	AddShape(x, y float64, props map[string]any) (Element, error)
	AddLatex(x, y float64, props map[string]any) (Element, error)
	UpdateElement(id string, props map[string]any) error
	DeleteElement(id string) error

	GetViewport() Viewport
	GetCodeBlockPosition() Position
}
