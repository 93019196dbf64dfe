package board

import (
	"fmt"
	"maps"

	"github.com/gofrs/uuid/v5"
)

var _ Accessor = (*Memory)(nil)

// Memory is an in-process board, ordered by insertion. It backs the CLI
// (where no real canvas exists) and tests.
type Memory struct {
	elements []Element
	viewport Viewport
	codePos  Position
}

// NewMemory returns an empty board with the given viewport and script
// code-block position.
func NewMemory(viewport Viewport, codePos Position) *Memory {
	return &Memory{viewport: viewport, codePos: codePos}
}

func (m *Memory) GetImages() []Element         { return m.byKind(KindImage) }
func (m *Memory) GetTexts() []Element          { return m.byKind(KindText) }
func (m *Memory) GetShapes() []Element         { return m.byKind(KindShape) }
func (m *Memory) GetLatex() []Element          { return m.byKind(KindLatex) }
func (m *Memory) GetStrokes() []Element        { return m.byKind(KindStroke) }
func (m *Memory) GetVisualizations() []Element { return m.byKind(KindVisualization) }

// GetAll returns a snapshot of every element in insertion order.
func (m *Memory) GetAll() []Element {
	out := make([]Element, len(m.elements))
	for i, e := range m.elements {
		out[i] = snapshot(e)
	}
	return out
}

func (m *Memory) AddImage(x, y float64, props map[string]any) (Element, error) {
	return m.add(KindImage, x, y, props)
}

func (m *Memory) AddText(x, y float64, props map[string]any) (Element, error) {
	return m.add(KindText, x, y, props)
}

func (m *Memory) AddShape(x, y float64, props map[string]any) (Element, error) {
	return m.add(KindShape, x, y, props)
}

func (m *Memory) AddLatex(x, y float64, props map[string]any) (Element, error) {
	return m.add(KindLatex, x, y, props)
}

// AddStroke adds a freehand stroke. Scripts cannot draw strokes, but the
// CLI seeds boards with them so read accessors have something to return.
func (m *Memory) AddStroke(x, y float64, props map[string]any) (Element, error) {
	return m.add(KindStroke, x, y, props)
}

func (m *Memory) UpdateElement(id string, props map[string]any) error {
	for i := range m.elements {
		if m.elements[i].ID == id {
			if m.elements[i].Props == nil {
				m.elements[i].Props = make(map[string]any, len(props))
			}
			maps.Copy(m.elements[i].Props, props)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrElementNotFound, id)
}

func (m *Memory) DeleteElement(id string) error {
	for i := range m.elements {
		if m.elements[i].ID == id {
			m.elements = append(m.elements[:i], m.elements[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrElementNotFound, id)
}

func (m *Memory) GetViewport() Viewport          { return m.viewport }
func (m *Memory) GetCodeBlockPosition() Position { return m.codePos }

func (m *Memory) add(kind ElementKind, x, y float64, props map[string]any) (Element, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Element{}, fmt.Errorf("%w: generating element id: %w", ErrBoard, err)
	}
	e := Element{
		ID:    id.String(),
		Kind:  kind,
		X:     x,
		Y:     y,
		Props: maps.Clone(props),
	}
	m.elements = append(m.elements, e)
	return snapshot(e), nil
}

func (m *Memory) byKind(kind ElementKind) []Element {
	var out []Element
	for _, e := range m.elements {
		if e.Kind == kind {
			out = append(out, snapshot(e))
		}
	}
	return out
}

// snapshot copies an element so callers can mutate the result freely.
func snapshot(e Element) Element {
	e.Props = maps.Clone(e.Props)
	return e
}
