// Package controls models the interactive values a script declares while
// it runs: sliders, checkboxes, color pickers, and the rest. The declared
// set and its values are the durable state surfaced to the UI between
// executions.
package controls

import (
	"errors"
	"fmt"
	"slices"
)

// Type identifies the widget shape of a control.
type Type string

const (
	TypeSlider   Type = "slider"
	TypeNumber   Type = "number"
	TypeText     Type = "text"
	TypeCheckbox Type = "checkbox"
	TypeRadio    Type = "radio"
	TypeColor    Type = "color"
	TypeSelect   Type = "select"
	TypeRange    Type = "range"
	TypeButton   Type = "button"
	TypeToggle   Type = "toggle"
)

var (
	// ErrControl is the base error type for control errors.
	ErrControl = errors.New("control error")

	// ErrEmptyLabel indicates a control was declared without a label.
	ErrEmptyLabel = fmt.Errorf("%w: empty label", ErrControl)

	// ErrDuplicateLabel indicates two controls in one run share a label.
	ErrDuplicateLabel = fmt.Errorf("%w: duplicate label", ErrControl)
)

// Control is one named, typed interactive value. Value's shape depends on
// Type: numbers for sliders, strings for text and colors, booleans for
// checkboxes and toggles, {min,max} records for ranges, and
// {clickCount,lastClicked} records for buttons. Options carries the
// choices of select and radio controls; Min, Max, and Step carry the
// bounds of sliders and range sliders so the widget can be rendered.
type Control struct {
	Type    Type     `json:"type"`
	Label   string   `json:"label"`
	Value   any      `json:"value"`
	Options []string `json:"options,omitempty"`
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
}

// Builder accumulates the controls one script run declares. Scripts
// declare controls implicitly, by calling a control function with side
// effects; the builder is the scoped per-run accumulator behind those
// calls, finalized into an immutable list when the run ends. A fresh
// builder is created for every run.
type Builder struct {
	declared []Control
	labels   map[string]int
}

// NewBuilder returns an empty per-run accumulator.
func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]int)}
}

// Declare records one control declaration. Re-declaring a label within the
// same run replaces the earlier declaration, which lets a script call the
// same control function twice without growing the list.
func (b *Builder) Declare(c Control) error {
	if c.Label == "" {
		return ErrEmptyLabel
	}
	if i, seen := b.labels[c.Label]; seen {
		b.declared[i] = c
		return nil
	}
	b.labels[c.Label] = len(b.declared)
	b.declared = append(b.declared, c)
	return nil
}

// Len returns the number of declared controls.
func (b *Builder) Len() int {
	return len(b.declared)
}

// Finalize returns the declared controls as an immutable snapshot, in
// declaration order.
func (b *Builder) Finalize() []Control {
	return slices.Clone(b.declared)
}

// Values returns a label-to-value map of the declared controls.
func (b *Builder) Values() map[string]any {
	out := make(map[string]any, len(b.declared))
	for _, c := range b.declared {
		out[c.Label] = c.Value
	}
	return out
}

// Resolve picks the effective value for a control declaration: an override
// wins, then a durable value carried over from a previous run, then the
// declared default. Mismatched carried-over types fall back to the
// default so a script that changes a control's type is not poisoned by
// stale state.
func Resolve(label string, def any, durable, override map[string]any) any {
	if v, ok := override[label]; ok && sameShape(v, def) {
		return v
	}
	if v, ok := durable[label]; ok && sameShape(v, def) {
		return v
	}
	return def
}

// sameShape reports whether two values have compatible shapes for reuse
// across runs. Numeric kinds are interchangeable.
func sameShape(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumeric(a) && isNumeric(b) {
		return true
	}
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case map[string]any:
		_, ok := b.(map[string]any)
		return ok
	case []any:
		_, ok := b.([]any)
		return ok
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}
