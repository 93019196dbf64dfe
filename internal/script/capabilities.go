package script

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/atlanticdynamic/inklynx/internal/animation"
	"github.com/atlanticdynamic/inklynx/internal/board"
	"github.com/atlanticdynamic/inklynx/internal/controls"
)

// GuardCheckName is the function the rewriter injects into loop bodies.
const GuardCheckName = "_check_timeout"

// newPredeclared builds the capability environment for one run: control
// declaration functions, the viz output sink, the board accessor, the
// animation builder, precompute/render registration hooks, and the guard
// check. The environment is constructed fresh per invocation and never
// shared between runs.
func newPredeclared(rs *runState) starlark.StringDict {
	env := starlark.StringDict{
		GuardCheckName: starlark.NewBuiltin(GuardCheckName, rs.checkTimeout),

		"slider":       controlBuiltin("slider", rs.declareSlider),
		"number_input": controlBuiltin("number_input", rs.declareNumber),
		"text_input":   controlBuiltin("text_input", rs.declareText),
		"checkbox":     controlBuiltin("checkbox", rs.declareCheckbox),
		"toggle":       controlBuiltin("toggle", rs.declareToggle),
		"radio":        controlBuiltin("radio", rs.declareRadio),
		"select":       controlBuiltin("select", rs.declareSelect),
		"color_picker": controlBuiltin("color_picker", rs.declareColor),
		"range_slider": controlBuiltin("range_slider", rs.declareRange),
		"button":       controlBuiltin("button", rs.declareButton),

		"animate":          starlark.NewBuiltin("animate", rs.animate),
		"on_precompute":    starlark.NewBuiltin("on_precompute", rs.onPrecompute),
		"on_render":        starlark.NewBuiltin("on_render", rs.onRender),
		"set_fps":          starlark.NewBuiltin("set_fps", rs.setFPS),
		"set_total_frames": starlark.NewBuiltin("set_total_frames", rs.setTotalFrames),

		"viz":   vizModule(rs.scene),
		"board": boardModule(rs.board),
	}
	return env
}

type builtinImpl func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

func controlBuiltin(name string, impl builtinImpl) *starlark.Builtin {
	return starlark.NewBuiltin(name, impl)
}

// checkTimeout is the cooperative guard check. When the guard trips it
// records the fact and fails the evaluation with the timeout sentinel.
func (rs *runState) checkTimeout(_ *starlark.Thread, _ *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	if rs.guard != nil && rs.guard.ShouldAbort() {
		rs.timedOut.Store(true)
		return nil, timeoutSentinel
	}
	return starlark.None, nil
}

// declare resolves a control's effective value (override, then durable
// carry-over, then default), records the declaration, and hands the value
// back to the script.
func (rs *runState) declare(c controls.Control) (starlark.Value, error) {
	c.Value = controls.Resolve(c.Label, c.Value, rs.durable, rs.override)
	if err := rs.builder.Declare(c); err != nil {
		return nil, err
	}
	return toStarlark(c.Value), nil
}

func (rs *runState) declareSlider(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	minV, maxV, step := floatArg(0), floatArg(100), floatArg(1)
	var def starlark.Value
	if err := starlark.UnpackArgs("slider", args, kwargs,
		"label", &label, "min?", &minV, "max?", &maxV, "step?", &step, "default?", &def); err != nil {
		return nil, err
	}
	value := float64(minV)
	if def != nil {
		if f, ok := starlark.AsFloat(def); ok {
			value = f
		}
	}
	return rs.declare(controls.Control{
		Type:  controls.TypeSlider,
		Label: label,
		Value: value,
		Min:   float64(minV),
		Max:   float64(maxV),
		Step:  float64(step),
	})
}

func (rs *runState) declareNumber(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	var def floatArg
	if err := starlark.UnpackArgs("number_input", args, kwargs,
		"label", &label, "default?", &def); err != nil {
		return nil, err
	}
	return rs.declare(controls.Control{Type: controls.TypeNumber, Label: label, Value: float64(def)})
}

func (rs *runState) declareText(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label, def string
	if err := starlark.UnpackArgs("text_input", args, kwargs,
		"label", &label, "default?", &def); err != nil {
		return nil, err
	}
	return rs.declare(controls.Control{Type: controls.TypeText, Label: label, Value: def})
}

func (rs *runState) declareCheckbox(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	var def bool
	if err := starlark.UnpackArgs("checkbox", args, kwargs,
		"label", &label, "default?", &def); err != nil {
		return nil, err
	}
	return rs.declare(controls.Control{Type: controls.TypeCheckbox, Label: label, Value: def})
}

func (rs *runState) declareToggle(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	var def bool
	if err := starlark.UnpackArgs("toggle", args, kwargs,
		"label", &label, "default?", &def); err != nil {
		return nil, err
	}
	return rs.declare(controls.Control{Type: controls.TypeToggle, Label: label, Value: def})
}

func (rs *runState) declareRadio(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return rs.declareChoice(controls.TypeRadio, "radio", args, kwargs)
}

func (rs *runState) declareSelect(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return rs.declareChoice(controls.TypeSelect, "select", args, kwargs)
}

func (rs *runState) declareChoice(typ controls.Type, name string, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	var options *starlark.List
	var def string
	if err := starlark.UnpackArgs(name, args, kwargs,
		"label", &label, "options", &options, "default?", &def); err != nil {
		return nil, err
	}

	opts := make([]string, 0, options.Len())
	for i := 0; i < options.Len(); i++ {
		s, ok := starlark.AsString(options.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s: options must be strings, got %s", name, options.Index(i).Type())
		}
		opts = append(opts, s)
	}
	if def == "" && len(opts) > 0 {
		def = opts[0]
	}
	return rs.declare(controls.Control{Type: typ, Label: label, Value: def, Options: opts})
}

func (rs *runState) declareColor(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	def := "#000000"
	if err := starlark.UnpackArgs("color_picker", args, kwargs,
		"label", &label, "default?", &def); err != nil {
		return nil, err
	}
	return rs.declare(controls.Control{Type: controls.TypeColor, Label: label, Value: def})
}

func (rs *runState) declareRange(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	minV, maxV := floatArg(0), floatArg(100)
	if err := starlark.UnpackArgs("range_slider", args, kwargs,
		"label", &label, "min?", &minV, "max?", &maxV); err != nil {
		return nil, err
	}
	value := map[string]any{"min": float64(minV), "max": float64(maxV)}
	return rs.declare(controls.Control{
		Type:  controls.TypeRange,
		Label: label,
		Value: value,
		Min:   float64(minV),
		Max:   float64(maxV),
	})
}

func (rs *runState) declareButton(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	if err := starlark.UnpackArgs("button", args, kwargs, "label", &label); err != nil {
		return nil, err
	}
	value := map[string]any{"clickCount": 0.0, "lastClicked": 0.0}
	return rs.declare(controls.Control{Type: controls.TypeButton, Label: label, Value: value})
}

// animate declares the script's animation: a keyframe timeline over the
// declared controls. Returns the animation id.
func (rs *runState) animate(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var duration floatArg
	fps := floatArg(rs.fps)
	var loop bool
	var keyframes *starlark.List
	if err := starlark.UnpackArgs("animate", args, kwargs,
		"duration", &duration, "keyframes", &keyframes,
		"fps?", &fps, "loop?", &loop); err != nil {
		return nil, err
	}
	if float64(fps) > rs.maxFPS {
		return nil, fmt.Errorf("animate: fps %v exceeds maximum %v", float64(fps), rs.maxFPS)
	}

	kfs := make([]animation.Keyframe, 0, keyframes.Len())
	for i := 0; i < keyframes.Len(); i++ {
		entry, err := stringMapFromStarlark(keyframes.Index(i))
		if err != nil {
			return nil, fmt.Errorf("animate: keyframe %d: %w", i, err)
		}
		kf, err := keyframeFromMap(i, entry)
		if err != nil {
			return nil, err
		}
		kfs = append(kfs, kf)
	}

	anim, err := animation.New(rs.ownerID, float64(duration), float64(fps), loop, kfs)
	if err != nil {
		return nil, err
	}
	rs.anim = anim
	rs.fps = float64(fps)
	return starlark.String(anim.ID), nil
}

func keyframeFromMap(index int, entry map[string]any) (animation.Keyframe, error) {
	kf := animation.Keyframe{ID: fmt.Sprintf("kf-%d", index)}

	t, ok := entry["time"]
	if !ok {
		return kf, fmt.Errorf("animate: keyframe %d: missing time", index)
	}
	tf, ok := t.(float64)
	if !ok {
		return kf, fmt.Errorf("animate: keyframe %d: time must be a number", index)
	}
	kf.Time = tf

	values, ok := entry["values"].(map[string]any)
	if !ok {
		return kf, fmt.Errorf("animate: keyframe %d: missing values dict", index)
	}
	kf.Values = values

	if label, ok := entry["label"].(string); ok {
		kf.Label = label
	}
	return kf, nil
}

// onPrecompute registers the precompute function of the two-phase
// pipeline. The function receives a register_frame callable.
func (rs *runState) onPrecompute(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackArgs("on_precompute", args, kwargs, "fn", &fn); err != nil {
		return nil, err
	}
	rs.precomputeFn = fn
	return starlark.None, nil
}

// onRender registers the per-frame render function. The function receives
// (frame_index, frame, controls).
func (rs *runState) onRender(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackArgs("on_render", args, kwargs, "fn", &fn); err != nil {
		return nil, err
	}
	rs.renderFn = fn
	return starlark.None, nil
}

func (rs *runState) setFPS(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fps floatArg
	if err := starlark.UnpackArgs("set_fps", args, kwargs, "fps", &fps); err != nil {
		return nil, err
	}
	if fps <= 0 {
		return nil, fmt.Errorf("set_fps: fps must be positive, got %v", float64(fps))
	}
	if float64(fps) > rs.maxFPS {
		return nil, fmt.Errorf("set_fps: fps %v exceeds maximum %v", float64(fps), rs.maxFPS)
	}
	rs.fps = float64(fps)
	return starlark.None, nil
}

func (rs *runState) setTotalFrames(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackArgs("set_total_frames", args, kwargs, "n", &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("set_total_frames: n must not be negative, got %d", n)
	}
	rs.totalFrames = n
	return starlark.None, nil
}

// vizModule exposes the output sink as drawing primitives.
func vizModule(scene *Scene) *starlarkstruct.Module {
	shape := func(name string, build func(args starlark.Tuple, kwargs []starlark.Tuple) (map[string]any, error)) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			props, err := build(args, kwargs)
			if err != nil {
				return nil, err
			}
			scene.add(name, props)
			return starlark.None, nil
		})
	}

	return &starlarkstruct.Module{
		Name: "viz",
		Members: starlark.StringDict{
			"circle": shape("circle", func(args starlark.Tuple, kwargs []starlark.Tuple) (map[string]any, error) {
				var x, y, r floatArg
				fill := "#000000"
				if err := starlark.UnpackArgs("circle", args, kwargs,
					"x", &x, "y", &y, "r", &r, "fill?", &fill); err != nil {
					return nil, err
				}
				return map[string]any{
					"x": float64(x), "y": float64(y), "r": float64(r), "fill": fill,
				}, nil
			}),
			"rect": shape("rect", func(args starlark.Tuple, kwargs []starlark.Tuple) (map[string]any, error) {
				var x, y, w, h floatArg
				fill := "#000000"
				if err := starlark.UnpackArgs("rect", args, kwargs,
					"x", &x, "y", &y, "w", &w, "h", &h, "fill?", &fill); err != nil {
					return nil, err
				}
				return map[string]any{
					"x": float64(x), "y": float64(y),
					"w": float64(w), "h": float64(h), "fill": fill,
				}, nil
			}),
			"line": shape("line", func(args starlark.Tuple, kwargs []starlark.Tuple) (map[string]any, error) {
				var x1, y1, x2, y2 floatArg
				stroke := "#000000"
				width := floatArg(1)
				if err := starlark.UnpackArgs("line", args, kwargs,
					"x1", &x1, "y1", &y1, "x2", &x2, "y2", &y2,
					"stroke?", &stroke, "width?", &width); err != nil {
					return nil, err
				}
				return map[string]any{
					"x1": float64(x1), "y1": float64(y1),
					"x2": float64(x2), "y2": float64(y2),
					"stroke": stroke, "width": float64(width),
				}, nil
			}),
			"text": shape("text", func(args starlark.Tuple, kwargs []starlark.Tuple) (map[string]any, error) {
				var x, y floatArg
				var content string
				size := floatArg(14)
				if err := starlark.UnpackArgs("text", args, kwargs,
					"x", &x, "y", &y, "content", &content, "size?", &size); err != nil {
					return nil, err
				}
				return map[string]any{
					"x": float64(x), "y": float64(y),
					"content": content, "size": float64(size),
				}, nil
			}),
			"clear": starlark.NewBuiltin("clear", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs("clear", args, kwargs); err != nil {
					return nil, err
				}
				scene.Clear()
				return starlark.None, nil
			}),
		},
	}
}

// boardModule exposes the canvas accessor surface.
func boardModule(acc board.Accessor) *starlarkstruct.Module {
	reader := func(name string, read func() []board.Element) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackArgs(name, args, kwargs); err != nil {
				return nil, err
			}
			return elementsToStarlark(read()), nil
		})
	}

	adder := func(name string, add func(x, y float64, props map[string]any) (board.Element, error)) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var x, y floatArg
			var props starlark.Value
			if err := starlark.UnpackArgs(name, args, kwargs,
				"x", &x, "y", &y, "props?", &props); err != nil {
				return nil, err
			}
			propMap, err := stringMapFromStarlark(props)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			element, err := add(float64(x), float64(y), propMap)
			if err != nil {
				return nil, err
			}
			return elementToStarlark(element), nil
		})
	}

	return &starlarkstruct.Module{
		Name: "board",
		Members: starlark.StringDict{
			"get_images":         reader("get_images", acc.GetImages),
			"get_texts":          reader("get_texts", acc.GetTexts),
			"get_shapes":         reader("get_shapes", acc.GetShapes),
			"get_latex":          reader("get_latex", acc.GetLatex),
			"get_strokes":        reader("get_strokes", acc.GetStrokes),
			"get_visualizations": reader("get_visualizations", acc.GetVisualizations),
			"get_all":            reader("get_all", acc.GetAll),

			"add_image": adder("add_image", acc.AddImage),
			"add_text":  adder("add_text", acc.AddText),
			"add_shape": adder("add_shape", acc.AddShape),
			"add_latex": adder("add_latex", acc.AddLatex),

			"update_element": starlark.NewBuiltin("update_element", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var id string
				var props starlark.Value
				if err := starlark.UnpackArgs("update_element", args, kwargs,
					"id", &id, "props", &props); err != nil {
					return nil, err
				}
				propMap, err := stringMapFromStarlark(props)
				if err != nil {
					return nil, fmt.Errorf("update_element: %w", err)
				}
				if err := acc.UpdateElement(id, propMap); err != nil {
					return nil, err
				}
				return starlark.None, nil
			}),
			"delete_element": starlark.NewBuiltin("delete_element", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var id string
				if err := starlark.UnpackArgs("delete_element", args, kwargs, "id", &id); err != nil {
					return nil, err
				}
				if err := acc.DeleteElement(id); err != nil {
					return nil, err
				}
				return starlark.None, nil
			}),
			"get_viewport": starlark.NewBuiltin("get_viewport", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs("get_viewport", args, kwargs); err != nil {
					return nil, err
				}
				vp := acc.GetViewport()
				return toStarlark(map[string]any{
					"x": vp.X, "y": vp.Y,
					"width": vp.Width, "height": vp.Height,
					"zoom": vp.Zoom,
				}), nil
			}),
			"get_code_block_position": starlark.NewBuiltin("get_code_block_position", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs("get_code_block_position", args, kwargs); err != nil {
					return nil, err
				}
				pos := acc.GetCodeBlockPosition()
				return toStarlark(map[string]any{"x": pos.X, "y": pos.Y}), nil
			}),
		},
	}
}

func elementsToStarlark(elems []board.Element) *starlark.List {
	out := make([]starlark.Value, len(elems))
	for i, e := range elems {
		out[i] = elementToStarlark(e)
	}
	return starlark.NewList(out)
}

func elementToStarlark(e board.Element) starlark.Value {
	return toStarlark(map[string]any{
		"id":    e.ID,
		"kind":  string(e.Kind),
		"x":     e.X,
		"y":     e.Y,
		"props": anyMap(e.Props),
	})
}

// anyMap keeps nil prop maps JSON-friendly.
func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// armBackstop starts the wall-clock backstop for one evaluation: a timer
// that cancels the Starlark thread if the cooperative guard never gets a
// chance to fire (a script blocking without looping). The returned stop
// function disarms it.
func (rs *runState) armBackstop(thread *starlark.Thread, budget time.Duration) func() {
	timer := time.AfterFunc(budget+backstopGrace, func() {
		rs.timedOut.Store(true)
		thread.Cancel(timeoutSentinel.Error())
	})
	return func() { timer.Stop() }
}
