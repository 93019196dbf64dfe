// Package interpolation provides typed interpolation between JSON-like
// values: the structured frame data stored in the frame cache, and the
// control values carried on animation keyframes.
package interpolation

import (
	"fmt"
	"strconv"
	"strings"
)

// Lerp returns the linear interpolation between a and b at position t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Frame interpolates between two frame-data values at position t in [0,1].
//
// Rules:
//   - numeric leaves interpolate linearly
//   - record leaves recurse key-by-key, iterating only the keys of the
//     lower value (keys present only in the upper value are dropped)
//   - array leaves interpolate element-wise, truncated to the lower
//     array's length when lengths differ
//   - everything else (strings, booleans, mixed types) switches at the
//     midpoint: the lower value while t < 0.5, the upper value after
func Frame(lower, upper any, t float64) any {
	if la, ok := AsFloat(lower); ok {
		if ua, ok := AsFloat(upper); ok {
			return Lerp(la, ua, t)
		}
	}

	if lm, ok := lower.(map[string]any); ok {
		if um, ok := upper.(map[string]any); ok {
			out := make(map[string]any, len(lm))
			for k, lv := range lm {
				if uv, present := um[k]; present {
					out[k] = Frame(lv, uv, t)
				} else {
					out[k] = lv
				}
			}
			return out
		}
	}

	if ls, ok := lower.([]any); ok {
		if us, ok := upper.([]any); ok {
			n := len(ls)
			if len(us) < n {
				n = len(us)
			}
			out := make([]any, n)
			for i := range n {
				out[i] = Frame(ls[i], us[i], t)
			}
			return out
		}
	}

	if t < 0.5 {
		return lower
	}
	return upper
}

// Control interpolates between two control values at position t in [0,1].
// It extends the Frame rules with control-specific shapes: "#rrggbb" hex
// color strings interpolate channel-wise with rounding, {min,max} range
// records recurse, and button-shaped {clickCount,lastClicked} records are
// never interpolated, snapping to the upper value instead (a half-blended
// click count is meaningless).
func Control(lower, upper any, t float64) any {
	if la, ok := AsFloat(lower); ok {
		if ua, ok := AsFloat(upper); ok {
			return Lerp(la, ua, t)
		}
	}

	if ls, ok := lower.(string); ok {
		if us, ok := upper.(string); ok {
			if out, ok := lerpHexColor(ls, us, t); ok {
				return out
			}
		}
	}

	if lm, ok := lower.(map[string]any); ok {
		if um, ok := upper.(map[string]any); ok {
			if isButtonValue(lm) || isButtonValue(um) {
				return upper
			}
			out := make(map[string]any, len(lm))
			for k, lv := range lm {
				if uv, present := um[k]; present {
					out[k] = Control(lv, uv, t)
				} else {
					out[k] = lv
				}
			}
			return out
		}
	}

	if ls, ok := lower.([]any); ok {
		if us, ok := upper.([]any); ok {
			n := len(ls)
			if len(us) < n {
				n = len(us)
			}
			out := make([]any, n)
			for i := range n {
				out[i] = Control(ls[i], us[i], t)
			}
			return out
		}
	}

	if t < 0.5 {
		return lower
	}
	return upper
}

// AsFloat reports v as a float64 when it carries any numeric Go type that
// survives a JSON or script-value round trip.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// isButtonValue detects the {clickCount,lastClicked} record shape produced
// by button controls.
func isButtonValue(m map[string]any) bool {
	if len(m) != 2 {
		return false
	}
	_, hasCount := m["clickCount"]
	_, hasLast := m["lastClicked"]
	return hasCount && hasLast
}

// lerpHexColor interpolates two "#rrggbb" strings channel-wise, rounding
// each channel to the nearest integer. Returns false when either string is
// not a 6-digit hex color.
func lerpHexColor(a, b string, t float64) (string, bool) {
	ar, ag, ab, ok := parseHexColor(a)
	if !ok {
		return "", false
	}
	br, bg, bb, ok := parseHexColor(b)
	if !ok {
		return "", false
	}
	r := int(Lerp(float64(ar), float64(br), t) + 0.5)
	g := int(Lerp(float64(ag), float64(bg), t) + 0.5)
	bl := int(Lerp(float64(ab), float64(bb), t) + 0.5)
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl), true
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return 0, 0, 0, false
	}
	rv, err := strconv.ParseUint(s[1:3], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	gv, err := strconv.ParseUint(s[3:5], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	bv, err := strconv.ParseUint(s[5:7], 16, 8)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(rv), int(gv), int(bv), true
}
