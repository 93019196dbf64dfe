package script

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// toStarlark converts a JSON-like Go value into its Starlark counterpart.
// Unknown types degrade to their string form rather than failing: script
// input data is display-oriented, not a type system.
func toStarlark(v any) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(v)
	case string:
		return starlark.String(v)
	case int:
		return starlark.MakeInt(v)
	case int32:
		return starlark.MakeInt(int(v))
	case int64:
		return starlark.MakeInt64(v)
	case float32:
		return starlark.Float(v)
	case float64:
		return starlark.Float(v)
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			// SetKey only fails for unhashable keys; strings always hash.
			_ = d.SetKey(starlark.String(k), toStarlark(v[k]))
		}
		return d
	}
	return starlark.String(fmt.Sprint(v))
}

// fromStarlark converts a Starlark value into a JSON-like Go value.
// Numbers become float64 so values survive cache serialization unchanged.
func fromStarlark(v starlark.Value) any {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.String:
		return string(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return float64(i)
		}
		f, _ := starlark.AsFloat(v)
		return f
	case starlark.Float:
		return float64(v)
	case *starlark.List:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = fromStarlark(v.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = fromStarlark(e)
		}
		return out
	case starlark.IterableMapping:
		items := v.Items()
		out := make(map[string]any, len(items))
		for _, kv := range items {
			key, ok := starlark.AsString(kv[0])
			if !ok {
				key = kv[0].String()
			}
			out[key] = fromStarlark(kv[1])
		}
		return out
	}
	return v.String()
}

// floatArg unpacks a numeric builtin parameter, accepting both Int and
// Float script values. The stock float64 unpacker rejects Int, which
// would make natural calls like circle(x=10) fail.
type floatArg float64

// Unpack implements starlark.Unpacker.
func (f *floatArg) Unpack(v starlark.Value) error {
	x, ok := starlark.AsFloat(v)
	if !ok {
		return fmt.Errorf("got %s, want number", v.Type())
	}
	*f = floatArg(x)
	return nil
}

// stringMapFromStarlark converts a Starlark mapping into a Go map,
// rejecting anything else.
func stringMapFromStarlark(v starlark.Value) (map[string]any, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	m, ok := v.(starlark.IterableMapping)
	if !ok {
		return nil, fmt.Errorf("expected a dict, got %s", v.Type())
	}
	out, _ := fromStarlark(m).(map[string]any)
	return out, nil
}
