package event

import (
	"maps"
	"slices"
	"strings"
)

// PathSeparator splits flat keys into nested paths.
const PathSeparator = "."

// Expand turns dotted keys into nested maps: {"address.city": v} becomes {"address": {"city": v}}.
//
// Keys are applied in sorted order. A plain key and a dotted key sharing a first segment resolve to the
// dotted one: when a path crosses a non-map value, that value is replaced by a new map.
// flat is left untouched.
func Expand(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for _, k := range slices.Sorted(maps.Keys(flat)) {
		if !strings.Contains(k, PathSeparator) {
			out[k] = flat[k]
			continue
		}
		out = Set(out, strings.Split(k, PathSeparator), flat[k])
	}
	return out
}

// Set returns a copy of tree with value stored at path.
// Maps along the path are copied, never modified in place; any non-map value on the path is replaced.
func Set(tree map[string]any, path []string, value any) map[string]any {
	out := make(map[string]any, len(tree)+1)
	maps.Copy(out, tree)

	if len(path) == 0 {
		return out
	}

	head := path[0]
	if len(path) == 1 {
		out[head] = value
		return out
	}

	child, _ := out[head].(map[string]any)
	out[head] = Set(child, path[1:], value)
	return out
}
