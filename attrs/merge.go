package attrs

import "reflect"

// deepMerge returns a new map holding base overlaid with patch. Keys present
// in both whose values are mappings on both sides are merged recursively;
// for every other key the patch value wins, including nil and sequences.
// patch must already be normalized.
func deepMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

// mergeValue resolves a single key during a deep merge.
func mergeValue(existing, incoming any) any {
	next, ok := incoming.(map[string]any)
	if !ok {
		return incoming
	}
	if prev, ok := existing.(map[string]any); ok {
		return deepMerge(prev, next)
	}
	return next
}

// cloneValue copies the mapping and sequence structure of v. v must already
// be normalized; leaf values are shared.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && !rv.IsNil() {
			return copySlice(rv)
		}
		return v
	}
}
