package attrs

import (
	"fmt"
	"reflect"
	"sort"
)

// Symbol is a symbolic attribute name. It resolves to the same entry as the
// equivalent string: Get(Symbol("id")) and Get("id") are interchangeable.
type Symbol string

// String implements fmt.Stringer.
func (s Symbol) String() string { return string(s) }

// Key returns the canonical text form of an attribute key.
func Key(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case Symbol:
		return string(k)
	case []byte:
		return string(k)
	case fmt.Stringer:
		return k.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(k)
	}
}

// normalizeValue copies nested mappings of any map type into map[string]any
// with canonical keys. Sequences are copied too: slices whose elements may
// hold mappings become []any with normalized items, other slices keep their
// type. Every other value is returned unchanged.
func normalizeValue(v any) any {
	if m, ok := asMap(v); ok {
		return m
	}
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = normalizeValue(item)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return v
	}
	switch rv.Type().Elem().Kind() {
	case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	}
	return copySlice(rv)
}

// copySlice returns a shallow copy of the slice rv with the same type.
func copySlice(rv reflect.Value) any {
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}

// asMap reports whether v is a mapping and, if so, returns a normalized copy.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = normalizeValue(item)
		}
		return out, true
	case map[Symbol]any:
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[string(k)] = normalizeValue(item)
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[Key(k)] = normalizeValue(item)
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = item
		}
		return out, true
	case *Store:
		if m == nil {
			return nil, false
		}
		return m.Snapshot(), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[Key(iter.Key().Interface())] = normalizeValue(iter.Value().Interface())
	}
	return out, true
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
