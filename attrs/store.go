// Package attrs holds the attribute tree of a single record.
//
// A Store is an insertion-ordered map from canonical string keys to values.
// Keys may be given as strings, Symbols or anything printable; they are
// normalized to text at every call. Nested mappings are stored as
// map[string]any and merged key-by-key by DeepMerge.
//
// A Store is not safe for concurrent use.
package attrs

import (
	"bytes"
	"encoding/json"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Store is an ordered attribute container with indifferent key access.
type Store struct {
	m *linkedhashmap.Map
}

// New returns a Store holding a normalized copy of initial.
func New(initial map[string]any) *Store {
	s := &Store{m: linkedhashmap.New()}
	s.putAll(initial)
	return s
}

// Get returns the value stored under key.
func (s *Store) Get(key any) (any, bool) {
	return s.m.Get(Key(key))
}

// Value returns the value stored under key, or nil when unset.
func (s *Store) Value(key any) any {
	v, _ := s.m.Get(Key(key))
	return v
}

// Has reports whether key is set.
func (s *Store) Has(key any) bool {
	_, ok := s.m.Get(Key(key))
	return ok
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key any, value any) {
	s.m.Put(Key(key), normalizeValue(value))
}

// Delete removes key.
func (s *Store) Delete(key any) {
	s.m.Remove(Key(key))
}

// Len returns the number of top-level keys.
func (s *Store) Len() int {
	return s.m.Size()
}

// Keys returns the top-level keys in insertion order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, s.m.Size())
	for _, k := range s.m.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// Each calls fn for every top-level entry in insertion order until fn
// returns false.
func (s *Store) Each(fn func(key string, value any) bool) {
	it := s.m.Iterator()
	for it.Next() {
		if !fn(it.Key().(string), it.Value()) {
			return
		}
	}
}

// Merge deep-merges attrs into the store. An empty attrs resets the store
// to empty instead; callers that need "merge nothing" semantics should use
// DeepMerge.
func (s *Store) Merge(attrs map[string]any) {
	if len(attrs) == 0 {
		s.m.Clear()
		return
	}
	s.DeepMerge(attrs)
}

// DeepMerge merges attrs into the store recursively. Where both the stored
// and the incoming value are mappings they are merged key-by-key; otherwise
// the incoming value replaces the stored one.
func (s *Store) DeepMerge(attrs map[string]any) {
	patch, _ := asMap(attrs)
	for _, k := range sortedKeys(patch) {
		existing, _ := s.m.Get(k)
		s.m.Put(k, mergeValue(existing, patch[k]))
	}
}

// ReplaceAll discards the contents of the store and copies attrs in.
func (s *Store) ReplaceAll(attrs map[string]any) {
	s.m.Clear()
	s.putAll(attrs)
}

// Snapshot returns a deep copy of the attribute tree. Mutating the result
// does not affect the store.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, s.m.Size())
	s.m.Each(func(k, v interface{}) {
		out[k.(string)] = cloneValue(v)
	})
	return out
}

// MarshalJSON renders the store as a JSON object with top-level keys in
// insertion order.
func (s *Store) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	s.Each(func(k string, v any) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var b []byte
		if b, err = json.Marshal(k); err != nil {
			return false
		}
		buf.Write(b)
		buf.WriteByte(':')
		if b, err = json.Marshal(v); err != nil {
			return false
		}
		buf.Write(b)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Store) putAll(attrs map[string]any) {
	normalized, _ := asMap(attrs)
	for _, k := range sortedKeys(normalized) {
		s.m.Put(k, normalized[k])
	}
}
