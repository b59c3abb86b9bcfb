package jira

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Fields is the loosely-typed `fields` object of a Jira issue. Keys keep the
// order in which they appeared in the source document, which the date-field
// heuristics rely on when custom field IDs cannot be compared numerically.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields creates an empty field bag.
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Set stores a value. A new key is appended to the key order; an existing key
// keeps its position.
func (f *Fields) Set(key string, value any) *Fields {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return f
}

// Get returns the raw value for key.
func (f *Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the field keys in document order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Present reports whether key exists and is not null.
func (f *Fields) Present(key string) bool {
	v, ok := f.Get(key)
	return ok && v != nil
}

// String returns the value of key when it is a JSON string.
func (f *Fields) String(key string) string {
	v, _ := f.Get(key)
	s, _ := v.(string)
	return s
}

// Map returns the value of key when it is a JSON object.
func (f *Fields) Map(key string) map[string]any {
	v, _ := f.Get(key)
	m, _ := v.(map[string]any)
	return m
}

// Strings returns the string elements of an array value, skipping anything else.
func (f *Fields) Strings(key string) []string {
	v, _ := f.Get(key)
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Lookup walks nested objects, e.g. Lookup("status", "name").
func (f *Fields) Lookup(path ...string) any {
	if len(path) == 0 {
		return nil
	}
	v, _ := f.Get(path[0])
	return lookup(v, path[1:]...)
}

// LookupString is Lookup restricted to string leaves.
func (f *Fields) LookupString(path ...string) string {
	s, _ := f.Lookup(path...).(string)
	return s
}

func lookup(v any, path ...string) any {
	for _, p := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// UnmarshalJSON decodes a JSON object keeping the key order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid fields JSON")
	}
	res := gjson.ParseBytes(data)
	f.keys = nil
	f.values = make(map[string]any)
	if res.Type == gjson.Null {
		return nil
	}
	if !res.IsObject() {
		return fmt.Errorf("fields must be a JSON object, got %s", res.Type)
	}
	res.ForEach(func(k, v gjson.Result) bool {
		f.Set(k.String(), v.Value())
		return true
	})
	return nil
}

// MarshalJSON encodes the bag as a JSON object in key order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
