package scanning

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is an untyped JSON document node: one of null, bool, number, string,
// array or object. Accessors return an ok flag instead of panicking so
// fallback decoding can probe a model response of uncertain shape.
type Value struct {
	raw any
}

// ParseDocument parses JSON text into a Value.
func ParseDocument(text string) (Value, error) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Value{}, err
	}
	return Value{raw: raw}, nil
}

// IsNull reports whether the node is JSON null (or missing).
func (v Value) IsNull() bool {
	return v.raw == nil
}

// Field looks up a key on an object node.
func (v Value) Field(name string) (Value, bool) {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return Value{}, false
	}
	child, ok := obj[name]
	if !ok {
		return Value{}, false
	}
	return Value{raw: child}, true
}

// Index returns the i'th element of an array node.
func (v Value) Index(i int) (Value, bool) {
	arr, ok := v.raw.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Value{}, false
	}
	return Value{raw: arr[i]}, true
}

// Len returns the length of an array node, or 0.
func (v Value) Len() int {
	arr, ok := v.raw.([]any)
	if !ok {
		return 0
	}
	return len(arr)
}

// String returns the node as a string.
func (v Value) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Bool returns the node as a bool.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Number returns the node as a float64, coercing numeric strings like
// "12.50" or "$12.50" since models sometimes quote amounts.
func (v Value) Number() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimLeft(s, "$€£¥₹ ")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
