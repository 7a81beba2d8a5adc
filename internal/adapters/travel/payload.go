package travel

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// oneOrMany decodes a field that providers send either as a single object or
// as an array of objects.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}

	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}

	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = oneOrMany[T]{one}
	return nil
}

// first returns the first element, or false when empty.
func (o oneOrMany[T]) first() (T, bool) {
	if len(o) == 0 {
		var zero T
		return zero, false
	}
	return o[0], true
}

// flexNumber accepts a JSON number or a numeric string. Anything else decodes
// as absent rather than failing the whole payload.
type flexNumber struct {
	value float64
	valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	*f = flexNumber{}

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value, f.valid = v, true
	return nil
}

func (f flexNumber) asFloat() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

func (f flexNumber) asInt() *int {
	if !f.valid {
		return nil
	}
	v := int(f.value)
	return &v
}
