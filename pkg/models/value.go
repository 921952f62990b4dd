package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Value is a single input cell. The missing marker is carried explicitly so
// that an empty string stays a valid value.
type Value struct {
	Raw  string
	Null bool
}

// Null returns the missing-value marker.
func Null() Value {
	return Value{Null: true}
}

// String wraps a raw textual value.
func String(s string) Value {
	return Value{Raw: s}
}

// Number wraps a numeric value using its shortest round-tripping form.
func Number(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'g', -1, 64)}
}

// NewValue coerces loosely typed input (as decoded from JSON, YAML or a
// driver row) into a Value. nil becomes the missing marker.
func NewValue(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case json.Number:
		return String(t.String()), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return Value{}, fmt.Errorf("unsupported cell value %T: %w", v, err)
	}
	return String(s), nil
}

// MustValue is NewValue for literals known to be convertible.
func MustValue(v interface{}) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Values converts a slice of loose values, typically in tests and fixtures.
func Values(vs ...interface{}) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = MustValue(v)
	}
	return out
}

// MarshalJSON encodes the missing marker as null and everything else as a string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Null {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw)
}

// UnmarshalJSON accepts null, strings, numbers and booleans.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	val, err := NewValue(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueKind tags a resolved cell.
type ValueKind string

const (
	KindNumeric     ValueKind = "numeric"
	KindCategorical ValueKind = "categorical"
	KindDatetime    ValueKind = "datetime"
	KindText        ValueKind = "text"
	KindMissing     ValueKind = "missing"
)

// TypedValue is a cell after type resolution. Only the field matching Kind is meaningful.
type TypedValue struct {
	Kind   ValueKind
	Number float64
	Time   time.Time
	Text   string
}

// IsMissing reports whether the cell carries the missing marker.
func (tv TypedValue) IsMissing() bool {
	return tv.Kind == KindMissing
}
