// internal/codec/value.go
package codec

import (
	"encoding/json"
	"strconv"
)

// ValueKind discriminates which member of Value carries the decoded value.
type ValueKind int

const (
	// Invalid marks a raw word that decoded outside the channel's domain.
	// It is a sentinel, never an error: polling keeps going.
	Invalid ValueKind = iota
	Bool
	Number
	Enum
)

// Value is one decoded channel value. Comparable, so change detection
// is plain struct equality.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	Enum   string
}

func BoolValue(b bool) Value      { return Value{Kind: Bool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: Number, Number: n} }
func EnumValue(s string) Value    { return Value{Kind: Enum, Enum: s} }
func InvalidValue() Value         { return Value{} }

func (v Value) Valid() bool { return v.Kind != Invalid }

func (v Value) String() string {
	switch v.Kind {
	case Bool:
		return strconv.FormatBool(v.Bool)
	case Number:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case Enum:
		return v.Enum
	}
	return "invalid"
}

// MarshalJSON renders the native value; invalid decodes render as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Bool:
		return json.Marshal(v.Bool)
	case Number:
		return json.Marshal(v.Number)
	case Enum:
		return json.Marshal(v.Enum)
	}
	return []byte("null"), nil
}
