// internal/codec/codec.go
package codec

import (
	"fmt"
	"math"

	"github.com/tamzrod/regbridge/internal/fault"
)

// ChannelKind selects the register transform for a channel.
type ChannelKind int

const (
	// KindBool: whole register, 0 = off, anything else = on.
	KindBool ChannelKind = iota
	// KindEnum: whole register is an index into the Enum table.
	KindEnum
	// KindScaled: whole register times Scale (fixed point).
	KindScaled
	// KindColorTemp: device 0-100 warm-to-cool mapped onto 154-500 mired.
	KindColorTemp
	// KindFlag: single bit under Mask within a packed register.
	KindFlag
	// KindField: (raw & Mask) >> Shift, times Scale, within a packed register.
	KindField
)

// Channel describes one logical channel's register transform.
// Pure data: the registry builds these, the codec interprets them.
type Channel struct {
	Name string
	Reg  uint16
	Kind ChannelKind
	Unit string

	Scale    float64 // scaled/field kinds; 0 means 1
	Enum     []string
	Min, Max float64 // encode/decode bounds; both 0 means unbounded
	Mask     uint16  // flag/field kinds
	Shift    uint

	Writable bool
}

func (c Channel) scale() float64 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

func (c Channel) bounded() bool { return c.Min != 0 || c.Max != 0 }

// Decode converts one raw register word into the channel's domain value.
// Never fails: out-of-range words decode to the invalid sentinel.
func Decode(c Channel, raw uint16) Value {
	switch c.Kind {
	case KindBool:
		return BoolValue(raw != 0)

	case KindEnum:
		if int(raw) >= len(c.Enum) {
			return InvalidValue()
		}
		return EnumValue(c.Enum[raw])

	case KindScaled:
		n := float64(raw) * c.scale()
		if c.bounded() && (n < c.Min || n > c.Max) {
			return InvalidValue()
		}
		return NumberValue(n)

	case KindColorTemp:
		return NumberValue(decodeColorTemp(raw))

	case KindFlag:
		return BoolValue(raw&c.Mask != 0)

	case KindField:
		n := float64((raw&c.Mask)>>c.Shift) * c.scale()
		if c.bounded() && (n < c.Min || n > c.Max) {
			return InvalidValue()
		}
		return NumberValue(n)
	}
	return InvalidValue()
}

// Encode converts a domain value into the register word to write.
// current is the channel's cached raw word; packed kinds read-modify-write it,
// whole-register kinds ignore it.
func Encode(c Channel, v Value, current uint16) (uint16, error) {
	switch c.Kind {
	case KindBool:
		if v.Kind != Bool {
			return 0, kindErr(c, v)
		}
		if v.Bool {
			return 1, nil
		}
		return 0, nil

	case KindEnum:
		if v.Kind != Enum {
			return 0, kindErr(c, v)
		}
		for i, name := range c.Enum {
			if name == v.Enum {
				return uint16(i), nil
			}
		}
		return 0, fmt.Errorf("codec: %q not in enum for channel %s: %w", v.Enum, c.Name, fault.ErrValidation)

	case KindScaled:
		if v.Kind != Number {
			return 0, kindErr(c, v)
		}
		if c.bounded() && (v.Number < c.Min || v.Number > c.Max) {
			return 0, rangeErr(c, v.Number)
		}
		raw := math.Round(v.Number / c.scale())
		if raw < 0 || raw > math.MaxUint16 {
			return 0, rangeErr(c, v.Number)
		}
		return uint16(raw), nil

	case KindColorTemp:
		if v.Kind != Number {
			return 0, kindErr(c, v)
		}
		return encodeColorTemp(v.Number), nil

	case KindFlag:
		if v.Kind != Bool {
			return 0, kindErr(c, v)
		}
		if v.Bool {
			return current | c.Mask, nil
		}
		return current &^ c.Mask, nil

	case KindField:
		if v.Kind != Number {
			return 0, kindErr(c, v)
		}
		if c.bounded() && (v.Number < c.Min || v.Number > c.Max) {
			return 0, rangeErr(c, v.Number)
		}
		raw := math.Round(v.Number / c.scale())
		if raw < 0 || uint16(raw) > c.Mask>>c.Shift {
			return 0, rangeErr(c, v.Number)
		}
		return (current &^ c.Mask) | uint16(raw)<<c.Shift, nil
	}

	return 0, fmt.Errorf("codec: channel %s has no transform: %w", c.Name, fault.ErrValidation)
}

func kindErr(c Channel, v Value) error {
	return fmt.Errorf("codec: wrong value kind for channel %s: %w", c.Name, fault.ErrValidation)
}

func rangeErr(c Channel, n float64) error {
	return fmt.Errorf("codec: %v out of range for channel %s: %w", n, c.Name, fault.ErrValidation)
}
