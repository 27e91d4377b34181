// internal/fault/fault.go
package fault

import (
	"context"
	"errors"
	"net"

	"github.com/goburrow/modbus"
)

// Sentinel errors produced by the transport, codec and profile layers.
// Every layer wraps with %w so Classify can match with errors.Is.
var (
	ErrTimeout         = errors.New("no response within deadline")
	ErrFeatureDisabled = errors.New("remote control disabled on device")
	ErrBadFrame        = errors.New("malformed response frame")
	ErrUnknownProfile  = errors.New("unknown device profile")
	ErrNotWritable     = errors.New("channel is not writable")
	ErrValidation      = errors.New("value rejected by channel")
)

// Kind is the closed set of failure classes upper layers are allowed to see.
type Kind int

const (
	Timeout Kind = iota
	FeatureDisabled
	MalformedResponse
	UnknownProfile
	NotWritable
	Validation
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case FeatureDisabled:
		return "feature_disabled"
	case MalformedResponse:
		return "malformed_response"
	case UnknownProfile:
		return "unknown_profile"
	case NotWritable:
		return "not_writable"
	case Validation:
		return "validation"
	}
	return "malformed_response"
}

// Action is the recommended recovery for a Kind.
type Action int

const (
	// Retry means the failure is transient; the next poll tick retries it.
	Retry Action = iota
	// Surface means the caller must see the error; retrying will not help.
	Surface
	// Fatal means the device must not be created at all.
	Fatal
)

// Classify maps any failure to exactly one Kind.
// This is the single place that interprets device and library error codes.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrFeatureDisabled):
		return FeatureDisabled
	case errors.Is(err, ErrUnknownProfile):
		return UnknownProfile
	case errors.Is(err, ErrNotWritable):
		return NotWritable
	case errors.Is(err, ErrValidation):
		return Validation
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Timeout
	}

	// Modbus exception responses come back from the TCP transport verbatim.
	// Exception 1 (illegal function) is how bridged devices report that
	// remote control is switched off; everything else is a framing-level
	// failure of the device side.
	var merr *modbus.ModbusError
	if errors.As(err, &merr) {
		if merr.ExceptionCode == 1 {
			return FeatureDisabled
		}
		return MalformedResponse
	}

	return MalformedResponse
}

// Recovery returns the recommended action for a Kind.
func Recovery(k Kind) Action {
	switch k {
	case Timeout, MalformedResponse:
		return Retry
	case FeatureDisabled, NotWritable, Validation:
		return Surface
	case UnknownProfile:
		return Fatal
	}
	return Retry
}
