package bladerf

import (
	"errors"
	"fmt"
)

// Code classifies device errors into a small normalized set so callers can
// decide between warn-and-continue and hard failure without matching on
// backend-specific message text.
type Code int

const (
	// CodeInternal covers backend faults with no more specific class.
	CodeInternal Code = iota
	// CodeInvalid marks an out-of-range or malformed argument.
	CodeInvalid
	// CodeUnsupported marks a feature the hardware cannot provide. This is
	// a distinguished non-fatal outcome: callers log it and move on.
	CodeUnsupported
	// CodeTimeout marks a synchronous transfer that exceeded its deadline.
	CodeTimeout
	// CodeIO marks a transport-level failure.
	CodeIO
	// CodeBusy marks a device claimed by another session.
	CodeBusy
	// CodeNoDevice marks a device that disappeared or was never present.
	CodeNoDevice
)

func (c Code) String() string {
	switch c {
	case CodeInvalid:
		return "invalid"
	case CodeUnsupported:
		return "unsupported"
	case CodeTimeout:
		return "timeout"
	case CodeIO:
		return "io"
	case CodeBusy:
		return "busy"
	case CodeNoDevice:
		return "no device"
	default:
		return "internal"
	}
}

// Error is a typed device error carrying the failing operation and a
// normalized code.
type Error struct {
	Op      string
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Errf builds a device Error with a formatted message.
func Errf(op string, code Code, format string, args ...any) error {
	return &Error{Op: op, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the normalized code from err, or CodeInternal when err
// is not a device error.
func ErrorCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsUnsupported reports whether err represents the non-fatal "hardware
// cannot do this" outcome.
func IsUnsupported(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == CodeUnsupported
}

// IsTimeout reports whether err represents an expired transfer deadline.
func IsTimeout(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == CodeTimeout
}

// UnknownModeError reports a configuration string that maps to no member of
// a closed mode enumeration. It is a warning-level condition: callers fall
// back to a safe default.
type UnknownModeError struct {
	Kind  string
	Value string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown %s mode %q", e.Kind, e.Value)
}
