// Package status is the status/error taxonomy shared by every
// component boundary in this module. It lives under internal/ rather
// than at the module root so the domain packages (infersrv, pipeline,
// codec, model, engine, bufsurface, taskqueue) can depend on it
// without the root package depending back on them; the root package
// re-exports this package's types as the public API via type aliases.
package status

import (
	"errors"
	"fmt"
)

// Status is the wire-stable status taxonomy.
type Status int

const (
	StatusSuccess Status = iota
	StatusErrorReadWrite
	StatusErrorMemory
	StatusInvalidParam
	StatusWrongType
	StatusErrorBackend
	StatusNotImplemented
	StatusTimeout
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusErrorReadWrite:
		return "ERROR_READWRITE"
	case StatusErrorMemory:
		return "ERROR_MEMORY"
	case StatusInvalidParam:
		return "INVALID_PARAM"
	case StatusWrongType:
		return "WRONG_TYPE"
	case StatusErrorBackend:
		return "ERROR_BACKEND"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Kind is one of the five internal error kinds every component maps
// its failures onto before they cross a package boundary.
type Kind string

const (
	KindInvalidArg  Kind = "invalid_arg"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindBackend     Kind = "backend"
	KindInternal    Kind = "internal"
)

// Status maps an error kind onto the wire-stable status taxonomy.
func (k Kind) Status() Status {
	switch k {
	case KindInvalidArg:
		return StatusInvalidParam
	case KindTimeout:
		return StatusTimeout
	case KindUnavailable:
		return StatusErrorBackend
	case KindBackend:
		return StatusErrorBackend
	default:
		return StatusErrorBackend
	}
}

// Error is the structured error type returned across every component
// boundary in this module.
type Error struct {
	Op        string // operation that failed, e.g. "request_sync", "place_mark"
	Component string // e.g. "infersrv", "taskqueue", "bufsurface"
	DeviceID  int    // -1 if not applicable
	Kind      Kind
	Msg       string
	Inner     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.DeviceID >= 0 {
		return fmt.Sprintf("easydk: %s/%s: %s (device=%d)", e.Component, e.Op, msg, e.DeviceID)
	}
	return fmt.Sprintf("easydk: %s/%s: %s", e.Component, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// NewError constructs a structured error with no device context.
func NewError(component, op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Component: component, DeviceID: -1, Kind: kind, Msg: msg}
}

// NewDeviceError constructs a structured error bound to a device id.
func NewDeviceError(component, op string, deviceID int, kind Kind, msg string) *Error {
	return &Error{Op: op, Component: component, DeviceID: deviceID, Kind: kind, Msg: msg}
}

// Wrap wraps an inner error with component/op context, preserving its
// Kind if it is already a structured *Error.
func Wrap(component, op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	var ie *Error
	if errors.As(inner, &ie) {
		return &Error{Op: op, Component: component, DeviceID: ie.DeviceID, Kind: ie.Kind, Msg: ie.Msg, Inner: inner}
	}
	return &Error{Op: op, Component: component, DeviceID: -1, Kind: KindInternal, Msg: inner.Error(), Inner: inner}
}

// IsKind reports whether err is a structured Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StatusOf returns the wire status for any error, SUCCESS for nil.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Status()
	}
	return StatusErrorBackend
}

var (
	// ErrUnavailable is returned by pools/marks when a resource is
	// temporarily exhausted.
	ErrUnavailable = NewError("easydk", "", KindUnavailable, "resource unavailable")
	// ErrTimeout is returned when a blocking operation exceeds its deadline.
	ErrTimeout = NewError("easydk", "", KindTimeout, "timed out")
	// ErrInvalidParam is returned when caller input is nonsensical.
	ErrInvalidParam = NewError("easydk", "", KindInvalidArg, "invalid parameter")
)
