// Package easydk is the public facade over this module's device,
// model, inference-server, and pipeline surfaces; every domain package
// lives under internal/ and is reached only through the types and
// constructors declared at this root.
package easydk

import "github.com/cambricon/easydk-go/internal/status"

// Status is the wire-stable status taxonomy returned on every Response.
type Status = status.Status

const (
	StatusSuccess        = status.StatusSuccess
	StatusErrorReadWrite = status.StatusErrorReadWrite
	StatusErrorMemory    = status.StatusErrorMemory
	StatusInvalidParam   = status.StatusInvalidParam
	StatusWrongType      = status.StatusWrongType
	StatusErrorBackend   = status.StatusErrorBackend
	StatusNotImplemented = status.StatusNotImplemented
	StatusTimeout        = status.StatusTimeout
	StatusCanceled       = status.StatusCanceled
)

// Kind is one of the five internal error kinds every component maps
// its failures onto.
type Kind = status.Kind

const (
	KindInvalidArg  = status.KindInvalidArg
	KindTimeout     = status.KindTimeout
	KindUnavailable = status.KindUnavailable
	KindBackend     = status.KindBackend
	KindInternal    = status.KindInternal
)

// Error is the structured error type returned across every component
// boundary in this module.
type Error = status.Error

// NewError constructs a structured error with no device context.
func NewError(component, op string, kind Kind, msg string) *Error {
	return status.NewError(component, op, kind, msg)
}

// NewDeviceError constructs a structured error bound to a device id.
func NewDeviceError(component, op string, deviceID int, kind Kind, msg string) *Error {
	return status.NewDeviceError(component, op, deviceID, kind, msg)
}

// Wrap wraps an inner error with component/op context, preserving its
// Kind if it is already a structured *Error.
func Wrap(component, op string, inner error) *Error {
	return status.Wrap(component, op, inner)
}

// IsKind reports whether err is a structured Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return status.IsKind(err, kind)
}

// StatusOf returns the wire status for any error, SUCCESS for nil.
func StatusOf(err error) Status {
	return status.StatusOf(err)
}

var (
	// ErrUnavailable is returned by pools/marks when a resource is
	// temporarily exhausted.
	ErrUnavailable = status.ErrUnavailable
	// ErrTimeout is returned when a blocking operation exceeds its deadline.
	ErrTimeout = status.ErrTimeout
	// ErrInvalidParam is returned when caller input is nonsensical.
	ErrInvalidParam = status.ErrInvalidParam
)
