package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeConfig covers startup-time configuration problems: duplicate
	// specs or groups, invalid base URLs, unbound specs, missing settings.
	// A registry that produced one of these must not serve traffic.
	ErrorTypeConfig ErrorType = "config"

	// ErrorTypePath is returned when a path template placeholder has no
	// matching argument. No network call is issued.
	ErrorTypePath ErrorType = "path_substitution"

	// ErrorTypeDecode is returned when a 2xx response body does not match
	// the declared response shape.
	ErrorTypeDecode ErrorType = "deserialization"

	// ErrorTypeFilter is returned when a request or response filter
	// short-circuits the call.
	ErrorTypeFilter ErrorType = "filter_rejected"

	// ErrorTypeRemote is returned for non-2xx responses. Status and Body
	// carry the remote status code and the raw response body.
	ErrorTypeRemote ErrorType = "remote"

	// ErrorTypeTransport is returned for connect, DNS and timeout failures.
	// The Transport field distinguishes the subkind.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeCanceled is reported through a deferred handle whose Cancel
	// was invoked before the call completed.
	ErrorTypeCanceled ErrorType = "canceled"

	ErrorTypeInternal ErrorType = "internal"
)

// TransportCause distinguishes transport failure subkinds.
type TransportCause string

const (
	CauseTimeout    TransportCause = "timeout"
	CauseConnection TransportCause = "connection"
	CauseDNS        TransportCause = "dns"
	CauseUnknown    TransportCause = "unknown"
)

// Error is the structured error returned by the registry and its proxies
type Error struct {
	Type      ErrorType
	Message   string
	Status    int            // remote status code, set for ErrorTypeRemote
	Body      []byte         // raw remote body, set for ErrorTypeRemote
	Transport TransportCause // set for ErrorTypeTransport
	Context   map[string]interface{}
	Cause     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a specific type
func (e *Error) Is(target error) bool {
	if targetErr, ok := target.(*Error); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new Error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return New(errType, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.Type == errType
	}
	return false
}

// GetType returns the error type, or ErrorTypeInternal if not a registry Error
func GetType(err error) ErrorType {
	var rErr *Error
	if errors.As(err, &rErr) {
		return rErr.Type
	}
	return ErrorTypeInternal
}

// StatusOf returns the remote status code carried by a remote error,
// or 0 when the error is not a remote error.
func StatusOf(err error) int {
	var rErr *Error
	if errors.As(err, &rErr) && rErr.Type == ErrorTypeRemote {
		return rErr.Status
	}
	return 0
}

// TransportCauseOf returns the transport failure subkind, or CauseUnknown
// when the error is not a transport error.
func TransportCauseOf(err error) TransportCause {
	var rErr *Error
	if errors.As(err, &rErr) && rErr.Type == ErrorTypeTransport {
		return rErr.Transport
	}
	return CauseUnknown
}

// transportError classifies a failure from the engine into a transport
// error with the appropriate cause subkind.
func transportError(err error) *Error {
	cause := CauseUnknown

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		cause = CauseTimeout
	case errors.As(err, &dnsErr):
		cause = CauseDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		cause = CauseTimeout
	case errorsAsOpError(err):
		cause = CauseConnection
	}

	rErr := Wrap(err, ErrorTypeTransport, "request dispatch failed")
	rErr.Transport = cause
	return rErr
}

func errorsAsOpError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
