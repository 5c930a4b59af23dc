package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to tool callers.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindAuthentication
	KindNotFound
	KindValidation
	KindRateLimited
	KindUpstream
	KindProvisioningTimedOut
	KindProvisioningFailed
)

var kindNames = map[ErrorKind]string{
	KindConfiguration:        "ConfigurationError",
	KindAuthentication:       "AuthenticationError",
	KindNotFound:             "NotFoundError",
	KindValidation:           "ValidationError",
	KindRateLimited:          "RateLimitedError",
	KindUpstream:             "UpstreamError",
	KindProvisioningTimedOut: "ProvisioningTimedOut",
	KindProvisioningFailed:   "ProvisioningFailed",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrAuthentication       = &Error{Kind: KindAuthentication}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrUpstream             = &Error{Kind: KindUpstream}
	ErrProvisioningTimedOut = &Error{Kind: KindProvisioningTimedOut}
	ErrProvisioningFailed   = &Error{Kind: KindProvisioningFailed}
)

// Error is a classified failure. Op names the logical operation
// ("get droplet"), StatusCode and RequestID are set for API responses.
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	RequestID  string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if msg != "" {
		s += ": " + msg
	}
	if e.RequestID != "" {
		s += " [request " + e.RequestID + "]"
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ConfigurationError builds a KindConfiguration error.
func ConfigurationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ValidationError builds a KindValidation error.
func ValidationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindForStatus maps an HTTP status code onto an error kind.
func KindForStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuthentication
	case code == 404:
		return KindNotFound
	case code == 400 || code == 422:
		return KindValidation
	case code == 429:
		return KindRateLimited
	default:
		return KindUpstream
	}
}
