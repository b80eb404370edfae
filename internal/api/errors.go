package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds, usable with errors.Is against any typed error below.
var (
	ErrNetwork           = errors.New("network error")
	ErrServer            = errors.New("server error")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrMalformedResponse = errors.New("malformed response")
)

// NetworkError reports a transport failure: the request never produced a
// complete HTTP response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerError reports a non-2xx status that has no more specific kind.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: server returned %d", e.Method, e.URL, e.StatusCode)
}

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// ValidationError reports a rejected payload: either the client-side gate
// (StatusCode 0, no request sent) or a 400/422 from the backend.
type ValidationError struct {
	Field      string
	Message    string
	StatusCode int
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a 404 on an item endpoint.
type NotFoundError struct {
	Method string
	URL    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Method, e.URL)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedResponseError reports a 2xx body that is absent or not the
// expected shape.
type MalformedResponseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.URL, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error        { return e.Err }
func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// Kind returns a short category name for err, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrServer):
		return "server"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "other"
	}
}
