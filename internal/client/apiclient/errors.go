package apiclient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// User-facing messages produced by the executor.
const (
	MsgSessionExpired = "Session expired. Please login again."
	MsgFallback       = "Something went wrong"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	// Errors holds field-level validation messages, verbatim from the server.
	Errors map[string][]string

	expired bool
}

func (e *APIError) Error() string {
	return e.Message
}

// SessionExpired reports whether this error forced a logout.
func (e *APIError) SessionExpired() bool {
	return e.expired
}

// FieldMessages flattens Errors into sorted "field: message" lines.
func (e *APIError) FieldMessages() []string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range e.Errors[f] {
			out = append(out, f+": "+msg)
		}
	}
	return out
}

// Transport stages at which a call can fail without an API answer.
const (
	OpSend   = "send"
	OpRead   = "read"
	OpDecode = "decode"
)

// TransportError is a failure to complete or parse a round-trip.
type TransportError struct {
	Op     string
	Method string
	URL    string
	// Status is set for decode failures.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "apiclient: %s %s %s", e.Op, e.Method, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsSessionExpired reports whether err is an *APIError that forced a logout.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.expired
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
