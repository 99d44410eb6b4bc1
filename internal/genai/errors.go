package genai

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the upstream call succeeded but carried
// no usable candidate text.
var ErrEmptyResponse = errors.New("model returned no output")

// TransportError indicates the upstream service was unreachable or answered
// with a non-success status. Callers may retry the same request.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation transport failure (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SafetyBlockedError indicates the upstream refused the request or response
// under its content policy. Distinct from transport failure; not retried
// automatically.
type SafetyBlockedError struct {
	// Reason is the upstream block reason or finish reason, verbatim.
	Reason string
}

func (e *SafetyBlockedError) Error() string {
	return fmt.Sprintf("generation blocked by content safety policy: %s", e.Reason)
}

// MalformedOutputError indicates a schema-constrained response failed to
// parse, failed schema validation, or could not be decoded into the caller's
// type. It is a hard failure of that call; the raw output is never coerced
// into partial or default data.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("model output does not match requested schema: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }
