package listing

import (
	"errors"
	"fmt"
)

// Sentinel errors for listing API operations.
var (
	// ErrAuth means the API key is missing or rejected. Fatal: callers
	// must not retry, this is a configuration problem.
	ErrAuth = errors.New("listing: invalid or missing API key")
	// ErrRateLimited maps HTTP 429. The caller decides whether to back off.
	ErrRateLimited = errors.New("listing: rate limited by provider")
	// ErrNotFound maps HTTP 404 on address lookups.
	ErrNotFound = errors.New("listing: not found")
	// ErrTransport covers timeouts and connection failures. Retryable.
	ErrTransport = errors.New("listing: transport failure")
	// ErrUpstream covers any other non-2xx response. Logged with request
	// context, not retried automatically.
	ErrUpstream = errors.New("listing: upstream error")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string // Operation: "searchCoordinates", "searchRegion", "searchAddress"
	Target string // Region name or address, if applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("listing %s [%s]: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("listing %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, target string, err error) error {
	return &Error{
		Op:     op,
		Target: target,
		Err:    err,
	}
}
