package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks a transient failure: network error, timeout, or a
	// 5xx from the remote store. The record stays pending and is retried on a
	// later sync pass.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrRejected marks a non-retryable rejection such as a permission denial
	// or an unprocessable document. The record transitions to failed and
	// requires manual intervention.
	ErrRejected = errors.New("remote store rejected record")
)

// IsUnavailable reports whether err represents a transient remote failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsRejected reports whether err represents a non-retryable rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// statusError maps an unexpected HTTP status to the error taxonomy
func statusError(op string, status int) error {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: status %d: %w", op, status, ErrRejected)
	default:
		return fmt.Errorf("%s: status %d: %w", op, status, ErrUnavailable)
	}
}
