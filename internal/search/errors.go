package search

import "fmt"

// ErrorKind classifies search provider failures.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuthFailed  ErrorKind = "auth_failed"
	KindProvider    ErrorKind = "provider_error"
)

// Error is a classified search provider failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("search %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether one bounded retry can help. Rate limiting and
// auth failures cannot succeed on retry.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindProvider
}
