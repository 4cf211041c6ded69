package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth: the credential is missing or no longer valid. Never retried.
	ErrAuth = errors.New("authentication required")
	// ErrNetwork: the request did not reach the server or the connection broke.
	ErrNetwork = errors.New("network error")
	// ErrRemote: the server answered with a non-success status.
	ErrRemote = errors.New("remote error")
	// ErrConsistency: a reported success is not reflected by a follow-up read.
	ErrConsistency = errors.New("consistency error")
	// ErrDecode: one stream frame could not be parsed.
	ErrDecode = errors.New("decode error")
	// ErrStream: the answer stream failed while being consumed.
	ErrStream = errors.New("stream error")
)

// RemoteError carries the status and body of a non-success response.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// NewRemoteError builds a RemoteError. 401 and 403 also match ErrAuth.
func NewRemoteError(op string, status int, body string) error {
	remote := &RemoteError{Op: op, Status: status, Body: body}
	if status == 401 || status == 403 {
		return fmt.Errorf("%w: %w", ErrAuth, remote)
	}
	return remote
}

// Title returns the short user-facing label for an error class.
func Title(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "Authentication required"
	case errors.Is(err, ErrConsistency):
		return "Server did not confirm the change"
	case errors.Is(err, ErrStream):
		return "Answer interrupted"
	case errors.Is(err, ErrNetwork):
		return "Network error"
	case errors.Is(err, ErrRemote):
		return "Server error"
	default:
		return "Error"
	}
}
