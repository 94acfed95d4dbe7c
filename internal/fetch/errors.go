package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindStatus    Kind = "bad_status"
	KindTimeout   Kind = "timeout"
	KindChallenge Kind = "bot_challenge"
)

// FetchError covers every failure mode of the acquisition path: transport
// errors, non-2xx statuses, exceeded deadlines and unresolved bot challenges.
type FetchError struct {
	URL    string
	Status int
	Kind   Kind
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: %s (HTTP %d)", e.URL, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline rather than a refusal;
// callers map these to different HTTP statuses.
func (e *FetchError) Timeout() bool { return e.Kind == KindTimeout }

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
