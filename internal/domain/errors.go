package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a fetch failure for the retry state machine
type ErrorKind string

const (
	// ErrorKindTransient covers network errors, timeouts and 5xx responses
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindRateLimited covers 429 responses; retryable with a longer backoff
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindAuth covers 401/403 responses; needs an operator credential fix
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindNotFound covers 404 responses; the profile handle is likely invalid
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindMalformed covers undecodable responses (schema drift)
	ErrorKindMalformed ErrorKind = "malformed_response"
	// ErrorKindSinkWrite covers failures writing to the structured or raw sink
	ErrorKindSinkWrite ErrorKind = "sink_write"
)

// Retryable reports whether the retry manager may reschedule this kind
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTransient, ErrorKindRateLimited, ErrorKindSinkWrite:
		return true
	}
	return false
}

// FetchError is a classified failure from a source adapter or a sink write.
// RetryAfter carries the source's retry-after hint when it provided one.
type FetchError struct {
	Kind       ErrorKind
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with a classification
func NewFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// NewRateLimitedError wraps err as rate-limited with the source's hint
func NewRateLimitedError(err error, retryAfter time.Duration) *FetchError {
	return &FetchError{Kind: ErrorKindRateLimited, RetryAfter: retryAfter, Err: err}
}

// ClassifyError extracts the ErrorKind from an error chain.
// Unclassified errors are treated as transient so a lost classification
// never silently dead-letters an item.
func ClassifyError(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrorKindTransient
}

// RetryAfterHint extracts a retry-after hint from an error chain, or 0
func RetryAfterHint(err error) time.Duration {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}

var (
	// ErrProfileNotFound is returned when a work item references a missing profile
	ErrProfileNotFound = errors.New("profile not found")

	// ErrEntityNotFound is returned when an entity lookup misses
	ErrEntityNotFound = errors.New("entity not found")

	// ErrCycleAlreadyRunning is returned when a second cycle is started while one is in flight
	ErrCycleAlreadyRunning = errors.New("scheduling cycle already running")
)
