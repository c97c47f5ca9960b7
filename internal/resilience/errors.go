// Package resilience provides retry with exponential backoff and the error
// taxonomy the orchestration engine uses to decide what a failure costs:
// a retry, a skipped URL or query, or the whole job.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps a failure that is safe to retry (timeouts, 429, 5xx,
// malformed model output).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// ItemError marks a failure fatal for a single URL or query (malformed URL,
// empty query, 404). It is skipped without retry; the job moves on to the
// next candidate.
type ItemError struct {
	Err error
}

func (e *ItemError) Error() string { return e.Err.Error() }
func (e *ItemError) Unwrap() error { return e.Err }

// NewItemError wraps an error as fatal-for-item.
func NewItemError(err error) *ItemError {
	return &ItemError{Err: err}
}

// FatalError marks a failure fatal for the whole job (authentication
// failure, contract violation). It propagates immediately and carries a
// human-readable reason.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewFatalError wraps an error as fatal-for-job with a reason.
func NewFatalError(reason string, err error) *FatalError {
	return &FatalError{Reason: reason, Err: err}
}

// IsItemFatal returns true if the error chain contains an ItemError.
func IsItemFatal(err error) bool {
	var ie *ItemError
	return errors.As(err, &ie)
}

// IsJobFatal returns true if the error chain contains a FatalError.
func IsJobFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common network-level transient patterns.
// Item-fatal and job-fatal errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsItemFatal(err) || IsJobFatal(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
