package tmdb

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for subjects the upstream does not know.
var ErrNotFound = errors.New("subject not found")

// ErrorClass classifies upstream failures for metrics and logging.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 throttling responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport-level failures.
	ErrorClassNetwork ErrorClass = "network"
)

// StatusError is an upstream HTTP failure with enough context to drive the
// retry predicate and metrics labels.
type StatusError struct {
	StatusCode int
	Message    string

	// RetryAfter is the upstream's suggested retry interval for 429
	// responses. Zero means the upstream suggested none, which for a
	// throttled request signals a fully spent quota.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb %s error (status %d): %s", e.Class(), e.StatusCode, e.Message)
}

// Class returns the error classification.
func (e *StatusError) Class() ErrorClass {
	switch {
	case e.StatusCode == 429:
		return ErrorClassRateLimit
	case e.StatusCode >= 500:
		return ErrorClassServer
	case e.StatusCode >= 400:
		return ErrorClassClient
	default:
		return ErrorClassNetwork
	}
}

// RateLimited reports whether the response was a throttling signal.
// Together with QuotaExhausted this satisfies the retry package's
// rate-limit predicate.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == 429
}

// QuotaExhausted reports a throttled request with no suggested retry
// interval. Backing off on such errors is futile, so they escalate
// immediately.
func (e *StatusError) QuotaExhausted() bool {
	return e.StatusCode == 429 && e.RetryAfter <= 0
}
