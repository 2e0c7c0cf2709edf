// Package retry provides exponential-backoff retry for a single operation,
// with predicate-driven retry eligibility.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinefeed_retries_total",
		Help: "Total number of retry attempts",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cinefeed_retry_backoff_seconds",
		Help:    "Backoff duration before retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinefeed_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// ErrExhausted is returned when all retry attempts are exhausted.
var ErrExhausted = errors.New("retry attempts exhausted")

// RateLimitSignal is implemented by upstream errors that represent
// throttling. QuotaExhausted reports a fully spent quota with no suggested
// retry interval, which makes further backoff futile.
type RateLimitSignal interface {
	error
	RateLimited() bool
	QuotaExhausted() bool
}

// Retryable is the default retry predicate: retry only on rate-limit
// signals, and never when the quota is reported as fully exhausted.
// All other errors are considered permanent for the purposes of retry.
func Retryable(err error) bool {
	var signal RateLimitSignal
	if !errors.As(err, &signal) {
		return false
	}
	return signal.RateLimited() && !signal.QuotaExhausted()
}

// Options holds the configuration for retry logic.
type Options struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry. Attempt n waits
	// BaseDelay * 2^n.
	BaseDelay time.Duration

	// Predicate decides whether an error is worth retrying. Defaults to
	// Retryable when nil.
	Predicate func(error) bool
}

// DefaultOptions returns the default retry configuration.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		Predicate:   Retryable,
	}
}

// Do executes op, retrying per opts on eligible failures. Once started, a
// retry sequence runs to completion or exhausts its bounds; there is no
// caller-initiated cancellation between attempts.
func Do[T any](opts Options, op func() (T, error)) (T, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions().MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultOptions().BaseDelay
	}
	predicate := opts.Predicate
	if predicate == nil {
		predicate = Retryable
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		value, err := op()
		if err == nil {
			if attempt > 0 {
				log.Info().
					Int("attempt", attempt+1).
					Msg("Operation succeeded after retry")
			}
			return value, nil
		}

		lastErr = err

		// Ineligible errors propagate immediately without consuming
		// a retry.
		if !predicate(err) {
			return zero, lastErr
		}

		if attempt+1 >= opts.MaxAttempts {
			break
		}

		backoff := opts.BaseDelay * (1 << attempt)
		retriesTotal.Inc()
		retryBackoffSeconds.Observe(backoff.Seconds())

		log.Debug().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying operation after backoff")

		time.Sleep(backoff)
	}

	retryExhaustedTotal.Inc()
	log.Warn().
		Int("max_attempts", opts.MaxAttempts).
		Msg("Retry attempts exhausted")

	return zero, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, opts.MaxAttempts, lastErr)
}
