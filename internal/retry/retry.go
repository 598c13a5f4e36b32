// Package retry wraps outbound messaging calls with bounded retries and
// exponential backoff. Errors are classified before every retry: transient
// conditions (rate limits, server errors, broken connections) are retried,
// permanent ones (auth, permissions, deleted resources) fail immediately.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"syscall"
	"time"
)

// Options bound the retry loop.
type Options struct {
	Retries  int           // additional attempts after the first
	MinDelay time.Duration // base backoff before the first retry
	MaxDelay time.Duration // backoff cap
}

// DefaultOptions matches the delivery policy: up to 3 retries, 500ms
// doubling to a 4s cap.
func DefaultOptions() Options {
	return Options{Retries: 3, MinDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

// withDefaults fills in unset delays. Retries is taken as given so a
// zero value means a single attempt, not the default policy.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinDelay == 0 {
		o.MinDelay = d.MinDelay
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = d.MaxDelay
	}
	return o
}

// classifiable lets error types carry their own retry eligibility
// without this package importing them.
type classifiable interface {
	RetryableError() bool
}

// Retryable reports whether err is worth retrying.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var c classifiable
	if errors.As(err, &c) {
		return c.RetryableError()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT,
		syscall.EHOSTUNREACH, syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	return false
}

// Do runs op, retrying transient failures per opts. The backoff before
// retry n is min(MinDelay*2^n, MaxDelay) plus uniform jitter up to 25%.
// Waits are cancellable; the final attempt's error is returned as-is.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == opts.Retries || !Retryable(lastErr) {
			break
		}

		backoff := opts.MinDelay << attempt
		if backoff > opts.MaxDelay {
			backoff = opts.MaxDelay
		}
		jitter := time.Duration(rand.Int63n(int64(backoff)/4 + 1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}
	return lastErr
}
