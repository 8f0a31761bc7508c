// Package retry runs operations against flaky collaborators with
// exponential backoff bounded by a context and a total elapsed budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxElapsed bounds retries when no budget is given.
const DefaultMaxElapsed = 10 * time.Second

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, ctx is done,
// or maxElapsed passes. A StatusError that is not Retryable stops
// retries. The last error from op is returned.
func Do(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	if maxElapsed <= 0 {
		maxElapsed = DefaultMaxElapsed
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = maxElapsed

	var last error
	err := backoff.Retry(func() error {
		last = op()
		if last == nil {
			return nil
		}
		var serr *StatusError
		if errors.As(last, &serr) && !serr.Retryable() {
			return backoff.Permanent(last)
		}
		return last
	}, backoff.WithContext(b, ctx))

	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	return err
}
