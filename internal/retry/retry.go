// Package retry provides the one bounded-retry-with-probe primitive shared
// by readiness waits and termination waits: run a probe at a fixed interval,
// give up after a capped number of attempts. Callers treat it as synchronous
// with an explicit cap, never unbounded.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Probe reports success (nil) or the reason to keep waiting.
type Probe func() error

// Permanent wraps an error so the retry loop stops immediately instead of
// exhausting its attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Until runs probe up to maxAttempts times, interval apart, returning nil on
// the first success. On exhaustion the last probe error is returned, wrapped
// with the attempt count. Context cancellation stops the wait early.
func Until(ctx context.Context, interval time.Duration, maxAttempts int, probe Probe) error {
	return UntilWithProgress(ctx, interval, maxAttempts, probe, nil)
}

// UntilWithProgress is Until with a callback after each failed attempt, used
// to log readiness progress during long waits.
func UntilWithProgress(ctx context.Context, interval time.Duration, maxAttempts int, probe Probe, onAttempt func(attempt int, err error)) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	operation := func() error {
		attempt++
		return probe()
	}
	notify := func(err error, _ time.Duration) {
		if onAttempt != nil {
			onAttempt(attempt, err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait cancelled after %d attempts: %w", attempt, err)
		}
		return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
	}
	return nil
}
