// Package startup retries infrastructure connections during boot.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// DefaultMaxAttempts bounds the retry loop when no limit is configured
const DefaultMaxAttempts = 5

// Retry runs fn until it succeeds or maxAttempts is exhausted, waiting a
// fibonacci backoff between attempts. Infrastructure dependencies come up
// in arbitrary order under orchestration, so a failed first connection is
// expected and retried rather than fatal.
func Retry(ctx context.Context, logger ectologger.Logger, name string, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			logger.WithContext(ctx).WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
		} else {
			if attempt > 1 {
				logger.WithContext(ctx).Infof("Startup dependency '%s' recovered on attempt %d", name, attempt)
			}
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		waitTime := time.Duration(a) * time.Second
		logger.WithContext(ctx).Infof("Retrying '%s' in %s (attempt %d/%d)", name, waitTime, attempt, maxAttempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}

		a, b = b, a+b
	}

	return fmt.Errorf("startup dependency '%s' failed after %d attempts: %w", name, maxAttempts, lastErr)
}
