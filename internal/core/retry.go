package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxAttempts bounds conflict retries when no limit is configured.
const DefaultMaxAttempts = 5

// runWithRetry runs op until it succeeds, fails with a non-retryable error,
// or maxAttempts conflicts have been seen. op must re-read everything it
// depends on; nothing is carried between attempts.
func runWithRetry(ctx context.Context, logger *slog.Logger, maxAttempts int, what string, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
		logger.Warn("store conflict, retrying", "op", what, "attempt", attempt, "max_attempts", maxAttempts)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, maxAttempts, err)
}
