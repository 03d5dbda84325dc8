package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"overdub/internal/logging"
	"overdub/internal/services"
)

// RetryPolicy bounds repeated attempts against an external engine.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

// PolicyFromLimits converts configuration values into a policy, applying
// the defaults used when a limit is zero or missing.
func PolicyFromLimits(maxAttempts, attemptTimeoutSec int) RetryPolicy {
	policy := RetryPolicy{
		MaxAttempts:    maxAttempts,
		AttemptTimeout: time.Duration(attemptTimeoutSec) * time.Second,
		Backoff:        time.Second,
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 2 * time.Minute
	}
	return policy
}

// Retry runs fn up to the policy's attempt budget. Each attempt gets its
// own deadline; an attempt that hits the deadline counts as transient.
// Non-retryable errors stop the loop immediately. The last error is
// returned when the budget runs out.
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, operation string, fn func(context.Context) error) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	backoff := policy.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTimeout, "engine", operation,
				"Attempt exceeded its time budget", err)
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if !services.IsRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		logger.Warn("engine attempt failed; retrying",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Duration("backoff", backoff),
			logging.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}
