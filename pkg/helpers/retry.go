package helpers

import (
	"context"

	"github.com/pkg/errors"
)

// ErrRetryBudgetExhausted wraps the last attempt's error once the retry
// budget runs out.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// Retry runs op up to attempts times. An error classified as retryable by
// the predicate triggers the next attempt; any other error aborts
// immediately and is returned as-is. When the budget runs out, the last
// error is wrapped with ErrRetryBudgetExhausted.
//
// Attempts are strictly sequential, there is no backoff between them.
func Retry(ctx context.Context, attempts int, op func(context.Context) error, retryable func(error) bool) error {
	if attempts <= 0 {
		return errors.Errorf("retry attempts must be positive, got %d", attempts)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return errors.Wrapf(ErrRetryBudgetExhausted, "after %d attempts: %s", attempts, lastErr)
}
