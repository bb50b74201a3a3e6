package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HammerMeetNail/pairgraph/internal/logging"
	"github.com/HammerMeetNail/pairgraph/internal/metrics"
)

const (
	DefaultMutationAttempts = 3
	DefaultMutationBackoff  = 25 * time.Millisecond
)

// retryPolicy reruns a transaction that lost a race on its pair. Only
// ErrTxConflict is retried; every other error is returned on first sight.
type retryPolicy struct {
	attempts int
	backoff  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: DefaultMutationAttempts, backoff: DefaultMutationBackoff}
}

func newRetryPolicy(attempts int, backoff time.Duration) retryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return retryPolicy{attempts: attempts, backoff: backoff}
}

func (p retryPolicy) run(ctx context.Context, store RelationshipStore, operation string, fn func(tx RelationshipTx) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := store.WithinTx(ctx, fn)
		if !errors.Is(err, ErrTxConflict) {
			return err
		}
		if attempt >= attempts {
			logging.Warn("Relationship mutation gave up after conflicts", map[string]interface{}{
				"operation": operation,
				"attempts":  attempt,
			})
			return fmt.Errorf("%s: %w", operation, ErrRetriesExhausted)
		}
		metrics.ObserveRetry(operation)
		if err := sleepContext(ctx, time.Duration(attempt)*p.backoff); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
