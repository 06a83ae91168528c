package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrying retries failed reads of the wrapped Store with exponential
// backoff. ErrNotFound, ErrDecrypt and context errors are not retried.
type Retrying struct {
	Store
	maxRetries uint64
	maxElapsed time.Duration
}

func NewRetrying(inner Store, maxRetries uint64, maxElapsed time.Duration) *Retrying {
	return &Retrying{Store: inner, maxRetries: maxRetries, maxElapsed: maxElapsed}
}

func (r *Retrying) Get(ctx context.Context, key string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = r.maxElapsed

	var value []byte
	op := func() error {
		v, err := r.Store.Get(ctx, key)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		value = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "Storage read failed, retrying", "key", key, "error", err, "wait", wait)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return value, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDecrypt) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
