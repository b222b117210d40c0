package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"energy-tariffs/internal/domain"
)

// RetryPolicy bounds how often unprocessed batch items are resubmitted.
type RetryPolicy struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// BatchResult summarises a BatchWriter run.
type BatchResult struct {
	Written     int
	Attempts    int
	Unprocessed []*domain.IndexingValue
}

// BatchWriter writes batches through a ValueStore and resubmits only the
// items the store reported as unprocessed.
type BatchWriter struct {
	store   ValueStore
	policy  RetryPolicy
	onRetry func(pending int, wait time.Duration)
}

// NewBatchWriter creates a BatchWriter.
func NewBatchWriter(store ValueStore, policy RetryPolicy) *BatchWriter {
	return &BatchWriter{store: store, policy: policy}
}

// OnRetry registers a hook invoked before every resubmission.
func (w *BatchWriter) OnRetry(fn func(pending int, wait time.Duration)) {
	w.onRetry = fn
}

// errPending marks an attempt that left items unwritten.
var errPending = errors.New("items pending")

// Write upserts values. Returns ErrUnprocessedItems if items remain after the
// retry policy is exhausted; the result lists them.
func (w *BatchWriter) Write(ctx context.Context, values []*domain.IndexingValue) (BatchResult, error) {
	res := BatchResult{}
	if len(values) == 0 {
		return res, nil
	}

	pending := values
	op := func() error {
		res.Attempts++
		unprocessed, err := w.store.PutBatch(ctx, pending)
		if err != nil && errors.Is(err, ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		if err != nil && len(unprocessed) == 0 {
			// Batch-level failure without an item list: everything is still pending.
			return err
		}
		res.Written += len(pending) - len(unprocessed)
		pending = unprocessed
		if len(pending) > 0 {
			return fmt.Errorf("%d of batch: %w", len(pending), errPending)
		}
		return nil
	}

	notify := func(_ error, wait time.Duration) {
		if w.onRetry != nil {
			w.onRetry(len(pending), wait)
		}
	}

	err := backoff.RetryNotify(op, w.policy.backOff(ctx), notify)
	res.Unprocessed = pending
	if err == nil {
		res.Unprocessed = nil
		return res, nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return res, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%d items unwritten: %w: %w", len(pending), ErrUnprocessedItems, ctxErr)
	}
	return res, fmt.Errorf("%d items unwritten after %d attempts: %w", len(pending), res.Attempts, ErrUnprocessedItems)
}
