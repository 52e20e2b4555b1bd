package docstore

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/metrics"
)

// RetryPolicy bounds how long a single logical store call may take.
type RetryPolicy struct {
	Attempts       int           // total attempts, 1 = no retry
	Backoff        time.Duration // wait before the second attempt, doubled after each failure
	AttemptTimeout time.Duration // deadline applied to each attempt
}

// DefaultRetryPolicy is three attempts with 100ms, 200ms backoff and a 5s
// per-attempt timeout.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:       3,
	Backoff:        100 * time.Millisecond,
	AttemptTimeout: 5 * time.Second,
}

// Retrying decorates a Store with bounded retries, per-attempt timeouts and
// metrics. ErrNotFound and ErrDuplicate are never retried and come back
// unchanged; exhausted calls return an *errs.Error of kind Timeout or
// Upstream.
type Retrying struct {
	inner  Store
	policy RetryPolicy
}

// WithRetry wraps inner with policy. Zero fields fall back to
// DefaultRetryPolicy.
func WithRetry(inner Store, policy RetryPolicy) *Retrying {
	if policy.Attempts <= 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = DefaultRetryPolicy.AttemptTimeout
	}
	return &Retrying{inner: inner, policy: policy}
}

// Unwrap returns the decorated store.
func (r *Retrying) Unwrap() Store { return r.inner }

// Insert assigns the id before the first attempt so every retry writes the
// same document. A duplicate-id error after a failed attempt means an
// earlier attempt landed, and counts as success.
func (r *Retrying) Insert(ctx context.Context, coll string, doc any) (string, error) {
	d, id, err := prepare(doc)
	if err != nil {
		return "", err
	}

	attempted := false
	err = r.run(ctx, "insert", coll, func(ctx context.Context) error {
		_, err := r.inner.Insert(ctx, coll, d)
		if errors.Is(err, ErrDuplicate) && attempted {
			return nil
		}
		attempted = true
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Retrying) FindByID(ctx context.Context, coll, id string, dest any) error {
	return r.run(ctx, "find_by_id", coll, func(ctx context.Context) error {
		return r.inner.FindByID(ctx, coll, id, dest)
	})
}

func (r *Retrying) Find(ctx context.Context, coll string, filter Filter, dest any) error {
	return r.run(ctx, "find", coll, func(ctx context.Context) error {
		return r.inner.Find(ctx, coll, filter, dest)
	})
}

func (r *Retrying) Update(ctx context.Context, coll, id string, fields Fields) error {
	return r.run(ctx, "update", coll, func(ctx context.Context) error {
		return r.inner.Update(ctx, coll, id, fields)
	})
}

// Delete reports ErrNotFound only when the first attempt found nothing. A
// not-found after a failed attempt means that attempt landed, and counts as
// success.
func (r *Retrying) Delete(ctx context.Context, coll, id string) error {
	attempted := false
	return r.run(ctx, "delete", coll, func(ctx context.Context) error {
		err := r.inner.Delete(ctx, coll, id)
		if errors.Is(err, ErrNotFound) && attempted {
			return nil
		}
		attempted = true
		return err
	})
}

func (r *Retrying) Ping(ctx context.Context) error {
	return r.run(ctx, "ping", "", r.inner.Ping)
}

func (r *Retrying) Close(ctx context.Context) error { return r.inner.Close(ctx) }

func (r *Retrying) run(ctx context.Context, op, coll string, fn func(context.Context) error) error {
	start := time.Now()
	var err error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
		err = fn(actx)
		cancel()

		if err == nil || !retryable(ctx, err) || attempt == r.policy.Attempts {
			break
		}

		backoff := time.Duration(float64(r.policy.Backoff) * math.Pow(2, float64(attempt-1)))
		metrics.StoreRetries.WithLabelValues(op, coll).Inc()
		logger.WithCtx(ctx).Warn("docstore: call failed, retrying",
			"op", op, "collection", coll, "attempt", attempt, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
			attempt = r.policy.Attempts
		}
	}

	metrics.ObserveStoreOp(op, coll, outcome(err), start)
	return classify(op, err)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicate)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

func classify(op string, err error) error {
	switch {
	case err == nil, errors.Is(err, ErrNotFound), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Timeout("docstore."+op, "document store timed out", err)
	default:
		return errs.Upstream("docstore."+op, "document store unavailable", err)
	}
}
