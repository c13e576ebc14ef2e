/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/storagemodels"
)

// RetryPolicy bounds the retries of a conflicting aggregate contribution.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns 5 attempts starting at 10ms, capped at 200ms between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

var errConflict = errors.New("aggregate conflict")

// RetryingUpdater retries contributions rejected by a concurrent writer. Each attempt
// re-reads the aggregate. NotFound and errors are returned without retrying.
type RetryingUpdater struct {
	inner  datastore.AggregateRepository
	policy RetryPolicy
	logger *zap.Logger
}

var _ datastore.AggregateRepository = (*RetryingUpdater)(nil)

// NewRetryingUpdater wraps inner with policy. Zero policy fields take their defaults.
func NewRetryingUpdater(inner datastore.AggregateRepository, policy RetryPolicy, opts ...Option) *RetryingUpdater {
	return &RetryingUpdater{
		inner:  inner,
		policy: policy.normalized(),
		logger: newSettings(opts).logger,
	}
}

// Get delegates to the wrapped updater.
func (r *RetryingUpdater) Get(ctx context.Context, pk, sk string) (*storagemodels.Aggregate, error) {
	return r.inner.Get(ctx, pk, sk)
}

// Contribute applies contribution, retrying on conflict. When every attempt
// conflicts, the last PreconditionFailed result is returned with a nil error.
func (r *RetryingUpdater) Contribute(ctx context.Context, pk, sk string, contribution int64) (datastore.AggregateResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval

	attempts := 0
	result, err := backoff.Retry(ctx, func() (datastore.AggregateResult, error) {
		attempts++
		res, err := r.inner.Contribute(ctx, pk, sk, contribution)
		if err != nil {
			return res, backoff.Permanent(err)
		}
		if res.Outcome == datastore.PreconditionFailed {
			return res, errConflict
		}
		return res, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.policy.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Debug("retrying aggregate contribution",
				zap.String("pk", pk), zap.String("sk", sk),
				zap.Int("attempt", attempts), zap.Duration("backoff", next))
		}),
	)

	if errors.Is(err, errConflict) {
		r.logger.Warn("aggregate contribution gave up after conflicts",
			zap.String("pk", pk), zap.String("sk", sk), zap.Int("attempts", attempts))
		return datastore.AggregateResult{Outcome: datastore.PreconditionFailed}, nil
	}
	if err != nil {
		return datastore.AggregateResult{}, err
	}
	return result, nil
}
