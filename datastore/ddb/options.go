/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"time"

	"go.uber.org/zap"

	"github.com/suparena/tablestore/storagemodels"
)

// DefaultAggregateAttribute is the attribute holding an entity's rating aggregate.
const DefaultAggregateAttribute = "Rating"

// DefaultWaitTimeout bounds how long EnsureTableExists waits for a new table to become active.
const DefaultWaitTimeout = 2 * time.Minute

type settings struct {
	logger        *zap.Logger
	metrics       *Metrics
	limits        storagemodels.PageLimits
	descending    bool
	aggregateAttr string
	readCapacity  int64
	writeCapacity int64
	waitTimeout   time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:        zap.NewNop(),
		limits:        storagemodels.DefaultPageLimits(),
		aggregateAttr: DefaultAggregateAttribute,
		waitTimeout:   DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures stores, aggregate updaters and the schema manager.
// Each component ignores options that do not apply to it.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records operation counts and latencies.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithPageLimits overrides the default and maximum page size of GetPaged.
func WithPageLimits(limits storagemodels.PageLimits) Option {
	return func(s *settings) {
		s.limits = limits
	}
}

// WithDescending makes GetPaged return items in descending sort key order.
func WithDescending() Option {
	return func(s *settings) {
		s.descending = true
	}
}

// WithAggregateAttribute names the map attribute holding Sum, Count and Avg.
func WithAggregateAttribute(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.aggregateAttr = name
		}
	}
}

// WithProvisionedCapacity creates tables with provisioned throughput. Zero values
// select on-demand billing.
func WithProvisionedCapacity(read, write int64) Option {
	return func(s *settings) {
		s.readCapacity = read
		s.writeCapacity = write
	}
}

// WithWaitTimeout bounds the wait for a created table to become active.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}
