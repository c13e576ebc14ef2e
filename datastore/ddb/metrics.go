/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suparena/tablestore/datastore"
)

// Metrics holds the Prometheus collectors of the store layer.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Conflicts  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations by outcome",
			},
			[]string{"operation", "table", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		Conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregate_conflicts_total",
				Help:      "Total number of aggregate updates rejected by a concurrent writer",
			},
			[]string{"table"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration, m.Conflicts)
	}
	return m
}

const outcomeError = "error"

// observe records one operation. A nil receiver records nothing.
func (m *Metrics) observe(op, table string, started time.Time, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, table, outcome).Inc()
	m.Duration.WithLabelValues(op, table).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeWrite(op, table string, started time.Time, out datastore.Outcome, err error) {
	if err != nil {
		m.observe(op, table, started, outcomeError)
		return
	}
	m.observe(op, table, started, out.String())
}

func (m *Metrics) conflict(table string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(table).Inc()
}
