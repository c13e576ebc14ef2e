/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/datastore/mock"
	"github.com/suparena/tablestore/models"
	"github.com/suparena/tablestore/storagemodels"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := ddb.NewMetrics("tablestore", reg)
	client := newClient(t)

	users := newUserStore(t, client, ddb.WithMetrics(m))
	_, err := users.Create(ctx, user("t1", "u1", "Ada"))
	require.NoError(t, err)
	_, err = users.Create(ctx, user("t1", "u1", "Ada"))
	require.NoError(t, err)
	_, err = users.GetByKey(ctx, "t1", "u1")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "Users", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "Users", "precondition_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("get", "Users", "ok")))

	seedPost(t, client, storagemodels.NewAggregate(1, 1))
	agg, err := ddb.NewAggregateUpdater(client, models.BlogPostDescriptor, ddb.WithMetrics(m))
	require.NoError(t, err)
	client.Before(mock.OpUpdateItem, func() {
		client.Before(mock.OpUpdateItem, nil)
		_, err := agg.Contribute(ctx, "t1", postSK, 1)
		require.NoError(t, err)
	})
	_, err = agg.Contribute(ctx, "t1", postSK, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts.WithLabelValues("BlogPosts")))

	n, err := testutil.GatherAndCount(reg, "tablestore_store_operations_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestMetricsNilSafe(t *testing.T) {
	users := newUserStore(t, newClient(t))
	_, err := users.Create(context.Background(), user("t1", "u1", "Ada"))
	assert.NoError(t, err)
}
