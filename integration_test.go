//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/models"
	"github.com/suparena/tablestore/storagemodels"
)

// setupIntegrationDB connects to the endpoint in AWS_DDB_ENDPOINT (DynamoDB Local)
// and creates the tables under a per-run prefix.
func setupIntegrationDB(t *testing.T) *tablestore.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	_ = godotenv.Load()
	if os.Getenv("AWS_DDB_ENDPOINT") == "" {
		t.Skip("AWS_DDB_ENDPOINT not set, skipping integration test")
	}
	t.Setenv("TABLESTORE_TABLE_PREFIX", fmt.Sprintf("it%d-", time.Now().UnixNano()))

	cfg, err := config.Load("")
	require.NoError(t, err)
	if cfg.AWS.AccessKey == "" {
		cfg.AWS.AccessKey, cfg.AWS.SecretKey = "local", "local"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := tablestore.Open(ctx, cfg)
	require.NoError(t, err)
	if err := db.EnsureTables(ctx); err != nil {
		t.Skipf("DynamoDB Local not reachable at %s: %v", cfg.AWS.Endpoint, err)
	}
	return db
}

func TestIntegrationEntityLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupIntegrationDB(t)
	users, err := tablestore.For[models.User](db)
	require.NoError(t, err)

	u := models.NewUser("tenant-1", "Ada")
	out, err := users.Create(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, datastore.Applied, out)

	out, err = users.Create(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, datastore.PreconditionFailed, out)

	u.Name = "Ada Lovelace"
	out, err = users.Update(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, datastore.Applied, out)

	got, err := users.GetByKey(ctx, u.TenantID, u.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada Lovelace", got.Name)

	out, err = users.Delete(ctx, u.TenantID, u.ID.String())
	require.NoError(t, err)
	assert.Equal(t, datastore.Applied, out)

	got, err = users.GetByKey(ctx, u.TenantID, u.ID.String())
	require.NoError(t, err)
	assert.Nil(t, got)

	out, err = users.Update(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, datastore.PreconditionFailed, out)
}

func TestIntegrationPaging(t *testing.T) {
	ctx := context.Background()
	db := setupIntegrationDB(t)
	posts, err := tablestore.For[models.BlogPost](db)
	require.NoError(t, err)

	author := models.NewUser("tenant-1", "Ada")
	want := map[string]bool{}
	for i := 0; i < 7; i++ {
		p := models.NewBlogPost("tenant-1", author.ID, fmt.Sprintf("post %d", i), "")
		_, err := posts.Create(ctx, p)
		require.NoError(t, err)
		want[p.ID.String()] = true
	}

	seen := map[string]bool{}
	q := storagemodels.PageQuery{PartitionKey: "tenant-1", PageSize: 3}
	for {
		page, err := posts.GetPaged(ctx, q)
		require.NoError(t, err)
		for _, p := range page.Items {
			assert.False(t, seen[p.ID.String()], "duplicate %s", p.ID)
			seen[p.ID.String()] = true
		}
		if !page.HasMore() {
			break
		}
		q.ContinuationToken = page.ContinuationToken
	}
	assert.Equal(t, want, seen)

	byAuthor, err := posts.GetByKeyPrefix(ctx, "tenant-1", keys.OwnerPrefix(author.ID.String()))
	require.NoError(t, err)
	assert.Len(t, byAuthor, 7)

	n, err := posts.Count(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestIntegrationIndexAndAggregates(t *testing.T) {
	ctx := context.Background()
	db := setupIntegrationDB(t)

	posts, err := tablestore.For[models.BlogPost](db)
	require.NoError(t, err)
	comments, err := tablestore.IndexedFor[models.Comment](db)
	require.NoError(t, err)
	ratings, err := tablestore.AggregatesFor[models.BlogPost](db)
	require.NoError(t, err)

	ada, bob := models.NewUser("tenant-1", "Ada"), models.NewUser("tenant-1", "Bob")
	p := models.NewBlogPost("tenant-1", ada.ID, "post", "")
	_, err = posts.Create(ctx, p)
	require.NoError(t, err)

	for _, author := range []models.User{ada, bob, bob} {
		_, err := comments.Create(ctx, models.NewComment(p.ID, author.ID, "hi"))
		require.NoError(t, err)
	}
	byBob, err := comments.GetByIndex(ctx, p.ID.String(), bob.ID.String())
	require.NoError(t, err)
	assert.Len(t, byBob, 2)

	sk := keys.CompositeSortKeyOf(ada.ID.String(), p.ID.String())
	for _, r := range []int64{3, 4, 5} {
		res, err := ratings.Contribute(ctx, "tenant-1", sk, r)
		require.NoError(t, tablestore.Check("rate", sk, res.Outcome, err))
	}
	got, err := ratings.Get(ctx, "tenant-1", sk)
	require.NoError(t, err)
	assert.Equal(t, storagemodels.NewAggregate(12, 3), *got)
}
