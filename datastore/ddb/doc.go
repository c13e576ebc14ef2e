/*
Package ddb implements the datastore contracts on Amazon DynamoDB.

Every table uses the fixed key schema pk (HASH), sk (RANGE) and, for indexed
descriptors, one local secondary index on lsi named IndexName(table).

Stores:

	users, err := ddb.NewStore[models.User](client, models.UserDescriptor,
	    ddb.WithLogger(logger),
	    ddb.WithPageLimits(storagemodels.PageLimits{Default: 20, Max: 50}),
	)

	comments, err := ddb.NewIndexedStore[models.Comment](client, models.CommentDescriptor)
	byUser, err := comments.GetByIndex(ctx, postID, userID)

Create and Update are conditional puts; they report PreconditionFailed when the key
already exists (Create) or does not exist (Update). Delete is unconditional.

GetPaged uses a one item look-ahead, so the continuation token is empty exactly when
the partition has no further items:

	page, err := users.GetPaged(ctx, storagemodels.PageQuery{PartitionKey: tenant, PageSize: 10})
	for page.HasMore() {
	    page, err = users.GetPaged(ctx, storagemodels.PageQuery{
	        PartitionKey:      tenant,
	        PageSize:          10,
	        ContinuationToken: page.ContinuationToken,
	    })
	}

Aggregates:

AggregateUpdater keeps a {Sum, Count, Avg} map attribute (Rating by default). A
contribution reads the aggregate by projection and writes the new value conditioned
on the Count it read. RetryingUpdater retries conflicts with exponential backoff.

Streaming:

	results := posts.Stream(ctx, tenant,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        logger.Info("progress", zap.Int64("items", p.ItemsProcessed))
	    }),
	)

Schema:

SchemaManager.EnsureTableExists creates a missing table, tolerates a concurrent
creator and waits until the table is active.
*/
package ddb
