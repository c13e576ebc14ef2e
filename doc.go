/*
Package tablestore is a typed data-access layer for DynamoDB single-table designs.

Every entity type is stored in its own table keyed by pk (partition) and sk (sort).
A type declares how its keys are derived through a datastore.Descriptor:

  - a composite sort key "{owner}#{id}", so one owner's items can be fetched by prefix;
  - a plain sort key "{id}", optionally with a local secondary index on the owner (lsi).

Types register their descriptor once, typically from an init function:

	func init() {
		registry.Register[BlogPost](datastore.Descriptor{
			TableName: "BlogPosts",
			Shape:     keys.CompositeSortKey,
		})
	}

A DB hands out typed stores for registered types:

	cfg, err := config.Load("tablestore.yaml")
	db, err := tablestore.Open(ctx, cfg)
	if err := db.EnsureTables(ctx); err != nil {
		return err
	}

	posts, err := tablestore.For[BlogPost](db)
	outcome, err := posts.Create(ctx, post)

	comments, err := tablestore.IndexedFor[Comment](db)
	mine, err := comments.GetByIndex(ctx, postID, userID)

	ratings, err := tablestore.AggregatesFor[BlogPost](db)
	res, err := ratings.Contribute(ctx, tenantID, keys.CompositeSortKeyOf(userID, postID), 5)

Conditioned writes report an Outcome rather than an error. Check converts an outcome
into a semantic error from the errors package when a caller prefers that style.

For tests, datastore/mock provides an in-memory client that understands the
expressions the stores build.
*/
package tablestore
