/*
Package datastore defines the storage contracts of tablestore.

Every entity type is described by a Descriptor, a small capability value passed
explicitly to the store that serves it:

	var BlogPosts = datastore.Descriptor{
	    TableName: "BlogPosts",
	    Shape:     keys.CompositeSortKey,
	}

Entities only expose their logical identity; the physical pk/sk/lsi attributes are
derived by the descriptor's key codec at write time.

Repository[T] is the generic repository. IndexedRepository[T] adds GetByIndex and is
only constructed for descriptors with HasIndex, so an index query on a type without an
index does not compile against the repository it was given.

Conditioned writes report an Outcome instead of an error:

	out, err := users.Create(ctx, user)
	if err != nil {
	    return err // transport or store failure
	}
	if !out.OK() {
	    // first writer won
	}

Implementations:
  - ddb: DynamoDB implementation
  - mock: in-memory DynamoDB client used by tests
*/
package datastore
