/*
Package registry associates Go entity types with their capability descriptors.

Types register once, typically from an init function:

	func init() {
	    registry.Register[BlogPost](datastore.Descriptor{
	        TableName: "BlogPosts",
	        Shape:     keys.CompositeSortKey,
	    })
	}

A table belongs to exactly one type. Lookup[T] resolves the descriptor of a type,
ByTable the type of a table, and All lists every entry so that tables can be
ensured at startup.

The registry is thread-safe.
*/
package registry
