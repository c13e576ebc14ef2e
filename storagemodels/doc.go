/*
Package storagemodels defines the value types shared by the tablestore packages.

PageQuery and PageResult:
Cursor based paging over one partition:

	page, err := store.GetPaged(ctx, storagemodels.PageQuery{
	    PartitionKey: tenantID,
	    PageSize:     25,
	})
	for page.HasMore() {
	    page, err = store.GetPaged(ctx, storagemodels.PageQuery{
	        PartitionKey:      tenantID,
	        PageSize:          25,
	        ContinuationToken: page.ContinuationToken,
	    })
	}

Page sizes outside (0, Max] fall back to the default (20 and 50 unless configured).

Aggregate:
A running {Sum, Count, Avg} value. Add recomputes the average from the new sum
and count so it never drifts:

	next := storagemodels.NewAggregate(9, 2).Add(5) // {14, 3, 4.666...}

StreamResult and StreamOptions:
Items emitted by Store.Stream together with paging metadata.
*/
package storagemodels
