/*
Package errors provides semantic error types for tablestore.

Expected precondition failures (create on an existing key, update on a missing
key, aggregate conflicts) are not errors; they are reported through
datastore.Outcome. The types here cover everything else that callers may want
to branch on:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrNoIndex         = errors.New("entity type has no local secondary index")
	    ErrNotRegistered   = errors.New("no descriptor registered for type")
	)

Usage:

	page, err := store.GetPaged(ctx, query)
	if errors.IsValidationError(err) {
	    // the continuation token was tampered with or belongs to another partition
	}

	if _, err := ddb.NewIndexedStore[models.BlogPost](client, desc); errors.IsNoIndex(err) {
	    // composite sort key types cannot be queried by index
	}

Every typed error implements Is, so wrapped errors still match with errors.Is.
*/
package errors
