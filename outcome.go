/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
)

// Check converts the outcome of a conditioned write into an error for callers that
// treat every outcome other than Applied as a failure. err is returned unchanged.
func Check(op, key string, out datastore.Outcome, err error) error {
	if err != nil {
		return err
	}
	switch out {
	case datastore.Applied:
		return nil
	case datastore.NotFound:
		return storeerrors.NewNotFoundError(op, key)
	default:
		return storeerrors.NewConditionFailedError(op, key)
	}
}
