/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
)

// IndexName returns the name of the local secondary index of a table.
func IndexName(table string) string {
	return table + "-lsi"
}

// IndexedStore is a Store whose table carries the local secondary index on lsi.
type IndexedStore[T datastore.Entity] struct {
	*Store[T]
}

// NewIndexedStore constructs an IndexedStore. It fails with ErrNoIndex unless
// desc declares an index.
func NewIndexedStore[T datastore.Entity](client Client, desc datastore.Descriptor, opts ...Option) (*IndexedStore[T], error) {
	if !desc.HasIndex {
		return nil, storeerrors.NewNoIndexError(desc.TableName)
	}
	s, err := NewStore[T](client, desc, opts...)
	if err != nil {
		return nil, err
	}
	return &IndexedStore[T]{Store: s}, nil
}

// GetByIndex returns the items of partition pk whose index key equals indexKey,
// ordered by index key and then sort key.
func (s *IndexedStore[T]) GetByIndex(ctx context.Context, pk, indexKey string) ([]T, error) {
	if pk == "" {
		return nil, storeerrors.NewValidationError("pk", "must not be empty")
	}
	if indexKey == "" {
		return nil, storeerrors.NewValidationError("indexKey", "must not be empty")
	}
	cond := partitionCondition(pk).And(expression.Key(keys.IndexKeyAttr).Equal(expression.Value(indexKey)))
	return s.queryAll(ctx, "query_index", cond, aws.String(IndexName(s.desc.TableName)))
}
