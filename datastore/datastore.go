/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/storagemodels"
)

// Entity is implemented by every stored type. Keys are derived from Identity
// and are never held as fields of the entity.
type Entity interface {
	Identity() keys.Identity
}

// Descriptor is the capability descriptor of one entity type.
type Descriptor struct {
	TableName string
	Shape     keys.Shape
	HasIndex  bool
}

// Codec returns the key codec for entities of this descriptor.
func (d Descriptor) Codec() keys.Codec {
	return keys.Codec{Shape: d.Shape, Indexed: d.HasIndex}
}

// Validate checks the descriptor is usable. Composite sort keys cannot carry an index.
func (d Descriptor) Validate() error {
	if d.TableName == "" {
		return storeerrors.NewValidationError("tableName", "must not be empty")
	}
	if d.Shape != keys.CompositeSortKey && d.Shape != keys.PlainSortKey {
		return storeerrors.NewValidationError("shape", "unknown key shape")
	}
	if d.HasIndex && d.Shape != keys.PlainSortKey {
		return storeerrors.NewValidationError("hasIndex", "only plain sort key types can declare an index")
	}
	return nil
}

// Outcome is the result of a conditioned write.
type Outcome int

const (
	// Applied means the write was accepted.
	Applied Outcome = iota + 1
	// PreconditionFailed means the store rejected the write's condition:
	// create on an existing key, update on a missing key, or an aggregate conflict.
	PreconditionFailed
	// NotFound means the target item or field group does not exist.
	NotFound
)

// OK reports whether the write was applied.
func (o Outcome) OK() bool {
	return o == Applied
}

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case PreconditionFailed:
		return "precondition_failed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Repository is the generic repository contract for one entity type.
type Repository[T Entity] interface {
	Create(ctx context.Context, entity T) (Outcome, error)

	GetByKey(ctx context.Context, pk, sk string) (*T, error)

	GetByPartition(ctx context.Context, pk string) ([]T, error)

	GetPaged(ctx context.Context, query storagemodels.PageQuery) (*storagemodels.PageResult[T], error)

	GetByKeyPrefix(ctx context.Context, pk, prefix string) ([]T, error)

	ScanAll(ctx context.Context) ([]T, error)

	ScanAllKeys(ctx context.Context) ([]storagemodels.KeyPair, error)

	Update(ctx context.Context, entity T) (Outcome, error)

	Delete(ctx context.Context, pk, sk string) (Outcome, error)

	Count(ctx context.Context, pk string) (int, error)
}

// IndexedRepository is only implemented for types whose descriptor declares an index.
type IndexedRepository[T Entity] interface {
	Repository[T]

	GetByIndex(ctx context.Context, pk, indexKey string) ([]T, error)
}

// AggregateResult is the outcome of one aggregate contribution. Aggregate is set when applied.
type AggregateResult struct {
	Outcome   Outcome
	Aggregate *storagemodels.Aggregate
}

// AggregateRepository maintains a {sum, count, average} field group on stored items.
type AggregateRepository interface {
	Get(ctx context.Context, pk, sk string) (*storagemodels.Aggregate, error)

	Contribute(ctx context.Context, pk, sk string, contribution int64) (AggregateResult, error)
}
