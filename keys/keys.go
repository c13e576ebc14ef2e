/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package keys

import (
	"strings"

	storeerrors "github.com/suparena/tablestore/errors"
)

// Attribute names of the fixed physical key schema shared by every table.
const (
	PartitionKeyAttr = "pk"
	SortKeyAttr      = "sk"
	IndexKeyAttr     = "lsi"
)

// Delimiter joins the owner id and the entity id in a composite sort key.
const Delimiter = "#"

// Shape selects how the sort key and index key are derived for an entity type.
type Shape int

const (
	// CompositeSortKey stores sk as "{owner}#{id}". Owner-scoped lookups use a
	// begins_with range query; there is no index key.
	CompositeSortKey Shape = iota
	// PlainSortKey stores sk as "{id}" and, when indexed, lsi as "{owner}".
	PlainSortKey
)

func (s Shape) String() string {
	switch s {
	case CompositeSortKey:
		return "composite"
	case PlainSortKey:
		return "plain"
	default:
		return "unknown"
	}
}

// Identity holds the logical identifying fields of an entity.
type Identity struct {
	// Partition groups related records, e.g. a tenant id.
	Partition string
	// Owner is the secondary owner id, e.g. the authoring user. Optional for PlainSortKey.
	Owner string
	// ID is the entity's own id.
	ID string
}

// Keys is the derived physical key of an entity. LSI is empty when the entity is not indexed.
type Keys struct {
	PK  string
	SK  string
	LSI string
}

// Codec derives physical keys for one entity type.
type Codec struct {
	Shape   Shape
	Indexed bool
}

// Derive computes pk, sk and lsi from id. It never reads anything but id.
func (c Codec) Derive(id Identity) (Keys, error) {
	if id.Partition == "" {
		return Keys{}, storeerrors.NewValidationError("partition", "must not be empty")
	}
	if id.ID == "" {
		return Keys{}, storeerrors.NewValidationError("id", "must not be empty")
	}

	switch c.Shape {
	case CompositeSortKey:
		if id.Owner == "" {
			return Keys{}, storeerrors.NewValidationError("owner", "required for composite sort keys")
		}
		if strings.Contains(id.Owner, Delimiter) {
			return Keys{}, storeerrors.NewValidationError("owner", "must not contain "+Delimiter)
		}
		if strings.Contains(id.ID, Delimiter) {
			return Keys{}, storeerrors.NewValidationError("id", "must not contain "+Delimiter)
		}
		return Keys{PK: id.Partition, SK: CompositeSortKeyOf(id.Owner, id.ID)}, nil
	case PlainSortKey:
		k := Keys{PK: id.Partition, SK: id.ID}
		if c.Indexed {
			k.LSI = id.Owner
		}
		return k, nil
	default:
		return Keys{}, storeerrors.NewValidationError("shape", "unknown key shape")
	}
}

// CompositeSortKeyOf joins owner and id with the delimiter.
func CompositeSortKeyOf(owner, id string) string {
	return owner + Delimiter + id
}

// OwnerPrefix returns the sort key prefix matching every composite key of owner.
// The trailing delimiter keeps owner "U1" from matching "U10#...".
func OwnerPrefix(owner string) string {
	return owner + Delimiter
}

// SplitCompositeSortKey is the inverse of CompositeSortKeyOf.
func SplitCompositeSortKey(sk string) (owner, id string, ok bool) {
	owner, id, ok = strings.Cut(sk, Delimiter)
	if !ok || owner == "" || id == "" {
		return "", "", false
	}
	return owner, id, true
}
