/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storeerrors "github.com/suparena/tablestore/errors"
)

func TestCodecDerive(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		id    Identity
		want  Keys
	}{
		{
			name:  "composite",
			codec: Codec{Shape: CompositeSortKey},
			id:    Identity{Partition: "tenant-1", Owner: "U1", ID: "P1"},
			want:  Keys{PK: "tenant-1", SK: "U1#P1"},
		},
		{
			name:  "plain without index drops owner",
			codec: Codec{Shape: PlainSortKey},
			id:    Identity{Partition: "tenant-1", Owner: "U1", ID: "P1"},
			want:  Keys{PK: "tenant-1", SK: "P1"},
		},
		{
			name:  "plain with index",
			codec: Codec{Shape: PlainSortKey, Indexed: true},
			id:    Identity{Partition: "post-1", Owner: "U1", ID: "C1"},
			want:  Keys{PK: "post-1", SK: "C1", LSI: "U1"},
		},
		{
			name:  "plain with index and no owner is not indexed",
			codec: Codec{Shape: PlainSortKey, Indexed: true},
			id:    Identity{Partition: "post-1", ID: "C1"},
			want:  Keys{PK: "post-1", SK: "C1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.codec.Derive(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodecDeriveRejects(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		id    Identity
	}{
		{"empty partition", Codec{Shape: PlainSortKey}, Identity{ID: "1"}},
		{"empty id", Codec{Shape: PlainSortKey}, Identity{Partition: "p"}},
		{"composite without owner", Codec{Shape: CompositeSortKey}, Identity{Partition: "p", ID: "1"}},
		{"owner with delimiter", Codec{Shape: CompositeSortKey}, Identity{Partition: "p", Owner: "a#b", ID: "1"}},
		{"id with delimiter", Codec{Shape: CompositeSortKey}, Identity{Partition: "p", Owner: "a", ID: "1#2"}},
		{"unknown shape", Codec{Shape: Shape(9)}, Identity{Partition: "p", ID: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Derive(tt.id)
			require.Error(t, err)
			assert.True(t, storeerrors.IsValidationError(err))
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	c := Codec{Shape: CompositeSortKey}
	id := Identity{Partition: "t", Owner: "o", ID: "i"}

	first, err := c.Derive(id)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Derive(id)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	sk := CompositeSortKeyOf("U1", "P1")
	assert.Equal(t, "U1#P1", sk)

	owner, id, ok := SplitCompositeSortKey(sk)
	require.True(t, ok)
	assert.Equal(t, "U1", owner)
	assert.Equal(t, "P1", id)

	_, _, ok = SplitCompositeSortKey("plain")
	assert.False(t, ok)
	_, _, ok = SplitCompositeSortKey("#P1")
	assert.False(t, ok)
}

func TestOwnerPrefix(t *testing.T) {
	assert.Equal(t, "U1#", OwnerPrefix("U1"))
	assert.Equal(t, "composite", CompositeSortKey.String())
	assert.Equal(t, "plain", PlainSortKey.String())
}
