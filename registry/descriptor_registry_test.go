/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
)

type widget struct{ ID string }

func (w widget) Identity() keys.Identity { return keys.Identity{Partition: "p", ID: w.ID} }

type gadget struct{ ID string }

func (g gadget) Identity() keys.Identity { return keys.Identity{Partition: "p", ID: g.ID} }

func unregister[T any]() {
	t := typeOf[T]()
	mu.Lock()
	defer mu.Unlock()
	if e, ok := byType[t]; ok {
		delete(byType, t)
		delete(byTable, e.Descriptor.TableName)
	}
}

func TestRegisterAndLookup(t *testing.T) {
	desc := datastore.Descriptor{TableName: "Widgets", Shape: keys.PlainSortKey}
	Register[widget](desc)
	t.Cleanup(unregister[widget])

	got, err := Lookup[widget]()
	require.NoError(t, err)
	assert.Equal(t, desc, got)

	e, err := ByTable("Widgets")
	require.NoError(t, err)
	assert.Equal(t, "registry.widget", e.Type.String())

	_, err = Lookup[gadget]()
	assert.True(t, storeerrors.IsNotRegistered(err))
	_, err = ByTable("Gadgets")
	assert.True(t, storeerrors.IsNotRegistered(err))
}

func TestRegisterPanics(t *testing.T) {
	Register[widget](datastore.Descriptor{TableName: "Widgets", Shape: keys.PlainSortKey})
	t.Cleanup(unregister[widget])

	assert.Panics(t, func() {
		Register[widget](datastore.Descriptor{TableName: "Other", Shape: keys.PlainSortKey})
	}, "duplicate type")
	assert.Panics(t, func() {
		Register[gadget](datastore.Descriptor{TableName: "Widgets", Shape: keys.PlainSortKey})
	}, "duplicate table")
	assert.Panics(t, func() {
		Register[gadget](datastore.Descriptor{TableName: "Gadgets", Shape: keys.CompositeSortKey, HasIndex: true})
	}, "invalid descriptor")
}

func TestAllOrdered(t *testing.T) {
	Register[widget](datastore.Descriptor{TableName: "Widgets", Shape: keys.PlainSortKey})
	Register[gadget](datastore.Descriptor{TableName: "Gadgets", Shape: keys.CompositeSortKey})
	t.Cleanup(unregister[widget])
	t.Cleanup(unregister[gadget])

	var names []string
	for _, d := range Descriptors() {
		names = append(names, d.TableName)
	}
	assert.Equal(t, []string{"Gadgets", "Widgets"}, names)
}
