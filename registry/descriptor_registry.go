/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
)

// Entry is one registered entity type.
type Entry struct {
	Type       reflect.Type
	Descriptor datastore.Descriptor
}

var (
	byType  = make(map[reflect.Type]Entry)
	byTable = make(map[string]Entry)
	mu      sync.RWMutex
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register associates the Go type T with its descriptor. It panics when the
// descriptor is invalid, T is already registered, or another type owns the table.
func Register[T datastore.Entity](desc datastore.Descriptor) {
	if err := desc.Validate(); err != nil {
		panic(fmt.Sprintf("registry: invalid descriptor for %s: %v", typeOf[T](), err))
	}
	t := typeOf[T]()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := byType[t]; exists {
		panic(fmt.Sprintf("registry: type %s already registered", t))
	}
	if other, exists := byTable[desc.TableName]; exists {
		panic(fmt.Sprintf("registry: table %q already registered by %s", desc.TableName, other.Type))
	}
	e := Entry{Type: t, Descriptor: desc}
	byType[t] = e
	byTable[desc.TableName] = e
}

// Lookup returns the descriptor registered for T.
func Lookup[T any]() (datastore.Descriptor, error) {
	t := typeOf[T]()

	mu.RLock()
	defer mu.RUnlock()
	e, ok := byType[t]
	if !ok {
		return datastore.Descriptor{}, storeerrors.NewNotRegisteredError(t.String())
	}
	return e.Descriptor, nil
}

// ByTable returns the entry owning a table name.
func ByTable(name string) (Entry, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := byTable[name]
	if !ok {
		return Entry{}, storeerrors.NewNotRegisteredError("table " + name)
	}
	return e, nil
}

// All returns every registered entry ordered by table name.
func All() []Entry {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Entry, 0, len(byTable))
	for _, e := range byTable {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor.TableName < out[j].Descriptor.TableName
	})
	return out
}

// Descriptors returns the descriptors of All.
func Descriptors() []datastore.Descriptor {
	entries := All()
	out := make([]datastore.Descriptor, len(entries))
	for i, e := range entries {
		out[i] = e.Descriptor
	}
	return out
}
