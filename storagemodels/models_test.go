/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageQuerySize(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		limits PageLimits
		want   int
	}{
		{"zero uses default", 0, DefaultPageLimits(), 20},
		{"negative uses default", -3, DefaultPageLimits(), 20},
		{"in range", 7, DefaultPageLimits(), 7},
		{"at max", 50, DefaultPageLimits(), 50},
		{"over max uses default", 51, DefaultPageLimits(), 20},
		{"custom limits", 8, PageLimits{Default: 5, Max: 10}, 8},
		{"custom limits over max", 11, PageLimits{Default: 5, Max: 10}, 5},
		{"broken limits fall back", 30, PageLimits{Default: 10, Max: 5}, 30},
		{"limits above ceiling fall back", 2000, PageLimits{Default: 10, Max: math.MaxInt}, 20},
		{"at ceiling", PageSizeCeiling, PageLimits{Default: 10, Max: PageSizeCeiling}, PageSizeCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := PageQuery{PartitionKey: "p", PageSize: tt.size}
			assert.Equal(t, tt.want, q.Size(tt.limits))
		})
	}
}

func TestPageResultHasMore(t *testing.T) {
	var nilResult *PageResult[int]
	assert.False(t, nilResult.HasMore())
	assert.False(t, (&PageResult[int]{}).HasMore())
	assert.True(t, (&PageResult[int]{ContinuationToken: "abc"}).HasMore())
}

func TestAggregateAdd(t *testing.T) {
	got := NewAggregate(9, 2).Add(5)

	assert.Equal(t, int64(14), got.Sum)
	assert.Equal(t, int64(3), got.Count)
	assert.InDelta(t, 14.0/3.0, got.Average, 1e-9)
}

func TestAggregateAddFromEmpty(t *testing.T) {
	got := Aggregate{}.Add(4)

	assert.Equal(t, Aggregate{Sum: 4, Count: 1, Average: 4}, got)
}

func TestNewAggregate(t *testing.T) {
	assert.Equal(t, Aggregate{}, NewAggregate(0, 0))
	assert.InDelta(t, 4.5, NewAggregate(9, 2).Average, 1e-9)
}
