/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Page size limits applied by PageQuery.Size when none are configured.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// PageSizeCeiling is the largest Max a PageLimits may carry.
const PageSizeCeiling = 1000

// PageLimits bounds the page size of a paged query.
type PageLimits struct {
	Default int
	Max     int
}

// DefaultPageLimits returns the built-in limits (20 by default, 50 at most).
func DefaultPageLimits() PageLimits {
	return PageLimits{Default: DefaultPageSize, Max: MaxPageSize}
}

// PageQuery describes one page of a partition query.
type PageQuery struct {
	// PartitionKey selects the partition to page through.
	PartitionKey string
	// PageSize is clamped by Size; values outside (0, Max] fall back to the default.
	PageSize int
	// ContinuationToken resumes after the last item of a previous page. Empty starts at the beginning.
	ContinuationToken string
}

// Size returns the effective page size for the given limits. Limits that are
// inconsistent or exceed PageSizeCeiling are replaced by DefaultPageLimits.
func (q PageQuery) Size(limits PageLimits) int {
	if limits.Max <= 0 || limits.Max > PageSizeCeiling || limits.Default <= 0 || limits.Default > limits.Max {
		limits = DefaultPageLimits()
	}
	if q.PageSize <= 0 || q.PageSize > limits.Max {
		return limits.Default
	}
	return q.PageSize
}

// PageResult holds one page of items. ContinuationToken is empty exactly when
// no further items exist.
type PageResult[T any] struct {
	Items             []T
	ContinuationToken string
}

// HasMore reports whether another page can be requested.
func (r *PageResult[T]) HasMore() bool {
	return r != nil && r.ContinuationToken != ""
}

// KeyPair is the primary key of a stored item.
type KeyPair struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
}

// Aggregate is a running {sum, count, average} maintained on an entity.
// Average is always recomputed from Sum and Count.
type Aggregate struct {
	Sum     int64   `dynamodbav:"Sum" json:"sum"`
	Count   int64   `dynamodbav:"Count" json:"count"`
	Average float64 `dynamodbav:"Avg" json:"avg"`
}

// Add returns the aggregate after one more contribution.
func (a Aggregate) Add(contribution int64) Aggregate {
	next := Aggregate{
		Sum:   a.Sum + contribution,
		Count: a.Count + 1,
	}
	next.Average = float64(next.Sum) / float64(next.Count)
	return next
}

// NewAggregate builds an aggregate from a sum and count, deriving the average.
func NewAggregate(sum, count int64) Aggregate {
	a := Aggregate{Sum: sum, Count: count}
	if count > 0 {
		a.Average = float64(sum) / float64(count)
	}
	return a
}
