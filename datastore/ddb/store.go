/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/storagemodels"
)

// Store implements datastore.Repository[T] on a DynamoDB table.
type Store[T datastore.Entity] struct {
	client Client
	desc   datastore.Descriptor
	codec  keys.Codec
	opts   settings
}

// NewStore constructs a store for the entity type described by desc.
func NewStore[T datastore.Entity](client Client, desc datastore.Descriptor, opts ...Option) (*Store[T], error) {
	if client == nil {
		return nil, storeerrors.NewValidationError("client", "must not be nil")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &Store[T]{
		client: client,
		desc:   desc,
		codec:  desc.Codec(),
		opts:   newSettings(opts),
	}, nil
}

// Descriptor returns the descriptor the store was built with.
func (s *Store[T]) Descriptor() datastore.Descriptor {
	return s.desc
}

func (s *Store[T]) table() *string {
	return aws.String(s.desc.TableName)
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keys.PartitionKeyAttr: &types.AttributeValueMemberS{Value: pk},
		keys.SortKeyAttr:      &types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// marshal converts entity to an item and injects the derived key attributes.
func (s *Store[T]) marshal(entity T) (map[string]types.AttributeValue, keys.Keys, error) {
	k, err := s.codec.Derive(entity.Identity())
	if err != nil {
		return nil, k, err
	}

	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, k, fmt.Errorf("failed to marshal entity: %w", err)
	}
	item[keys.PartitionKeyAttr] = &types.AttributeValueMemberS{Value: k.PK}
	item[keys.SortKeyAttr] = &types.AttributeValueMemberS{Value: k.SK}
	delete(item, keys.IndexKeyAttr)
	if s.desc.HasIndex && k.LSI != "" {
		item[keys.IndexKeyAttr] = &types.AttributeValueMemberS{Value: k.LSI}
	}
	return item, k, nil
}

// Create stores entity unless an item with the same key already exists.
func (s *Store[T]) Create(ctx context.Context, entity T) (datastore.Outcome, error) {
	cond := expression.AttributeNotExists(expression.Name(keys.PartitionKeyAttr)).
		And(expression.AttributeNotExists(expression.Name(keys.SortKeyAttr)))
	return s.conditionalPut(ctx, "create", entity, cond)
}

// Update replaces entity only if an item with the same key exists.
func (s *Store[T]) Update(ctx context.Context, entity T) (datastore.Outcome, error) {
	cond := expression.AttributeExists(expression.Name(keys.PartitionKeyAttr)).
		And(expression.AttributeExists(expression.Name(keys.SortKeyAttr)))
	return s.conditionalPut(ctx, "update", entity, cond)
}

func (s *Store[T]) conditionalPut(ctx context.Context, op string, entity T, cond expression.ConditionBuilder) (out datastore.Outcome, err error) {
	started := time.Now()
	defer func() { s.opts.metrics.observeWrite(op, s.desc.TableName, started, out, err) }()

	item, k, err := s.marshal(entity)
	if err != nil {
		return 0, err
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s condition: %w", op, err)
	}

	_, err = s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                 s.table(),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			s.opts.logger.Debug("conditional put rejected",
				zap.String("op", op), zap.String("table", s.desc.TableName),
				zap.String("pk", k.PK), zap.String("sk", k.SK))
			return datastore.PreconditionFailed, nil
		}
		return 0, fmt.Errorf("%s failed: %w", op, err)
	}

	s.opts.logger.Debug("item stored",
		zap.String("op", op), zap.String("table", s.desc.TableName),
		zap.String("pk", k.PK), zap.String("sk", k.SK))
	return datastore.Applied, nil
}

// GetByKey returns the item stored under pk/sk, or nil when there is none.
func (s *Store[T]) GetByKey(ctx context.Context, pk, sk string) (result *T, err error) {
	if pk == "" || sk == "" {
		return nil, storeerrors.NewValidationError("key", "pk and sk must not be empty")
	}
	started := time.Now()
	defer func() { s.observeRead("get", started, err) }()

	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: s.table(),
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	result = new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

func (s *Store[T]) observeRead(op string, started time.Time, err error) {
	if err != nil {
		s.opts.metrics.observe(op, s.desc.TableName, started, outcomeError)
		return
	}
	s.opts.metrics.observe(op, s.desc.TableName, started, "ok")
}

func partitionCondition(pk string) expression.KeyConditionBuilder {
	return expression.Key(keys.PartitionKeyAttr).Equal(expression.Value(pk))
}

// GetByPartition returns every item of partition pk in sort key order.
func (s *Store[T]) GetByPartition(ctx context.Context, pk string) ([]T, error) {
	if pk == "" {
		return nil, storeerrors.NewValidationError("pk", "must not be empty")
	}
	return s.queryAll(ctx, "query_partition", partitionCondition(pk), nil)
}

// GetByKeyPrefix returns the items of partition pk whose sort key starts with prefix.
// For composite keys, keys.OwnerPrefix(owner) selects every item of one owner.
func (s *Store[T]) GetByKeyPrefix(ctx context.Context, pk, prefix string) ([]T, error) {
	if pk == "" {
		return nil, storeerrors.NewValidationError("pk", "must not be empty")
	}
	if prefix == "" {
		return s.GetByPartition(ctx, pk)
	}
	cond := partitionCondition(pk).And(expression.Key(keys.SortKeyAttr).BeginsWith(prefix))
	return s.queryAll(ctx, "query_prefix", cond, nil)
}

// queryAll follows every page of a key condition query.
func (s *Store[T]) queryAll(ctx context.Context, op string, cond expression.KeyConditionBuilder, index *string) (items []T, err error) {
	started := time.Now()
	defer func() { s.observeRead(op, started, err) }()

	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	p := sdk.NewQueryPaginator(s.client, &sdk.QueryInput{
		TableName:                 s.table(),
		IndexName:                 index,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	items = []T{}
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		var page []T
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		items = append(items, page...)
	}

	s.opts.logger.Debug("query completed",
		zap.String("op", op), zap.String("table", s.desc.TableName), zap.Int("items", len(items)))
	return items, nil
}

// GetPaged returns one page of partition q.PartitionKey. The continuation token of
// the result is empty exactly when no further items exist.
func (s *Store[T]) GetPaged(ctx context.Context, q storagemodels.PageQuery) (result *storagemodels.PageResult[T], err error) {
	if q.PartitionKey == "" {
		return nil, storeerrors.NewValidationError("partitionKey", "must not be empty")
	}
	size := q.Size(s.opts.limits)

	start, err := DecodeToken(q.ContinuationToken)
	if err != nil {
		return nil, storeerrors.NewValidationError("continuationToken", "malformed token")
	}
	if start != nil {
		pk, ok := start[keys.PartitionKeyAttr].(*types.AttributeValueMemberS)
		if !ok || pk.Value != q.PartitionKey {
			return nil, storeerrors.NewValidationError("continuationToken", "token belongs to another partition")
		}
		if _, ok := start[keys.SortKeyAttr].(*types.AttributeValueMemberS); !ok {
			return nil, storeerrors.NewValidationError("continuationToken", "token has no sort key")
		}
	}

	started := time.Now()
	defer func() { s.observeRead("query_page", started, err) }()

	expr, err := expression.NewBuilder().WithKeyCondition(partitionCondition(q.PartitionKey)).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	// One item beyond the page tells whether another page exists.
	input := &sdk.QueryInput{
		TableName:                 s.table(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         start,
		Limit:                     aws.Int32(int32(size + 1)),
		ScanIndexForward:          aws.Bool(!s.opts.descending),
	}
	var raw []map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		raw = append(raw, out.Items...)
		if len(raw) > size || len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
		input.Limit = aws.Int32(int32(size + 1 - len(raw)))
	}

	result = &storagemodels.PageResult[T]{Items: []T{}}
	if len(raw) > size {
		raw = raw[:size]
		last := raw[size-1]
		token, err := EncodeToken(map[string]types.AttributeValue{
			keys.PartitionKeyAttr: last[keys.PartitionKeyAttr],
			keys.SortKeyAttr:      last[keys.SortKeyAttr],
		})
		if err != nil {
			return nil, err
		}
		result.ContinuationToken = token
	}
	if err := attributevalue.UnmarshalListOfMaps(raw, &result.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return result, nil
}

// ScanAll reads the whole table. It is expensive and meant for maintenance tasks.
func (s *Store[T]) ScanAll(ctx context.Context) (items []T, err error) {
	started := time.Now()
	defer func() { s.observeRead("scan", started, err) }()
	s.opts.logger.Warn("full table scan", zap.String("table", s.desc.TableName))

	items = []T{}
	err = s.scan(ctx, nil, func(page []map[string]types.AttributeValue) error {
		var typed []T
		if err := attributevalue.UnmarshalListOfMaps(page, &typed); err != nil {
			return fmt.Errorf("failed to unmarshal items: %w", err)
		}
		items = append(items, typed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ScanAllKeys returns the primary key of every item in the table.
func (s *Store[T]) ScanAllKeys(ctx context.Context) (pairs []storagemodels.KeyPair, err error) {
	started := time.Now()
	defer func() { s.observeRead("scan_keys", started, err) }()
	s.opts.logger.Warn("full table key scan", zap.String("table", s.desc.TableName))

	proj := expression.NamesList(expression.Name(keys.PartitionKeyAttr), expression.Name(keys.SortKeyAttr))
	pairs = []storagemodels.KeyPair{}
	err = s.scan(ctx, &proj, func(page []map[string]types.AttributeValue) error {
		var typed []storagemodels.KeyPair
		if err := attributevalue.UnmarshalListOfMaps(page, &typed); err != nil {
			return fmt.Errorf("failed to unmarshal keys: %w", err)
		}
		pairs = append(pairs, typed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *Store[T]) scan(ctx context.Context, proj *expression.ProjectionBuilder, fn func([]map[string]types.AttributeValue) error) error {
	input := &sdk.ScanInput{TableName: s.table()}
	if proj != nil {
		expr, err := expression.NewBuilder().WithProjection(*proj).Build()
		if err != nil {
			return fmt.Errorf("failed to build projection: %w", err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	p := sdk.NewScanPaginator(s.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan error: %w", err)
		}
		if err := fn(out.Items); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the item stored under pk/sk. Deleting a missing item is not an error.
func (s *Store[T]) Delete(ctx context.Context, pk, sk string) (out datastore.Outcome, err error) {
	if pk == "" || sk == "" {
		return 0, storeerrors.NewValidationError("key", "pk and sk must not be empty")
	}
	started := time.Now()
	defer func() { s.opts.metrics.observeWrite("delete", s.desc.TableName, started, out, err) }()

	_, err = s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: s.table(),
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}

	s.opts.logger.Debug("item deleted",
		zap.String("table", s.desc.TableName), zap.String("pk", pk), zap.String("sk", sk))
	return datastore.Applied, nil
}

// Count returns the number of items in partition pk. Every page is followed,
// so the result is exact even when DynamoDB truncates responses.
func (s *Store[T]) Count(ctx context.Context, pk string) (total int, err error) {
	if pk == "" {
		return 0, storeerrors.NewValidationError("pk", "must not be empty")
	}
	started := time.Now()
	defer func() { s.observeRead("count", started, err) }()

	expr, err := expression.NewBuilder().WithKeyCondition(partitionCondition(pk)).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build key condition: %w", err)
	}

	p := sdk.NewQueryPaginator(s.client, &sdk.QueryInput{
		TableName:                 s.table(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count error: %w", err)
		}
		total += int(out.Count)
	}
	return total, nil
}
