/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
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
	"github.com/suparena/tablestore/storagemodels"
)

// AggregateUpdater maintains a {Sum, Count, Avg} map attribute on items of one table.
// Each contribution is a single optimistic attempt guarded by the stored Count.
type AggregateUpdater struct {
	client Client
	table  string
	opts   settings
}

var _ datastore.AggregateRepository = (*AggregateUpdater)(nil)

// NewAggregateUpdater constructs an updater for the table of desc.
func NewAggregateUpdater(client Client, desc datastore.Descriptor, opts ...Option) (*AggregateUpdater, error) {
	if client == nil {
		return nil, storeerrors.NewValidationError("client", "must not be nil")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &AggregateUpdater{client: client, table: desc.TableName, opts: newSettings(opts)}, nil
}

func (u *AggregateUpdater) field(name string) expression.NameBuilder {
	return expression.Name(u.opts.aggregateAttr + "." + name)
}

// Get reads only the aggregate of the item at pk/sk. It returns nil when the item
// or its aggregate does not exist, or when the aggregate has no Count.
func (u *AggregateUpdater) Get(ctx context.Context, pk, sk string) (*storagemodels.Aggregate, error) {
	if pk == "" || sk == "" {
		return nil, storeerrors.NewValidationError("key", "pk and sk must not be empty")
	}

	proj := expression.NamesList(u.field("Sum"), u.field("Count"), u.field("Avg"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build projection: %w", err)
	}

	out, err := u.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:                aws.String(u.table),
		Key:                      keyOf(pk, sk),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		ConsistentRead:           aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}

	// Contribute conditions on Count, so a map without it cannot be updated.
	raw, ok := out.Item[u.opts.aggregateAttr].(*types.AttributeValueMemberM)
	if !ok {
		return nil, nil
	}
	if _, ok := raw.Value["Count"]; !ok {
		return nil, nil
	}
	var agg storagemodels.Aggregate
	if err := attributevalue.Unmarshal(raw, &agg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aggregate: %w", err)
	}
	return &agg, nil
}

// Contribute folds contribution into the aggregate at pk/sk. The write is
// conditioned on the Count that was read, so a concurrent contributor makes it
// fail with PreconditionFailed instead of losing an update.
func (u *AggregateUpdater) Contribute(ctx context.Context, pk, sk string, contribution int64) (result datastore.AggregateResult, err error) {
	started := time.Now()
	defer func() { u.opts.metrics.observeWrite("contribute", u.table, started, result.Outcome, err) }()

	old, err := u.Get(ctx, pk, sk)
	if err != nil {
		return datastore.AggregateResult{}, err
	}
	if old == nil {
		u.opts.logger.Debug("aggregate not found",
			zap.String("table", u.table), zap.String("pk", pk), zap.String("sk", sk))
		return datastore.AggregateResult{Outcome: datastore.NotFound}, nil
	}

	next := old.Add(contribution)
	expr, err := expression.NewBuilder().
		WithCondition(u.field("Count").Equal(expression.Value(old.Count))).
		WithUpdate(expression.Set(expression.Name(u.opts.aggregateAttr), expression.Value(next))).
		Build()
	if err != nil {
		return datastore.AggregateResult{}, fmt.Errorf("failed to build aggregate update: %w", err)
	}

	_, err = u.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(u.table),
		Key:                       keyOf(pk, sk),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			u.opts.metrics.conflict(u.table)
			u.opts.logger.Debug("aggregate conflict",
				zap.String("table", u.table), zap.String("pk", pk), zap.String("sk", sk),
				zap.Int64("expectedCount", old.Count))
			return datastore.AggregateResult{Outcome: datastore.PreconditionFailed}, nil
		}
		return datastore.AggregateResult{}, fmt.Errorf("aggregate update failed: %w", err)
	}

	u.opts.logger.Debug("aggregate updated",
		zap.String("table", u.table), zap.String("pk", pk), zap.String("sk", sk),
		zap.Int64("sum", next.Sum), zap.Int64("count", next.Count))
	return datastore.AggregateResult{Outcome: datastore.Applied, Aggregate: &next}, nil
}
