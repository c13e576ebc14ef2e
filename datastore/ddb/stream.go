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
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// Stream pages through partition pk on a goroutine and emits every item in sort key
// order. The channel is closed when the partition is exhausted, a page fails after
// its retries, or ctx is cancelled.
func (s *Store[T]) Stream(ctx context.Context, pk string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	if pk == "" {
		resultCh <- storagemodels.StreamResult[T]{Error: storeerrors.NewValidationError("pk", "must not be empty")}
		close(resultCh)
		return resultCh
	}

	go s.streamWorker(ctx, pk, options, resultCh)
	return resultCh
}

func (s *Store[T]) streamWorker(
	ctx context.Context,
	pk string,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(itemIndex) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(r storagemodels.StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- r:
			return true
		}
	}

	expr, err := expression.NewBuilder().WithKeyCondition(partitionCondition(pk)).Build()
	if err != nil {
		send(storagemodels.StreamResult[T]{Error: fmt.Errorf("failed to build key condition: %w", err)})
		return
	}
	input := &sdk.QueryInput{
		TableName:                 s.table(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if options.PageSize > 0 {
		input.Limit = aws.Int32(options.PageSize)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		out, err := s.queryWithRetry(ctx, input, options)
		if err != nil {
			send(storagemodels.StreamResult[T]{
				Error: fmt.Errorf("query failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber + 1,
					Timestamp:  time.Now(),
				},
			})
			return
		}
		pageNumber++

		for _, item := range out.Items {
			if !send(s.processItem(item, itemIndex, pageNumber)) {
				return
			}
			itemIndex++
		}

		reportProgress(out.LastEvaluatedKey)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	s.opts.logger.Debug("stream completed",
		zap.String("table", s.desc.TableName), zap.String("pk", pk),
		zap.Int64("items", itemIndex), zap.Int("pages", pageNumber))
}

// queryWithRetry runs one page query, retrying throttling and server errors with
// exponential backoff.
func (s *Store[T]) queryWithRetry(ctx context.Context, input *sdk.QueryInput, options storagemodels.StreamOptions) (*sdk.QueryOutput, error) {
	b := backoff.NewExponentialBackOff()
	if options.RetryBackoff > 0 {
		b.InitialInterval = options.RetryBackoff
	}

	return backoff.Retry(ctx, func() (*sdk.QueryOutput, error) {
		out, err := s.client.Query(ctx, input)
		if err != nil && !isRetryableError(err) {
			return nil, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(options.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.opts.logger.Debug("retrying stream page",
				zap.String("table", s.desc.TableName), zap.Error(err), zap.Duration("backoff", next))
		}),
	)
}

func (s *Store[T]) processItem(item map[string]types.AttributeValue, index int64, pageNumber int) storagemodels.StreamResult[T] {
	result := storagemodels.StreamResult[T]{
		Raw: item,
		Meta: storagemodels.StreamMeta{
			Index:      index,
			PageNumber: pageNumber,
			Timestamp:  time.Now(),
		},
	}
	if err := attributevalue.UnmarshalMap(item, &result.Item); err != nil {
		result.Error = fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result
}

// isRetryableError reports whether err is a throttling or transient server error.
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable", "InternalFailure":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}
