/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/tablestore/datastore"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
)

// SchemaManager creates the tables backing entity descriptors.
type SchemaManager struct {
	client SchemaClient
	opts   settings
}

// NewSchemaManager constructs a schema manager.
func NewSchemaManager(client SchemaClient, opts ...Option) (*SchemaManager, error) {
	if client == nil {
		return nil, storeerrors.NewValidationError("client", "must not be nil")
	}
	return &SchemaManager{client: client, opts: newSettings(opts)}, nil
}

// EnsureTableExists creates the table of desc when it is missing and waits for it
// to become active. created is false when the table already existed.
func (m *SchemaManager) EnsureTableExists(ctx context.Context, desc datastore.Descriptor) (created bool, err error) {
	if err := desc.Validate(); err != nil {
		return false, err
	}
	log := m.opts.logger.With(zap.String("table", desc.TableName))

	exists, err := m.tableExists(ctx, desc.TableName)
	if err != nil {
		return false, err
	}
	if exists {
		log.Debug("table exists")
		return false, nil
	}

	_, err = m.client.CreateTable(ctx, m.definition(desc))
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			log.Debug("table created concurrently")
			return false, nil
		}
		return false, fmt.Errorf("failed to create table %s: %w", desc.TableName, err)
	}
	log.Info("table created", zap.Bool("index", desc.HasIndex))

	waiter := sdk.NewTableExistsWaiter(m.client)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(desc.TableName)}, m.opts.waitTimeout); err != nil {
		return true, fmt.Errorf("table %s did not become active: %w", desc.TableName, err)
	}
	return true, nil
}

// EnsureAll ensures every descriptor in order and stops at the first failure.
func (m *SchemaManager) EnsureAll(ctx context.Context, descs ...datastore.Descriptor) error {
	for _, desc := range descs {
		if _, err := m.EnsureTableExists(ctx, desc); err != nil {
			return err
		}
	}
	return nil
}

func (m *SchemaManager) tableExists(ctx context.Context, name string) (bool, error) {
	p := sdk.NewListTablesPaginator(m.client, &sdk.ListTablesInput{})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list tables: %w", err)
		}
		for _, t := range out.TableNames {
			if t == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func keyElement(attr string, kt types.KeyType) types.KeySchemaElement {
	return types.KeySchemaElement{AttributeName: aws.String(attr), KeyType: kt}
}

func stringAttribute(attr string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(attr), AttributeType: types.ScalarAttributeTypeS}
}

// definition builds the CreateTable request of desc.
func (m *SchemaManager) definition(desc datastore.Descriptor) *sdk.CreateTableInput {
	in := &sdk.CreateTableInput{
		TableName: aws.String(desc.TableName),
		KeySchema: []types.KeySchemaElement{
			keyElement(keys.PartitionKeyAttr, types.KeyTypeHash),
			keyElement(keys.SortKeyAttr, types.KeyTypeRange),
		},
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttribute(keys.PartitionKeyAttr),
			stringAttribute(keys.SortKeyAttr),
		},
	}

	if desc.HasIndex {
		in.AttributeDefinitions = append(in.AttributeDefinitions, stringAttribute(keys.IndexKeyAttr))
		in.LocalSecondaryIndexes = []types.LocalSecondaryIndex{{
			IndexName: aws.String(IndexName(desc.TableName)),
			KeySchema: []types.KeySchemaElement{
				keyElement(keys.PartitionKeyAttr, types.KeyTypeHash),
				keyElement(keys.IndexKeyAttr, types.KeyTypeRange),
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}}
	}

	if m.opts.readCapacity > 0 && m.opts.writeCapacity > 0 {
		in.BillingMode = types.BillingModeProvisioned
		in.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(m.opts.readCapacity),
			WriteCapacityUnits: aws.Int64(m.opts.writeCapacity),
		}
	} else {
		in.BillingMode = types.BillingModePayPerRequest
	}
	return in
}
