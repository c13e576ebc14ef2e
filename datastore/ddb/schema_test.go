/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/datastore/mock"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/models"
)

func newSchemaManager(t *testing.T, client ddb.SchemaClient, opts ...ddb.Option) *ddb.SchemaManager {
	t.Helper()
	opts = append([]ddb.Option{ddb.WithLogger(zaptest.NewLogger(t))}, opts...)
	m, err := ddb.NewSchemaManager(client, opts...)
	require.NoError(t, err)
	return m
}

func TestEnsureTableExistsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := emptyClient(t)
	m := newSchemaManager(t, client)

	created, err := m.EnsureTableExists(ctx, models.UserDescriptor)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.EnsureTableExists(ctx, models.UserDescriptor)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, client.Calls(mock.OpCreateTable))

	def := client.TableDefinition("Users")
	require.NotNil(t, def)
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
	}, def.KeySchema)
	assert.Len(t, def.AttributeDefinitions, 2)
	assert.Empty(t, def.LocalSecondaryIndexes)
	assert.Equal(t, types.BillingModePayPerRequest, def.BillingMode)
	assert.Nil(t, def.ProvisionedThroughput)
}

func TestEnsureTableExistsWithIndex(t *testing.T) {
	client := emptyClient(t)
	m := newSchemaManager(t, client, ddb.WithProvisionedCapacity(1, 1))

	created, err := m.EnsureTableExists(context.Background(), models.CommentDescriptor)
	require.NoError(t, err)
	assert.True(t, created)

	def := client.TableDefinition("Comments")
	require.NotNil(t, def)
	require.Len(t, def.LocalSecondaryIndexes, 1)
	lsi := def.LocalSecondaryIndexes[0]
	assert.Equal(t, "Comments-lsi", aws.ToString(lsi.IndexName))
	assert.Equal(t, "lsi", aws.ToString(lsi.KeySchema[1].AttributeName))
	assert.Equal(t, types.ProjectionTypeAll, lsi.Projection.ProjectionType)
	assert.Len(t, def.AttributeDefinitions, 3)

	assert.Equal(t, types.BillingModeProvisioned, def.BillingMode)
	assert.Equal(t, int64(1), aws.ToInt64(def.ProvisionedThroughput.ReadCapacityUnits))
	assert.Equal(t, int64(1), aws.ToInt64(def.ProvisionedThroughput.WriteCapacityUnits))
}

func TestEnsureTableExistsCreatedConcurrently(t *testing.T) {
	client := emptyClient(t).WithError(mock.OpCreateTable, &types.ResourceInUseException{Message: aws.String("in use")})
	m := newSchemaManager(t, client)

	created, err := m.EnsureTableExists(context.Background(), models.UserDescriptor)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureTableExistsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := newSchemaManager(t, emptyClient(t).WithError(mock.OpListTables, boom)).EnsureTableExists(ctx, models.UserDescriptor)
	assert.ErrorIs(t, err, boom)

	_, err = newSchemaManager(t, emptyClient(t).WithError(mock.OpCreateTable, boom)).EnsureTableExists(ctx, models.UserDescriptor)
	assert.ErrorIs(t, err, boom)

	_, err = newSchemaManager(t, emptyClient(t)).EnsureTableExists(ctx, datastore.Descriptor{TableName: "Bad", Shape: keys.CompositeSortKey, HasIndex: true})
	assert.True(t, storeerrors.IsValidationError(err))

	_, err = ddb.NewSchemaManager(nil)
	assert.True(t, storeerrors.IsValidationError(err))
}

func TestEnsureAll(t *testing.T) {
	client := emptyClient(t).AddTable("Users", "")
	m := newSchemaManager(t, client)

	err := m.EnsureAll(context.Background(), models.UserDescriptor, models.BlogPostDescriptor, models.CommentDescriptor)
	require.NoError(t, err)
	assert.Equal(t, 2, client.Calls(mock.OpCreateTable))
	assert.NotNil(t, client.TableDefinition("BlogPosts"))
	assert.NotNil(t, client.TableDefinition("Comments"))
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "Comments-lsi", ddb.IndexName("Comments"))
	assert.Equal(t, ddb.IndexName("x"), ddb.IndexName("x"))
}
