/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory DynamoDB client for testing stores without a database.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/acksell/bezos/dynamodb/ddbstore"
	"github.com/acksell/bezos/dynamodb/ddbstore/keyconditionexpr"
	"github.com/acksell/bezos/dynamodb/ddbstore/keyconditionexpr/ast"
	"github.com/acksell/bezos/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkAttr  = "pk"
	skAttr  = "sk"
	lsiAttr = "lsi"
)

// Operation names a client call, used for error injection and call counting.
type Operation string

const (
	OpGetItem       Operation = "GetItem"
	OpPutItem       Operation = "PutItem"
	OpUpdateItem    Operation = "UpdateItem"
	OpDeleteItem    Operation = "DeleteItem"
	OpQuery         Operation = "Query"
	OpScan          Operation = "Scan"
	OpListTables    Operation = "ListTables"
	OpDescribeTable Operation = "DescribeTable"
	OpCreateTable   Operation = "CreateTable"
)

// mockTable is one table backed by its own in-memory ddbstore. The local
// secondary index is registered with ddbstore as an index on the same partition key.
type mockTable struct {
	def       *sdk.CreateTableInput
	keys      table.PrimaryKeyDefinition
	index     string
	indexKeys table.PrimaryKeyDefinition
	store     *ddbstore.Store
}

func newTable(def *sdk.CreateTableInput) (*mockTable, error) {
	t := &mockTable{
		def:  def,
		keys: keyDefinition(def.KeySchema, def.AttributeDefinitions),
	}
	td := table.TableDefinition{Name: aws.ToString(def.TableName), KeyDefinitions: t.keys}
	if len(def.LocalSecondaryIndexes) > 0 {
		lsi := def.LocalSecondaryIndexes[0]
		t.index = aws.ToString(lsi.IndexName)
		t.indexKeys = keyDefinition(lsi.KeySchema, def.AttributeDefinitions)
		td.GSIs = []table.GSIDefinition{{Name: t.index, KeyDefinitions: t.indexKeys}}
	}

	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, td)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store for %s: %w", td.Name, err)
	}
	t.store = store
	return t, nil
}

// keyDefinition converts a key schema to ddbstore's form. Tables created without
// a key schema get the pk/sk string keys every store uses.
func keyDefinition(schema []types.KeySchemaElement, attrs []types.AttributeDefinition) table.PrimaryKeyDefinition {
	if len(schema) == 0 {
		return table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: pkAttr, Kind: table.KeyKindS},
			SortKey:      table.KeyDef{Name: skAttr, Kind: table.KeyKindS},
		}
	}
	var def table.PrimaryKeyDefinition
	for _, el := range schema {
		key := table.KeyDef{Name: aws.ToString(el.AttributeName), Kind: table.KeyKindS}
		for _, attr := range attrs {
			if aws.ToString(attr.AttributeName) == key.Name && attr.AttributeType != "" {
				key.Kind = table.KeyKind(attr.AttributeType)
			}
		}
		if el.KeyType == types.KeyTypeHash {
			def.PartitionKey = key
		} else {
			def.SortKey = key
		}
	}
	return def
}

// keyOf returns the key attributes of item under def.
func keyOf(item map[string]types.AttributeValue, def table.PrimaryKeyDefinition) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{def.PartitionKey.Name: item[def.PartitionKey.Name]}
	if def.SortKey.Name != "" {
		key[def.SortKey.Name] = item[def.SortKey.Name]
	}
	return key
}

func sameKey(item, key map[string]types.AttributeValue, def table.PrimaryKeyDefinition) bool {
	for _, name := range []string{def.PartitionKey.Name, def.SortKey.Name} {
		if name == "" {
			continue
		}
		a, ok1 := item[name].(*types.AttributeValueMemberS)
		b, ok2 := key[name].(*types.AttributeValueMemberS)
		if !ok1 || !ok2 || a.Value != b.Value {
			return false
		}
	}
	return true
}

// Client is an in-memory implementation of the DynamoDB operations used by the ddb package.
// Item operations and expressions are served by ddbstore; the client adds table
// management, page truncation, error injection and call hooks.
type Client struct {
	mu       sync.Mutex
	tables   map[string]*mockTable
	pageCap  int
	errs     map[Operation]error
	beforeFn map[Operation]func()
	calls    map[Operation]int
}

// Option configures a Client.
type Option func(*Client)

// WithPageCap limits every Query and Scan page to n items, the way DynamoDB's
// 1 MB response limit truncates pages regardless of Limit.
func WithPageCap(n int) Option {
	return func(c *Client) {
		c.pageCap = n
	}
}

// New creates an empty client.
func New(opts ...Option) *Client {
	c := &Client{
		tables:   make(map[string]*mockTable),
		errs:     make(map[Operation]error),
		beforeFn: make(map[Operation]func()),
		calls:    make(map[Operation]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddTable creates a table with pk/sk keys. A non-empty indexName adds a local
// secondary index on the lsi attribute.
func (c *Client) AddTable(name, indexName string) *Client {
	def := &sdk.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(pkAttr), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(skAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(pkAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(skAttr), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
	if indexName != "" {
		def.AttributeDefinitions = append(def.AttributeDefinitions,
			types.AttributeDefinition{AttributeName: aws.String(lsiAttr), AttributeType: types.ScalarAttributeTypeS})
		def.LocalSecondaryIndexes = []types.LocalSecondaryIndex{{
			IndexName: aws.String(indexName),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pkAttr), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(lsiAttr), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}}
	}

	t, err := newTable(def)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = t
	return c
}

// Close releases the stores of every table.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, t := range c.tables {
		errs = append(errs, t.store.Close())
	}
	return errors.Join(errs...)
}

// WithError makes every call of op fail with err. A nil err clears the injection.
func (c *Client) WithError(op Operation, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
	} else {
		c.errs[op] = err
	}
	return c
}

// Before registers fn to run at the start of every call of op, outside the client lock.
// Tests use it to interleave a competing writer between a read and a conditioned write.
func (c *Client) Before(op Operation, fn func()) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.beforeFn, op)
	} else {
		c.beforeFn[op] = fn
	}
	return c
}

// Calls returns how many times op has been invoked.
func (c *Client) Calls(op Operation) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TableDefinition returns the definition a table was created with, or nil.
func (c *Client) TableDefinition(name string) *sdk.CreateTableInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[name]; ok {
		return t.def
	}
	return nil
}

// Items returns the number of items stored in a table.
func (c *Client) Items(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[name]; ok {
		return t.count()
	}
	return 0
}

func (t *mockTable) count() int {
	out, err := t.store.Scan(context.Background(), &sdk.ScanInput{TableName: t.def.TableName})
	if err != nil {
		return 0
	}
	return len(out.Items)
}

// RawItem returns a copy of a stored item, including its key attributes.
func (c *Client) RawItem(name, pk, sk string) map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[name]
	if !ok {
		return nil
	}
	out, err := t.getItem(context.Background(), &sdk.GetItemInput{
		TableName: aws.String(name),
		Key: map[string]types.AttributeValue{
			t.keys.PartitionKey.Name: &types.AttributeValueMemberS{Value: pk},
			t.keys.SortKey.Name:      &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil
	}
	return out.Item
}

func (c *Client) enter(ctx context.Context, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.calls[op]++
	err := c.errs[op]
	fn := c.beforeFn[op]
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		fn()
	}
	return nil
}

// table returns the named table. The caller must hold c.mu.
func (c *Client) table(name *string) (*mockTable, error) {
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Requested resource not found: Table: %s not found", aws.ToString(name))),
		}
	}
	return t, nil
}

// checkIndex rejects index names other than the table's local secondary index.
func (t *mockTable) checkIndex(indexName *string) error {
	if indexName == nil {
		return nil
	}
	if t.index == "" || t.index != *indexName {
		return fmt.Errorf("ValidationException: the table does not have the specified index: %s", *indexName)
	}
	return nil
}

func (t *mockTable) getItem(ctx context.Context, in *sdk.GetItemInput) (*sdk.GetItemOutput, error) {
	out, err := t.store.GetItem(ctx, in)
	if err != nil {
		// ddbstore reports a missing item as an error next to an empty output.
		if out != nil {
			return &sdk.GetItemOutput{}, nil
		}
		return nil, err
	}
	return out, nil
}

// GetItem returns the item stored under the given key.
func (c *Client) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	if err := c.enter(ctx, OpGetItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return t.getItem(ctx, in)
}

// PutItem stores an item, honoring the condition expression.
func (c *Client) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	if err := c.enter(ctx, OpPutItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return t.store.PutItem(ctx, in)
}

// UpdateItem applies the update expression, creating the item when it does not exist.
func (c *Client) UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	if err := c.enter(ctx, OpUpdateItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return t.store.UpdateItem(ctx, in)
}

// DeleteItem removes an item. Deleting a missing item succeeds.
func (c *Client) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	if err := c.enter(ctx, OpDeleteItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return t.store.DeleteItem(ctx, in)
}

// capped returns limit lowered to the page cap.
func (c *Client) capped(limit *int32) *int32 {
	if c.pageCap > 0 && (limit == nil || *limit <= 0 || int(*limit) > c.pageCap) {
		return aws.Int32(int32(c.pageCap))
	}
	return limit
}

// indexLookup turns an index query of the form pk = :a AND lsi = :b into a base
// table query filtered on lsi. ddbstore keys index entries by partition and index
// value, so it keeps one item per index value where a local secondary index keeps all.
// Other index queries are left to ddbstore.
func (t *mockTable) indexLookup(in *sdk.QueryInput) (*sdk.QueryInput, bool, error) {
	if in.FilterExpression != nil || in.ProjectionExpression != nil {
		return nil, false, nil
	}
	cond, err := keyconditionexpr.Parse(aws.ToString(in.KeyConditionExpression), keyconditionexpr.ParseParams{
		ExpressionAttributeNames:  in.ExpressionAttributeNames,
		ExpressionAttributeValues: in.ExpressionAttributeValues,
		TableKeys:                 t.indexKeys,
	})
	if err != nil {
		return nil, false, fmt.Errorf("ValidationException: %w", err)
	}
	if cond.SortKeyCond == nil || cond.SortKeyCond.Compare == nil || cond.SortKeyCond.Compare.Comp != ast.Equal {
		return nil, false, nil
	}
	pk, ok1 := cond.PartitionKeyCond.EqualsValue.GetValue().Value.(string)
	ik, ok2 := cond.SortKeyCond.Compare.Value.GetValue().Value.(string)
	if !ok1 || !ok2 {
		return nil, false, nil
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(t.keys.PartitionKey.Name).Equal(expression.Value(pk))).
		WithFilter(expression.Name(t.indexKeys.SortKey.Name).Equal(expression.Value(ik))).
		Build()
	if err != nil {
		return nil, false, err
	}
	return &sdk.QueryInput{
		TableName:                 in.TableName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         in.ExclusiveStartKey,
		Limit:                     in.Limit,
		ScanIndexForward:          in.ScanIndexForward,
		Select:                    in.Select,
	}, true, nil
}

// Query returns items matching the key condition, one page at a time.
func (c *Client) Query(ctx context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	if err := c.enter(ctx, OpQuery); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.KeyConditionExpression == nil {
		return nil, fmt.Errorf("ValidationException: KeyConditionExpression is required")
	}
	if err := t.checkIndex(in.IndexName); err != nil {
		return nil, err
	}

	keyDef := t.keys
	if in.IndexName != nil {
		rewritten, ok, err := t.indexLookup(in)
		if err != nil {
			return nil, err
		}
		if ok {
			in = rewritten
		} else {
			keyDef = t.indexKeys
		}
	}

	req := *in
	req.Limit = c.capped(in.Limit)
	forward := req.ScanIndexForward == nil || *req.ScanIndexForward

	var out *sdk.QueryOutput
	if !forward && req.ExclusiveStartKey != nil {
		out, err = t.queryBackwardFrom(ctx, &req, keyDef)
	} else {
		out, err = t.store.Query(ctx, &req)
	}
	if err != nil {
		return nil, err
	}
	if req.Select == types.SelectCount {
		out.Items = nil
	}
	return out, nil
}

// queryBackwardFrom runs a descending query that resumes after a start key.
// ddbstore's backward seek lands on the start key itself, so one extra item is
// read and the start key dropped.
func (t *mockTable) queryBackwardFrom(ctx context.Context, in *sdk.QueryInput, keyDef table.PrimaryKeyDefinition) (*sdk.QueryOutput, error) {
	req := *in
	if in.Limit != nil {
		req.Limit = aws.Int32(*in.Limit + 1)
	}
	out, err := t.store.Query(ctx, &req)
	if err != nil {
		return nil, err
	}

	if len(out.Items) > 0 && sameKey(out.Items[0], in.ExclusiveStartKey, keyDef) {
		out.Items = out.Items[1:]
	} else if in.Limit != nil && len(out.Items) > int(*in.Limit) {
		out.Items = out.Items[:*in.Limit]
		out.LastEvaluatedKey = keyOf(out.Items[len(out.Items)-1], keyDef)
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = out.Count
	return out, nil
}

// Scan returns every item of a table or index, one page at a time.
func (c *Client) Scan(ctx context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	if err := c.enter(ctx, OpScan); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if err := t.checkIndex(in.IndexName); err != nil {
		return nil, err
	}

	req := *in
	req.Limit = c.capped(in.Limit)
	out, err := t.store.Scan(ctx, &req)
	if err != nil {
		return nil, err
	}
	if req.Select == types.SelectCount {
		out.Items = nil
	}
	return out, nil
}

// ListTables returns table names in lexical order.
func (c *Client) ListTables(ctx context.Context, in *sdk.ListTablesInput, _ ...func(*sdk.Options)) (*sdk.ListTablesOutput, error) {
	if err := c.enter(ctx, OpListTables); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		if in.ExclusiveStartTableName == nil || name > *in.ExclusiveStartTableName {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := &sdk.ListTablesOutput{}
	if in.Limit != nil && *in.Limit > 0 && len(names) > int(*in.Limit) {
		names = names[:*in.Limit]
		out.LastEvaluatedTableName = aws.String(names[len(names)-1])
	}
	out.TableNames = names
	return out, nil
}

func (t *mockTable) describe(status types.TableStatus) *types.TableDescription {
	desc := &types.TableDescription{
		TableName:            t.def.TableName,
		TableStatus:          status,
		KeySchema:            t.def.KeySchema,
		AttributeDefinitions: t.def.AttributeDefinitions,
		ItemCount:            aws.Int64(int64(t.count())),
	}
	if t.def.BillingMode != "" {
		desc.BillingModeSummary = &types.BillingModeSummary{BillingMode: t.def.BillingMode}
	}
	for _, lsi := range t.def.LocalSecondaryIndexes {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  lsi.IndexName,
			KeySchema:  lsi.KeySchema,
			Projection: lsi.Projection,
		})
	}
	return desc
}

// DescribeTable reports a table as ACTIVE.
func (c *Client) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if err := c.enter(ctx, OpDescribeTable); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &sdk.DescribeTableOutput{Table: t.describe(types.TableStatusActive)}, nil
}

// CreateTable creates a table. Tables become ACTIVE immediately.
func (c *Client) CreateTable(ctx context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	if err := c.enter(ctx, OpCreateTable); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	name := aws.ToString(in.TableName)
	if name == "" {
		return nil, fmt.Errorf("ValidationException: TableName is required")
	}
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{
			Message: aws.String(fmt.Sprintf("Table already exists: %s", name)),
		}
	}
	t, err := newTable(in)
	if err != nil {
		return nil, err
	}
	c.tables[name] = t
	return &sdk.CreateTableOutput{TableDescription: t.describe(types.TableStatusCreating)}, nil
}
