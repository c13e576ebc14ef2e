/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/ddb"
	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
)

// DB hands out typed stores for registered entity types. Stores are created on
// first use and cached per type.
type DB struct {
	client    ddb.Client
	schema    ddb.SchemaClient
	prefix    string
	retry     ddb.RetryPolicy
	logger    *zap.Logger
	storeOpts []ddb.Option

	mu    sync.Mutex
	typed map[reflect.Type]any
}

// Option configures a DB.
type Option func(*DB)

// WithTablePrefix prepends prefix to every registered table name.
func WithTablePrefix(prefix string) Option {
	return func(db *DB) {
		db.prefix = prefix
	}
}

// WithRetryPolicy sets the conflict retry policy of AggregatesFor.
func WithRetryPolicy(p ddb.RetryPolicy) Option {
	return func(db *DB) {
		db.retry = p
	}
}

// WithLogger sets the logger passed to every store.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithStoreOptions appends options applied to every store, updater and the schema manager.
func WithStoreOptions(opts ...ddb.Option) Option {
	return func(db *DB) {
		db.storeOpts = append(db.storeOpts, opts...)
	}
}

// WithSchemaClient sets the client used by EnsureTables. It defaults to client
// when client also implements ddb.SchemaClient.
func WithSchemaClient(schema ddb.SchemaClient) Option {
	return func(db *DB) {
		db.schema = schema
	}
}

// New creates a DB on client.
func New(client ddb.Client, opts ...Option) (*DB, error) {
	if client == nil {
		return nil, storeerrors.NewValidationError("client", "must not be nil")
	}
	db := &DB{
		client: client,
		retry:  ddb.DefaultRetryPolicy(),
		logger: zap.NewNop(),
		typed:  make(map[reflect.Type]any),
	}
	if schema, ok := client.(ddb.SchemaClient); ok {
		db.schema = schema
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Open builds the AWS client and logger from cfg and creates a DB on them.
// opts are applied after the configured settings.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		return nil, storeerrors.NewValidationError("config", "must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	client, err := ddb.NewClient(ctx, ddb.AWSConfig{
		Region:    cfg.AWS.Region,
		Endpoint:  cfg.AWS.Endpoint,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithTablePrefix(cfg.Tables.Prefix),
		WithLogger(logger),
		WithRetryPolicy(ddb.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
		WithStoreOptions(
			ddb.WithPageLimits(cfg.Pagination.Limits()),
			ddb.WithProvisionedCapacity(cfg.Schema.ReadCapacity, cfg.Schema.WriteCapacity),
			ddb.WithWaitTimeout(cfg.Schema.WaitTimeout),
		),
	}
	return New(client, append(base, opts...)...)
}

// Logger returns the logger shared by the DB's stores.
func (db *DB) Logger() *zap.Logger {
	return db.logger
}

func (db *DB) options() []ddb.Option {
	opts := make([]ddb.Option, 0, len(db.storeOpts)+1)
	opts = append(opts, ddb.WithLogger(db.logger))
	return append(opts, db.storeOpts...)
}

// Descriptor returns the registered descriptor of T with the table prefix applied.
func Descriptor[T any](db *DB) (datastore.Descriptor, error) {
	desc, err := registry.Lookup[T]()
	if err != nil {
		return datastore.Descriptor{}, err
	}
	return db.resolve(desc), nil
}

func (db *DB) resolve(desc datastore.Descriptor) datastore.Descriptor {
	desc.TableName = db.prefix + desc.TableName
	return desc
}

// typedStores holds the stores created for one entity type.
type typedStores[T datastore.Entity] struct {
	store      *ddb.Store[T]
	indexed    *ddb.IndexedStore[T]
	aggregates *ddb.RetryingUpdater
}

// typedFor returns the cache entry of T, creating it if necessary.
// The caller must hold db.mu.
func typedFor[T datastore.Entity](db *DB) *typedStores[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if entry, ok := db.typed[typ]; ok {
		return entry.(*typedStores[T])
	}
	entry := &typedStores[T]{}
	db.typed[typ] = entry
	return entry
}

// For returns the store of the registered entity type T.
func For[T datastore.Entity](db *DB) (*ddb.Store[T], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry := typedFor[T](db)
	if entry.store != nil {
		return entry.store, nil
	}
	desc, err := Descriptor[T](db)
	if err != nil {
		return nil, err
	}
	store, err := ddb.NewStore[T](db.client, desc, db.options()...)
	if err != nil {
		return nil, err
	}
	entry.store = store
	return store, nil
}

// IndexedFor returns the index-capable store of T. It fails with a NoIndexError
// when T's descriptor declares no index.
func IndexedFor[T datastore.Entity](db *DB) (*ddb.IndexedStore[T], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry := typedFor[T](db)
	if entry.indexed != nil {
		return entry.indexed, nil
	}
	desc, err := Descriptor[T](db)
	if err != nil {
		return nil, err
	}
	store, err := ddb.NewIndexedStore[T](db.client, desc, db.options()...)
	if err != nil {
		return nil, err
	}
	entry.indexed = store
	return store, nil
}

// AggregatesFor returns the aggregate updater of T's table. Conflicts are retried
// according to the DB's retry policy.
func AggregatesFor[T datastore.Entity](db *DB) (*ddb.RetryingUpdater, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry := typedFor[T](db)
	if entry.aggregates != nil {
		return entry.aggregates, nil
	}
	desc, err := Descriptor[T](db)
	if err != nil {
		return nil, err
	}
	updater, err := ddb.NewAggregateUpdater(db.client, desc, db.options()...)
	if err != nil {
		return nil, err
	}
	entry.aggregates = ddb.NewRetryingUpdater(updater, db.retry, db.options()...)
	return entry.aggregates, nil
}

// EnsureTables creates the tables of every registered descriptor that do not exist yet.
func (db *DB) EnsureTables(ctx context.Context) error {
	if db.schema == nil {
		return storeerrors.NewValidationError("schema client", "client does not support table management")
	}
	manager, err := ddb.NewSchemaManager(db.schema, db.options()...)
	if err != nil {
		return err
	}

	descs := registry.Descriptors()
	for i := range descs {
		descs[i] = db.resolve(descs[i])
	}
	if err := manager.EnsureAll(ctx, descs...); err != nil {
		return err
	}
	db.logger.Info("tables ensured", zap.Int("tables", len(descs)), zap.String("prefix", db.prefix))
	return nil
}
