package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vaultledger/server/internal/apperr"
)

// Mongo bundles the collection-backed stores over one shared connection.
type Mongo struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

var (
	connectOnce sync.Once
	shared      *Mongo
	connectErr  error
)

// Connect dials the document store exactly once per process and memoizes the
// handle; concurrent first callers all receive the same connection. opTimeout
// bounds every individual store round-trip.
func Connect(ctx context.Context, uri, dbName string, opTimeout time.Duration) (*Mongo, error) {
	connectOnce.Do(func() {
		shared, connectErr = dial(ctx, uri, dbName, opTimeout)
	})
	return shared, connectErr
}

func dial(ctx context.Context, uri, dbName string, opTimeout time.Duration) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect document store: %w: %v", apperr.ErrUpstream, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping document store: %w: %v", apperr.ErrUpstream, err)
	}
	return &Mongo{
		client:  client,
		db:      client.Database(dbName),
		timeout: opTimeout,
	}, nil
}

// Close disconnects the shared client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Clients returns the clients collection store.
func (m *Mongo) Clients() ClientStore {
	return &mongoClients{coll: m.db.Collection("clients"), timeout: m.timeout}
}

// Invoices returns the invoices collection store.
func (m *Mongo) Invoices() InvoiceStore {
	return &mongoInvoices{coll: m.db.Collection("invoices"), timeout: m.timeout}
}

// Users returns the users collection store.
func (m *Mongo) Users() UserStore {
	return &mongoUsers{coll: m.db.Collection("users"), timeout: m.timeout}
}

// Settings returns the settings collection store.
func (m *Mongo) Settings() SettingsStore {
	return &mongoSettings{coll: m.db.Collection("settings"), timeout: m.timeout}
}

// opCtx derives a bounded context for a single store round-trip.
func opCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
