package mongostore

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Client holds the MongoDB connection shared by the saga, timeout, and
// subscription stores. A single Client is meant to be constructed once per
// process and handed to each store constructor.
type Client struct {
	cfg      *Config
	client   *mongo.Client
	database *mongo.Database
	logger   Logger
	clock    Clock
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the default SystemClock. Intended for tests.
func WithClock(clk Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// New validates cfg and builds a disconnected Client. Call Open before
// issuing any store operations.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Embedded documents decode to bson.M rather than the driver's default
	// of bson.D, which keeps the index-inspection code in saga_index.go simple
	// map lookups instead of linear scans over ordered elements.
	registry := bson.NewRegistryBuilder().
		RegisterTypeMapEntry(bsontype.EmbeddedDocument, reflect.TypeOf(bson.M{})).
		Build()

	mc, err := mongo.NewClient(options.Client().ApplyURI(cfg.URI).SetRegistry(registry))
	if err != nil {
		return nil, fmt.Errorf("mongostore: build client: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		client:   mc,
		database: mc.Database(cfg.Database),
		logger:   NopLogger,
		clock:    SystemClock,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open establishes the underlying connection.
func (c *Client) Open(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return fmt.Errorf("mongostore: connect: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongostore: disconnect: %w", err)
	}
	return nil
}

// Ready pings the primary to confirm the connection is usable.
func (c *Client) Ready(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongostore: ping: %w", err)
	}
	return nil
}

// Destroy drops the entire database. It exists for integration test
// teardown and is not meant for production use.
func (c *Client) Destroy(ctx context.Context) error {
	return c.database.Drop(ctx)
}

// collection returns a handle scoped to the configured database, defaulting
// to a majority, journaled write concern unless overridden by opts.
func (c *Client) collection(name string, opts ...*options.CollectionOptions) *mongo.Collection {
	merged := append([]*options.CollectionOptions{
		options.Collection().SetWriteConcern(writeconcern.New(writeconcern.WMajority(), writeconcern.J(true))),
	}, opts...)
	return c.database.Collection(name, merged...)
}
