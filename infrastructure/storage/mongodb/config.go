// Package mongodb provides a MongoDB-backed run store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/groundwork/domain/run"
)

// Config holds MongoDB connection configuration.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name.
	Database string

	// QueryTimeout bounds individual store operations.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:          "mongodb://localhost:27017",
		Database:     "groundwork",
		QueryTimeout: 10 * time.Second,
	}
}

// Client wraps a MongoDB client with its configuration.
type Client struct {
	client *mongo.Client
	config Config
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		cfg.URI = DefaultConfig().URI
	}
	if cfg.Database == "" {
		cfg.Database = DefaultConfig().Database
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Join(run.ErrConnectionFailed, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Join(run.ErrConnectionFailed, err)
	}

	return &Client{client: client, config: cfg}, nil
}

// Collection returns a handle to the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

// Disconnect closes the underlying connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
