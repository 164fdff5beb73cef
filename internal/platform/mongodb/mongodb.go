// Package mongodb provides MongoDB connection management.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client wraps a connected MongoDB client and the database it serves.
type Client struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// New connects to uri and verifies the primary answers.
func New(ctx context.Context, uri, database string) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI is empty")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database name is empty")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	slog.Info("mongo connected", "database", database)
	return &Client{Client: client, Database: client.Database(database)}, nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}

// HealthCheck verifies the primary is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx, readpref.Primary())
}
