package mongo

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "pronounce"
)

// Config holds the MongoDB connection settings
type Config struct {
	URI      string
	Database string
}

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	uri := config.URI
	if uri == "" {
		uri = defaultURI
		logger.Info("Using default MongoDB URI", zap.String("uri", uri))
	}

	dbName := config.Database
	if dbName == "" {
		dbName = defaultDatabase
		logger.Info("Using default database", zap.String("database", dbName))
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Annotate(err, "connecting to MongoDB")
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Annotate(err, "pinging MongoDB")
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", dbName))

	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// EnsureIndexes creates the indexes every repository relies on
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context, *mongo.Database) error{
		ensureFeedbackIndexes,
		ensureSentenceIndexes,
		ensureOutboxIndexes,
	} {
		if err := ensure(ctx, c.Database); err != nil {
			return err
		}
	}
	c.logger.Info("MongoDB indexes ensured")
	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
