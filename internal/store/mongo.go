package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskcolab/pkg/logger"
)

// Collection names
const (
	CollectionUsers = "users"
	CollectionRooms = "rooms"
	CollectionTasks = "tasks"
)

// Named compound indexes backing the preferred query shapes. The live
// queries pin their server-side sort to these by hint, so a missing index
// surfaces as a distinct error class instead of a silent collection scan.
const (
	IndexRoomsMembersUpdatedAt = "members_1_updatedAt_-1"
	IndexTasksOrderCreatedAt   = "roomId_1_order_1_createdAt_-1"
)

// Mongo wraps the MongoDB client and database.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongo(uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB database %s", dbName)
	return &Mongo{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the compound indexes the preferred live queries
// hint at. Callers treat failure as non-fatal: without the indexes the
// live-query selectors degrade to their fallback shape on their own.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.database.Collection(CollectionUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = m.database.Collection(CollectionRooms).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "members", Value: 1}, {Key: "updatedAt", Value: -1}},
		Options: options.Index().SetName(IndexRoomsMembersUpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create rooms index: %w", err)
	}

	_, err = m.database.Collection(CollectionTasks).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}, {Key: "order", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName(IndexTasksOrderCreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create tasks index: %w", err)
	}
	return nil
}

// now is the single source of server-assigned timestamps. Values are
// normalized at this boundary (UTC, millisecond precision, matching BSON
// datetime resolution) so comparison logic never sees mixed shapes.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
