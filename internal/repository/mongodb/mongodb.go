// Package mongodb implements the user and message stores on MongoDB, the
// document store the chat was first deployed on.
package mongodb

import (
	"context"
	"fmt"

	"realtime_chat/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"
)

// Connect dials uri and verifies the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique username index and the message timestamp index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users.username index: %w", err)
	}
	_, err = db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create messages.timestamp index: %w", err)
	}
	return nil
}

// NewRepository wires the MongoDB stores into the repository aggregate.
func NewRepository(db *mongo.Database, guests repository.GuestRegistry) *repository.Repository {
	users := NewUserStore(db)
	return &repository.Repository{
		Auth:     users,
		Messages: NewMessageStore(db),
		Guests:   guests,
	}
}
