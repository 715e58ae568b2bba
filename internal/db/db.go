package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chirpnet/internal/constants"
)

// Connect opens a client for the given connection string and pings the
// deployment so a bad URI fails at startup rather than on first request.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return client, nil
}

func Disconnect(ctx context.Context, client *mongo.Client) error {
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the atomic update paths depend on.
// The unique indexes on email and username backstop the registration
// pre-checks; the unique index on the canonical participants array is what
// collapses concurrent conversation creates to a single document.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := database.Collection(constants.USERS_COLLECTION).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}

	_, err = database.Collection(constants.CONVERSATIONS_COLLECTION).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("creating conversation index: %w", err)
	}

	_, err = database.Collection(constants.MESSAGES_COLLECTION).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating message index: %w", err)
	}

	_, err = database.Collection(constants.COMMENTS_COLLECTION).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating comment index: %w", err)
	}

	_, err = database.Collection(constants.POSTS_COLLECTION).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating post index: %w", err)
	}

	return nil
}
