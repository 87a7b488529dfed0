package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// NewMongoClient connects to uri and waits for the primary to answer a ping,
// retrying with exponential backoff.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			slog.Warn("mongo ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return client, nil
}

func openMongo(ctx context.Context, uri, database string) (*Store, error) {
	client, err := NewMongoClient(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(database)

	users := NewMongoUserRepository(db)
	tasks := NewMongoTaskRepository(db)
	for _, ensure := range []func(context.Context) error{users.EnsureIndexes, tasks.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	return &Store{
		Users:  users,
		Tasks:  tasks,
		Health: &mongoHealth{db: db},
		close:  client.Disconnect,
	}, nil
}

type mongoHealth struct {
	db *mongo.Database
}

func (h *mongoHealth) Ping(ctx context.Context) error {
	return h.db.Client().Ping(ctx, readpref.Primary())
}

func (h *mongoHealth) Describe(ctx context.Context) (Status, error) {
	names, err := h.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return Status{}, err
	}
	return Status{Driver: "mongo", Database: h.db.Name(), Collections: names}, nil
}
