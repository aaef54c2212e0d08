package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/ayush/finance-advisor/internal/apperror"
)

// Collection names.
const (
	UsersCollection  = "users"
	ChatsCollection  = "chats"
	AdviceCollection = "financial_advice"
	GoalsCollection  = "goals"
)

// DatabaseProvider resolves the database handle for a single operation.
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// MongoDialer returns a Dialer that connects with the service's pool settings
// and pings the primary before handing the client out.
func MongoDialer(uri string) Dialer[*mongo.Client] {
	return func(ctx context.Context) (*mongo.Client, error) {
		opts := options.Client().
			ApplyURI(uri).
			SetMaxPoolSize(10).
			SetMinPoolSize(5).
			SetMaxConnIdleTime(10 * time.Second).
			SetServerSelectionTimeout(5 * time.Second).
			SetConnectTimeout(5 * time.Second).
			SetSocketTimeout(5 * time.Second).
			SetRetryWrites(true).
			SetWriteConcern(writeconcern.Majority())

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		return client, nil
	}
}

func CloseMongo(ctx context.Context, client *mongo.Client) error {
	return client.Disconnect(ctx)
}

// Mongo hands out the named database through a ConnCache.
type Mongo struct {
	cache *ConnCache[*mongo.Client]
	name  string
}

func NewMongo(cache *ConnCache[*mongo.Client], name string) *Mongo {
	return &Mongo{cache: cache, name: name}
}

func (m *Mongo) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := m.cache.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.name), nil
}

// Ping acquires the connection and pings the primary, reporting how long it took.
func (m *Mongo) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	client, err := m.cache.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return 0, dbErr("ping", err)
	}
	return time.Since(start), nil
}

func (m *Mongo) Stats() ConnStats {
	return m.cache.Stats()
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, p DatabaseProvider, logger *slog.Logger) error {
	db, err := p.Database(ctx)
	if err != nil {
		return err
	}

	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ChatsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AdviceCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		GoalsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}

	var errs []error
	for coll, models := range specs {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s indexes: %w", coll, err))
			continue
		}
		logger.Debug("indexes ensured", slog.String("collection", coll), slog.Any("indexes", names))
	}
	return errors.Join(errs...)
}

// dbErr tags a driver failure as an unavailable database.
func dbErr(op string, err error) error {
	return apperror.Unavailable("database", fmt.Errorf("mongo %s: %w", op, err))
}
