package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/finance-advisor/internal/models"
)

// ChatStore keeps one transcript document per user.
type ChatStore struct {
	db DatabaseProvider
}

func NewChatStore(db DatabaseProvider) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) col(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(ChatsCollection), nil
}

// Append pushes msgs onto the end of the user's transcript, creating it if absent.
func (s *ChatStore) Append(ctx context.Context, userID string, msgs ...models.Message) error {
	col, err := s.col(ctx)
	if err != nil {
		return err
	}
	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": msgs}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	_, err = col.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return dbErr("append chat", err)
	}
	return nil
}

// Recent returns the last n messages in conversation order.
func (s *ChatStore) Recent(ctx context.Context, userID string, n int) ([]models.Message, error) {
	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -n}})
	return s.messages(ctx, userID, opts)
}

// History returns the whole transcript; a user without one gets an empty slice.
func (s *ChatStore) History(ctx context.Context, userID string) ([]models.Message, error) {
	return s.messages(ctx, userID, options.FindOne())
}

func (s *ChatStore) messages(ctx context.Context, userID string, opts *options.FindOneOptions) ([]models.Message, error) {
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	var chat models.Chat
	if err := col.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&chat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []models.Message{}, nil
		}
		return nil, dbErr("find chat", err)
	}
	if chat.Messages == nil {
		return []models.Message{}, nil
	}
	return chat.Messages, nil
}

// DropOldest removes the first n messages of the transcript, keeping any turn
// appended after they were read. It reports whether a transcript existed.
func (s *ChatStore) DropOldest(ctx context.Context, userID string, n int) (bool, error) {
	col, err := s.col(ctx)
	if err != nil {
		return false, err
	}
	messages := bson.M{"$ifNull": bson.A{"$messages", bson.A{}}}
	remaining := bson.M{"$max": bson.A{bson.M{"$subtract": bson.A{bson.M{"$size": messages}, n}}, 1}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "messages", Value: bson.M{"$slice": bson.A{messages, n, remaining}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	res, err := col.UpdateOne(ctx, bson.M{"user_id": userID}, pipeline)
	if err != nil {
		return false, dbErr("trim chat", err)
	}
	return res.MatchedCount > 0, nil
}
