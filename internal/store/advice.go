package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/finance-advisor/internal/models"
)

// AdviceStore persists generated financial advice.
type AdviceStore struct {
	db DatabaseProvider
}

func NewAdviceStore(db DatabaseProvider) *AdviceStore {
	return &AdviceStore{db: db}
}

func (s *AdviceStore) col(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(AdviceCollection), nil
}

func (s *AdviceStore) Insert(ctx context.Context, a *models.FinancialAdvice) error {
	col, err := s.col(ctx)
	if err != nil {
		return err
	}
	a.CreatedAt = time.Now().UTC()
	res, err := col.InsertOne(ctx, a)
	if err != nil {
		return dbErr("insert advice", err)
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Recent returns the user's newest advice records, most recent first.
func (s *AdviceStore) Recent(ctx context.Context, userID string, limit int64) ([]models.FinancialAdvice, error) {
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, dbErr("find advice", err)
	}
	defer cur.Close(ctx)

	records := []models.FinancialAdvice{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, dbErr("decode advice", err)
	}
	return records, nil
}
