package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

// GoalStore handles goal CRUD. Every query is scoped to the owning user.
type GoalStore struct {
	db DatabaseProvider
}

func NewGoalStore(db DatabaseProvider) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) col(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(GoalsCollection), nil
}

func (s *GoalStore) Insert(ctx context.Context, g *models.Goal) error {
	col, err := s.col(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	res, err := col.InsertOne(ctx, g)
	if err != nil {
		return dbErr("insert goal", err)
	}
	g.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *GoalStore) ListByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "target_date", Value: 1}})
	cur, err := col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, dbErr("find goals", err)
	}
	defer cur.Close(ctx)

	goals := []models.Goal{}
	if err := cur.All(ctx, &goals); err != nil {
		return nil, dbErr("decode goals", err)
	}
	return goals, nil
}

func (s *GoalStore) Get(ctx context.Context, userID, id string) (*models.Goal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("Goal")
	}
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	var g models.Goal
	if err := col.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Goal")
		}
		return nil, dbErr("find goal", err)
	}
	return &g, nil
}

// Update sets the given fields and returns the updated goal.
func (s *GoalStore) Update(ctx context.Context, userID, id string, set bson.M) (*models.Goal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("Goal")
	}
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var g models.Goal
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": oid, "user_id": userID}, bson.M{"$set": set}, opts).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Goal")
		}
		return nil, dbErr("update goal", err)
	}
	return &g, nil
}

func (s *GoalStore) Delete(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NotFound("Goal")
	}
	col, err := s.col(ctx)
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return dbErr("delete goal", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Goal")
	}
	return nil
}
