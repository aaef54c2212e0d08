package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

// UserStore persists user documents.
type UserStore struct {
	db DatabaseProvider
}

func NewUserStore(db DatabaseProvider) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) col(ctx context.Context) (*mongo.Collection, error) {
	db, err := s.db.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(UsersCollection), nil
}

// Create inserts u and fills in its ID. A unique-index violation maps to DuplicateIdentity.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	col, err := s.col(ctx)
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now().UTC()
	res, err := col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.DuplicateIdentity(duplicateField(err))
		}
		return dbErr("insert user", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func duplicateField(err error) string {
	if strings.Contains(err.Error(), "email") {
		return "email"
	}
	return "username"
}

// Exists reports whether any user has field equal to value.
func (s *UserStore) Exists(ctx context.Context, field, value string) (bool, error) {
	col, err := s.col(ctx)
	if err != nil {
		return false, err
	}
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err = col.FindOne(ctx, bson.M{field: value}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, dbErr("find user", err)
	}
	return true, nil
}

// GetByEmail looks up a user by normalized email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// GetByID returns UserNotFound for a malformed or unknown id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.UserNotFound()
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.UserNotFound()
		}
		return nil, dbErr("find user", err)
	}
	return &u, nil
}

// Update applies $set with exactly the given fields and returns the updated user.
func (s *UserStore) Update(ctx context.Context, id string, set bson.M) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.UserNotFound()
	}
	col, err := s.col(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.UserNotFound()
		}
		return nil, dbErr("update user", err)
	}
	return &u, nil
}
