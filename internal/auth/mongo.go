package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fertilizer-advisor/internal/domain"
)

// MongoStore implements Store with one document per account.
type MongoStore struct {
	collection *mongo.Collection
}

type userDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password"`
	Role           string    `bson:"role"`
	ResetTokenHash string    `bson:"resetPasswordToken,omitempty"`
	ResetExpiresAt time.Time `bson:"resetPasswordExpire,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// NewMongoStore returns a store over the users collection of db, creating
// its indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	coll := db.Collection("users")
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	return &MongoStore{collection: coll}, nil
}

func toUserDocument(u *User) userDocument {
	return userDocument{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role,
		ResetTokenHash: u.ResetTokenHash,
		ResetExpiresAt: u.ResetExpiresAt,
		CreatedAt:      u.CreatedAt.Truncate(time.Millisecond),
	}
}

func (d userDocument) toUser() *User {
	return &User{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Role:           d.Role,
		ResetTokenHash: d.ResetTokenHash,
		ResetExpiresAt: d.ResetExpiresAt,
		CreatedAt:      d.CreatedAt,
	}
}

// Create inserts a new account.
func (s *MongoStore) Create(ctx context.Context, user *User) error {
	if _, err := s.collection.InsertOne(ctx, toUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (*User, error) {
	var doc userDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toUser(), nil
}

// GetByID returns the account with id.
func (s *MongoStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetByEmail returns the account with email.
func (s *MongoStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// GetByResetToken returns the account holding tokenHash.
func (s *MongoStore) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, domain.ErrNotFound
	}
	return s.findOne(ctx, bson.D{{Key: "resetPasswordToken", Value: tokenHash}})
}

// Update stores the password and reset fields.
func (s *MongoStore) Update(ctx context.Context, user *User) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "password", Value: user.PasswordHash}}}}
	if user.ResetTokenHash == "" {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{
			{Key: "resetPasswordToken", Value: ""},
			{Key: "resetPasswordExpire", Value: ""},
		}})
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "password", Value: user.PasswordHash},
			{Key: "resetPasswordToken", Value: user.ResetTokenHash},
			{Key: "resetPasswordExpire", Value: user.ResetExpiresAt},
		}}}
	}

	result, err := s.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
