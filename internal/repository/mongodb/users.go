package mongodb

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password"`
}

func (d userDoc) toModel() *models.User {
	return &models.User{ID: d.ID.Hex(), Username: d.Username, PasswordHash: d.PasswordHash}
}

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

var _ repository.Authorization = (*UserStore)(nil)

func (s *UserStore) Create(ctx context.Context, username, hash string) (string, error) {
	doc := userDoc{ID: primitive.NewObjectID(), Username: username, PasswordHash: hash}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert user %q: %w", username, repository.ErrUsernameTaken)
		}
		return "", fmt.Errorf("insert user %q: %w", username, err)
	}
	return doc.ID.Hex(), nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

// GetByID returns (nil, nil) for ids that are not ObjectIDs; guest ids never are.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}
