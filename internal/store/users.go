package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"taskcolab/internal/models"
)

func (m *Mongo) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*models.User, error) {
	user := &models.User{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}

	if _, err := m.database.Collection(CollectionUsers).InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := m.database.Collection(CollectionUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (m *Mongo) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := m.database.Collection(CollectionUsers).FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
