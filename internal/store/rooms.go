package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskcolab/internal/models"
)

func (m *Mongo) CreateRoom(ctx context.Context, name, code, createdBy string) (*models.Room, error) {
	ts := now()
	room := &models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		CreatedBy: createdBy,
		Members:   []string{createdBy},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if _, err := m.database.Collection(CollectionRooms).InsertOne(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (m *Mongo) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := m.database.Collection(CollectionRooms).FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (m *Mongo) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := m.database.Collection(CollectionRooms).FindOne(ctx, bson.M{"code": code}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// AddMember appends uid to the member set. $addToSet keeps concurrent joins
// a union, never a lost update.
func (m *Mongo) AddMember(ctx context.Context, roomID, uid string) error {
	res, err := m.database.Collection(CollectionRooms).UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{
			"$addToSet": bson.M{"members": uid},
			"$set":      bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListRoomsForUser(ctx context.Context, uid string) ([]models.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := m.database.Collection(CollectionRooms).Find(ctx, bson.M{"members": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []models.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}
