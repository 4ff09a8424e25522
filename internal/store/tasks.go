package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskcolab/internal/models"
)

func (m *Mongo) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	ts := now()
	task.ID = uuid.NewString()
	task.CreatedAt = ts
	task.UpdatedAt = ts

	if _, err := m.database.Collection(CollectionTasks).InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (m *Mongo) GetTask(ctx context.Context, roomID, taskID string) (*models.Task, error) {
	var task models.Task
	err := m.database.Collection(CollectionTasks).
		FindOne(ctx, bson.M{"_id": taskID, "roomId": roomID}).
		Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (m *Mongo) UpdateTask(ctx context.Context, roomID, taskID string, req *models.UpdateTaskRequest) error {
	set := bson.M{"updatedAt": now()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.Urgency != nil {
		set["urgency"] = *req.Urgency
	}
	if req.Assignees != nil {
		set["assignees"] = req.Assignees
	}
	if req.Tags != nil {
		set["tags"] = req.Tags
	}
	if req.DueAt != nil {
		set["dueAt"] = req.DueAt.UTC()
	}

	res, err := m.database.Collection(CollectionTasks).UpdateOne(ctx,
		bson.M{"_id": taskID, "roomId": roomID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTaskDone flips the task to done, appends the "finished" tag as a set
// union and clears any reminder bookkeeping. The caller is responsible for
// cancelling the scheduled notification before this runs.
func (m *Mongo) MarkTaskDone(ctx context.Context, roomID, taskID string) error {
	res, err := m.database.Collection(CollectionTasks).UpdateOne(ctx,
		bson.M{"_id": taskID, "roomId": roomID},
		bson.M{
			"$set": bson.M{
				"status":    models.StatusDone,
				"updatedAt": now(),
			},
			"$addToSet": bson.M{"tags": models.TagFinished},
			"$unset":    bson.M{"notificationId": "", "reminderAt": ""},
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

func (m *Mongo) DeleteTask(ctx context.Context, roomID, taskID string) error {
	res, err := m.database.Collection(CollectionTasks).
		DeleteOne(ctx, bson.M{"_id": taskID, "roomId": roomID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListTasks(ctx context.Context, roomID string) ([]models.Task, error) {
	cursor, err := m.database.Collection(CollectionTasks).Find(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxTaskOrder returns the highest manual order value in the room, 0 when
// the room has no tasks yet.
func (m *Mongo) MaxTaskOrder(ctx context.Context, roomID string) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})

	var task models.Task
	err := m.database.Collection(CollectionTasks).FindOne(ctx, bson.M{"roomId": roomID}, opts).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return task.Order, nil
}

func (m *Mongo) SetTaskOrder(ctx context.Context, roomID, taskID string, order int) error {
	res, err := m.database.Collection(CollectionTasks).UpdateOne(ctx,
		bson.M{"_id": taskID, "roomId": roomID},
		bson.M{"$set": bson.M{"order": order, "updatedAt": now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) SetTaskReminder(ctx context.Context, roomID, taskID string, reminderAt time.Time, notificationID string) error {
	res, err := m.database.Collection(CollectionTasks).UpdateOne(ctx,
		bson.M{"_id": taskID, "roomId": roomID},
		bson.M{"$set": bson.M{
			"reminderAt":     reminderAt.UTC(),
			"notificationId": notificationID,
			"updatedAt":      now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
