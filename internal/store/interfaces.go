package store

import (
	"context"
	"time"

	"taskcolab/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, uid string) (*models.User, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, name, code, createdBy string) (*models.Room, error)
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	AddMember(ctx context.Context, roomID, uid string) error
	ListRoomsForUser(ctx context.Context, uid string) ([]models.Room, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	GetTask(ctx context.Context, roomID, taskID string) (*models.Task, error)
	UpdateTask(ctx context.Context, roomID, taskID string, req *models.UpdateTaskRequest) error
	MarkTaskDone(ctx context.Context, roomID, taskID string) error
	DeleteTask(ctx context.Context, roomID, taskID string) error
	ListTasks(ctx context.Context, roomID string) ([]models.Task, error)
	MaxTaskOrder(ctx context.Context, roomID string) (int, error)
	SetTaskOrder(ctx context.Context, roomID, taskID string, order int) error
	SetTaskReminder(ctx context.Context, roomID, taskID string, reminderAt time.Time, notificationID string) error
}

type Store interface {
	UserRepository
	RoomRepository
	TaskRepository
	Close() error
}
