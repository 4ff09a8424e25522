package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskcolab/internal/models"
	"taskcolab/internal/ranking"
	"taskcolab/internal/reminders"
	"taskcolab/internal/store"
	"taskcolab/pkg/logger"
)

// ReminderChannelID names the delivery channel task reminders fire on.
const ReminderChannelID = "due-reminders"

type TaskService struct {
	store     store.Store
	scheduler reminders.Scheduler
}

func NewTaskService(s store.Store, scheduler reminders.Scheduler) *TaskService {
	ts := &TaskService{store: s, scheduler: scheduler}
	if scheduler != nil {
		scheduler.EnsureChannel(ReminderChannelID, reminders.ChannelConfig{Name: "Due Reminders"})
	}
	return ts
}

// CreateTask creates a task in the room and, when a due date and reminder
// offset are given and the computed reminder time is still in the future,
// schedules a one-shot reminder and records its handle on the task. A
// reminder time already in the past is skipped silently.
func (s *TaskService) CreateTask(ctx context.Context, roomID, uid string, req *models.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	assignees := req.Assignees
	if len(assignees) == 0 {
		assignees = []string{uid}
	}

	tags := req.Tags
	if len(tags) == 0 {
		tags = []string{"todo"}
	}

	status := models.StatusTodo
	for _, t := range tags {
		if t == models.TagFinished {
			status = models.StatusDone
			break
		}
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}

	maxOrder, err := s.store.MaxTaskOrder(ctx, roomID)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		RoomID:      roomID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Assignees:   assignees,
		Status:      status,
		Urgency:     urgency,
		Tags:        tags,
		DueAt:       req.DueAt,
		Order:       maxOrder + 1,
		CreatedBy:   uid,
	}

	task, err = s.store.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}

	if task.DueAt != nil && req.ReminderOffsetMin != nil {
		offset := reminders.OffsetFromMinutes(*req.ReminderOffsetMin)
		if remindAt, ok := reminders.ReminderAt(*task.DueAt, offset, time.Now()); ok {
			handle, err := s.scheduler.ScheduleOneShot(remindAt, ReminderChannelID, reminders.Payload{
				TaskID: task.ID,
				RoomID: roomID,
				Title:  "Task Reminder",
				Body:   fmt.Sprintf("%s is due at %s", task.Title, task.DueAt.Format(time.RFC1123)),
			})
			if err != nil {
				return nil, fmt.Errorf("task created but reminder scheduling failed: %w", err)
			}
			if err := s.store.SetTaskReminder(ctx, roomID, task.ID, remindAt, handle); err != nil {
				reminders.CancelQuietly(s.scheduler, &handle)
				return nil, err
			}
			at := remindAt
			task.ReminderAt = &at
			task.NotificationID = &handle
		}
	}

	return task, nil
}

// MarkDone releases any outstanding reminder first, then flips the task to
// done. Cancellation failure is logged, never surfaced; marking an
// already-done task done again is harmless.
func (s *TaskService) MarkDone(ctx context.Context, roomID, taskID string) error {
	task, err := s.store.GetTask(ctx, roomID, taskID)
	if err != nil {
		return err
	}

	reminders.CancelQuietly(s.scheduler, task.NotificationID)
	return s.store.MarkTaskDone(ctx, roomID, taskID)
}

// DeleteTask releases any outstanding reminder, then deletes. Deletion is
// immediate and irreversible.
func (s *TaskService) DeleteTask(ctx context.Context, roomID, taskID string) error {
	task, err := s.store.GetTask(ctx, roomID, taskID)
	if err != nil {
		return err
	}

	reminders.CancelQuietly(s.scheduler, task.NotificationID)
	return s.store.DeleteTask(ctx, roomID, taskID)
}

func (s *TaskService) UpdateTask(ctx context.Context, roomID, taskID string, req *models.UpdateTaskRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	return s.store.UpdateTask(ctx, roomID, taskID, req)
}

// ListTasks returns the room's tasks in display order for the viewer,
// optionally restricted to the viewer's own tasks. The filter runs after
// ranking and does not change relative order.
func (s *TaskService) ListTasks(ctx context.Context, roomID, viewerID string, onlyMine bool) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, roomID)
	if err != nil {
		return nil, err
	}

	ranked := ranking.Ranked(tasks, viewerID, time.Now())
	if onlyMine {
		ranked = ranking.FilterAssignedTo(ranked, viewerID)
	}
	return ranked, nil
}

// Reorder writes through a manual ordering: position i gets order i+1.
// Order values are assigned independently per task, so a concurrent
// creation can interleave; the next snapshot delivery settles the view.
func (s *TaskService) Reorder(ctx context.Context, roomID string, taskIDs []string) error {
	for i, id := range taskIDs {
		if err := s.store.SetTaskOrder(ctx, roomID, id, i+1); err != nil {
			logger.Error("Reorder failed at task %s: %v", id, err)
			return err
		}
	}
	return nil
}
