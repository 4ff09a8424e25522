package models

import "time"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// TagFinished is synonymous with StatusDone and is appended when a task is
// marked done.
const TagFinished = "finished"

// Task belongs to exactly one room. NotificationID is set iff a reminder
// was actually scheduled (ReminderAt present and in the future at schedule
// time); deleting a task or marking it done releases the handle first.
type Task struct {
	ID             string     `bson:"_id" json:"id"`
	RoomID         string     `bson:"roomId" json:"room_id"`
	Title          string     `bson:"title" json:"title"`
	Description    string     `bson:"description,omitempty" json:"description,omitempty"`
	Assignees      []string   `bson:"assignees" json:"assignees"`
	Status         Status     `bson:"status" json:"status"`
	Urgency        Urgency    `bson:"urgency,omitempty" json:"urgency,omitempty"`
	Tags           []string   `bson:"tags" json:"tags"`
	DueAt          *time.Time `bson:"dueAt,omitempty" json:"due_at,omitempty"`
	ReminderAt     *time.Time `bson:"reminderAt,omitempty" json:"reminder_at,omitempty"`
	NotificationID *string    `bson:"notificationId,omitempty" json:"notification_id,omitempty"`
	Order          int        `bson:"order" json:"order"`
	CreatedBy      string     `bson:"createdBy" json:"created_by"`
	CreatedAt      time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updated_at"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignees   []string   `json:"assignees"`
	Urgency     Urgency    `json:"urgency"`
	Tags        []string   `json:"tags"`
	DueAt       *time.Time `json:"due_at"`
	// ReminderOffsetMin is minutes before DueAt; nil or 0 means no reminder.
	ReminderOffsetMin *int `json:"reminder_offset_min"`
}

// UpdateTaskRequest carries a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	Urgency     *Urgency   `json:"urgency"`
	Assignees   []string   `json:"assignees"`
	Tags        []string   `json:"tags"`
	DueAt       *time.Time `json:"due_at"`
}

type ReorderRequest struct {
	// TaskIDs in the desired display order; positions are written back 1..n.
	TaskIDs []string `json:"task_ids"`
}
