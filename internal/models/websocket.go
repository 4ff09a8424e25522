package models

type EventType string

const (
	EventTypeTaskList EventType = "task_list"
	EventTypeRoomList EventType = "room_list"
	EventTypeReminder EventType = "reminder"
	EventTypeError    EventType = "error"
)

// WebSocketEvent is the single envelope pushed to clients. Task and room
// snapshots are wholesale replacements of whatever the client holds.
type WebSocketEvent struct {
	Type      EventType `json:"type"`
	Tasks     []Task    `json:"tasks,omitempty"`
	Rooms     []Room    `json:"rooms,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}
