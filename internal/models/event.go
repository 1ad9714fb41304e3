package models

import "time"

// TaskEventType names the mutation that produced a TaskEvent.
type TaskEventType string

const (
	TaskCreated TaskEventType = "todo.created"
	TaskUpdated TaskEventType = "todo.updated"
	TaskDeleted TaskEventType = "todo.deleted"
	TaskToggled TaskEventType = "todo.toggled"
)

// TaskEvent is pushed to the owner's live connections after a task changes.
type TaskEvent struct {
	Type      TaskEventType `json:"type"`
	UserID    int64         `json:"user_id"`
	Task      *Task         `json:"todo,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
