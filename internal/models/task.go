package models

import "time"

// Task is a to-do item owned by exactly one account.
type Task struct {
	ID            int64     `bson:"_id" json:"id"`
	UserID        int64     `bson:"user_id" json:"user_id"`
	Title         string    `bson:"title" json:"title"`
	Description   string    `bson:"description" json:"description"`
	Completed     bool      `bson:"completed" json:"completed"`
	AttachmentURL string    `bson:"attachment_url,omitempty" json:"attachment_url,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// TaskPatch carries a partial update. A nil field is left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// TaskFilter narrows ListByOwner results.
type TaskFilter struct {
	Completed *bool
	Skip      int
	Limit     int
}

const (
	DefaultTaskLimit = 100
	MaxTaskLimit     = 1000
)

// Normalize clamps Skip and Limit to their accepted ranges.
func (f TaskFilter) Normalize() TaskFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultTaskLimit
	}
	if f.Limit > MaxTaskLimit {
		f.Limit = MaxTaskLimit
	}
	return f
}

// Matches reports whether t passes the completion filter.
func (f TaskFilter) Matches(t Task) bool {
	return f.Completed == nil || *f.Completed == t.Completed
}
