// Package store holds the account and task stores and their backends.
//
// Every task operation is scoped by both task id and owner id in a single lookup,
// so a caller can never observe whether another account's task exists.
package store

import (
	"context"

	"github.com/AnshRaj112/todo-backend/internal/models"
)

// AccountStore persists registered accounts.
type AccountStore interface {
	// Create fails with utils.ErrConflict when the email is already registered.
	Create(ctx context.Context, username, email, passwordHash string) (*models.Account, error)
	// FindByEmail returns nil, nil when no account matches.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// FindByID returns nil, nil when no account matches.
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	Count(ctx context.Context) (int, error)
}

// TaskStore persists tasks. Update, Delete, Toggle and SetAttachment fail with
// utils.ErrNotFound when no task with that id belongs to ownerID.
type TaskStore interface {
	Create(ctx context.Context, ownerID int64, title, description string) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID int64, filter models.TaskFilter) ([]models.Task, error)
	// FindByIDAndOwner returns nil, nil when no task matches.
	FindByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Task, error)
	Update(ctx context.Context, id, ownerID int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id, ownerID int64) (*models.Task, error)
	Toggle(ctx context.Context, id, ownerID int64) (*models.Task, error)
	SetAttachment(ctx context.Context, id, ownerID int64, url string) (*models.Task, error)
	Count(ctx context.Context) (int, error)
}

// Stores bundles the two stores a backend provides.
type Stores struct {
	Accounts AccountStore
	Tasks    TaskStore
	Close    func(ctx context.Context) error
}
