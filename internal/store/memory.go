package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

// MemoryAccountStore keeps accounts in insertion order for the lifetime of the process.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts []models.Account
	nextID   int64
	now      func() time.Time
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{nextID: 1, now: time.Now}
}

func (s *MemoryAccountStore) Create(_ context.Context, username, email, passwordHash string) (*models.Account, error) {
	email = utils.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return nil, fmt.Errorf("account %q: %w", email, utils.ErrConflict)
		}
	}

	a := models.Account{
		ID:        s.nextID,
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: s.now().UTC(),
	}
	s.nextID++
	s.accounts = append(s.accounts, a)
	return &a, nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	email = utils.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), nil
}

// MemoryTaskStore keeps tasks in insertion order. Ids are never reused, even after a delete.
type MemoryTaskStore struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int64
	now    func() time.Time
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{nextID: 1, now: time.Now}
}

func (s *MemoryTaskStore) Create(_ context.Context, ownerID int64, title, description string) (*models.Task, error) {
	title, err := utils.ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	t := models.Task{
		ID:          s.nextID,
		UserID:      ownerID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return &t, nil
}

func (s *MemoryTaskStore) ListByOwner(_ context.Context, ownerID int64, filter models.TaskFilter) ([]models.Task, error) {
	filter = filter.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Task, 0)
	skipped := 0
	for _, t := range s.tasks {
		if t.UserID != ownerID || !filter.Matches(t) {
			continue
		}
		if skipped < filter.Skip {
			skipped++
			continue
		}
		out = append(out, t)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// indexOf must be called with s.mu held.
func (s *MemoryTaskStore) indexOf(id, ownerID int64) int {
	for i, t := range s.tasks {
		if t.ID == id && t.UserID == ownerID {
			return i
		}
	}
	return -1
}

func (s *MemoryTaskStore) FindByIDAndOwner(_ context.Context, id, ownerID int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, ownerID)
	if i < 0 {
		return nil, nil
	}
	t := s.tasks[i]
	return &t, nil
}

// mutate applies fn to the owned task under the lock and refreshes UpdatedAt.
func (s *MemoryTaskStore) mutate(id, ownerID int64, fn func(t *models.Task) error) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, ownerID)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, utils.ErrNotFound)
	}

	t := s.tasks[i]
	if err := fn(&t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now().UTC()
	s.tasks[i] = t
	return &t, nil
}

func (s *MemoryTaskStore) Update(_ context.Context, id, ownerID int64, patch models.TaskPatch) (*models.Task, error) {
	return s.mutate(id, ownerID, func(t *models.Task) error {
		if patch.Title != nil {
			title, err := utils.ValidateTitle(*patch.Title)
			if err != nil {
				return err
			}
			t.Title = title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
		}
		return nil
	})
}

func (s *MemoryTaskStore) Toggle(_ context.Context, id, ownerID int64) (*models.Task, error) {
	return s.mutate(id, ownerID, func(t *models.Task) error {
		t.Completed = !t.Completed
		return nil
	})
}

func (s *MemoryTaskStore) SetAttachment(_ context.Context, id, ownerID int64, url string) (*models.Task, error) {
	return s.mutate(id, ownerID, func(t *models.Task) error {
		t.AttachmentURL = url
		return nil
	})
}

func (s *MemoryTaskStore) Delete(_ context.Context, id, ownerID int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, ownerID)
	if i < 0 {
		return nil, fmt.Errorf("task %d: %w", id, utils.ErrNotFound)
	}
	t := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return &t, nil
}

func (s *MemoryTaskStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks), nil
}

// NewMemoryStores returns process-local stores with no persistence.
func NewMemoryStores() *Stores {
	return &Stores{
		Accounts: NewMemoryAccountStore(),
		Tasks:    NewMemoryTaskStore(),
		Close:    func(context.Context) error { return nil },
	}
}
