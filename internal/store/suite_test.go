package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// runStoreSuite exercises the behaviour every backend must share.
// newStores must return empty stores.
func runStoreSuite(t *testing.T, newStores func(t *testing.T) *Stores) {
	ctx := context.Background()

	t.Run("account create and lookup", func(t *testing.T) {
		s := newStores(t)

		a, err := s.Accounts.Create(ctx, "Ann", "Ann@X.com", "hash")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if a.ID <= 0 || a.Email != "ann@x.com" || a.Username != "Ann" || a.CreatedAt.IsZero() {
			t.Errorf("unexpected account: %+v", a)
		}

		byEmail, err := s.Accounts.FindByEmail(ctx, "ann@x.com")
		if err != nil || byEmail == nil || byEmail.ID != a.ID {
			t.Errorf("FindByEmail = %+v, %v", byEmail, err)
		}
		byID, err := s.Accounts.FindByID(ctx, a.ID)
		if err != nil || byID == nil || byID.Password != "hash" {
			t.Errorf("FindByID = %+v, %v", byID, err)
		}

		missing, err := s.Accounts.FindByEmail(ctx, "nobody@x.com")
		if err != nil || missing != nil {
			t.Errorf("FindByEmail(missing) = %+v, %v; want nil, nil", missing, err)
		}
		missing, err = s.Accounts.FindByID(ctx, a.ID+1000)
		if err != nil || missing != nil {
			t.Errorf("FindByID(missing) = %+v, %v; want nil, nil", missing, err)
		}
	})

	t.Run("duplicate contact conflicts", func(t *testing.T) {
		s := newStores(t)

		if _, err := s.Accounts.Create(ctx, "Ann", "ann@x.com", "h1"); err != nil {
			t.Fatalf("first Create failed: %v", err)
		}
		_, err := s.Accounts.Create(ctx, "Other", "ANN@x.com", "h2")
		if !errors.Is(err, utils.ErrConflict) {
			t.Fatalf("second Create error = %v, want ErrConflict", err)
		}
		if n, _ := s.Accounts.Count(ctx); n != 1 {
			t.Errorf("Count = %d, want 1", n)
		}
	})

	t.Run("task create validates and trims title", func(t *testing.T) {
		s := newStores(t)

		if _, err := s.Tasks.Create(ctx, 1, "   ", ""); !errors.Is(err, utils.ErrValidation) {
			t.Fatalf("blank title error = %v, want ErrValidation", err)
		}

		task, err := s.Tasks.Create(ctx, 1, "  Buy milk ", "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if task.Title != "Buy milk" || task.Description != "" || task.Completed {
			t.Errorf("unexpected task: %+v", task)
		}
		if task.UserID != 1 || task.CreatedAt.IsZero() || !task.CreatedAt.Equal(task.UpdatedAt) {
			t.Errorf("unexpected ownership/timestamps: %+v", task)
		}
	})

	t.Run("ids are monotonic and not reused", func(t *testing.T) {
		s := newStores(t)

		a, _ := s.Tasks.Create(ctx, 1, "a", "")
		b, _ := s.Tasks.Create(ctx, 1, "b", "")
		if b.ID <= a.ID {
			t.Fatalf("ids not increasing: %d then %d", a.ID, b.ID)
		}
		if _, err := s.Tasks.Delete(ctx, b.ID, 1); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		c, _ := s.Tasks.Create(ctx, 1, "c", "")
		if c.ID <= b.ID {
			t.Errorf("id %d reused or decreased after delete of %d", c.ID, b.ID)
		}
	})

	t.Run("ownership isolation", func(t *testing.T) {
		s := newStores(t)
		const owner, other = int64(1), int64(2)

		task, _ := s.Tasks.Create(ctx, owner, "private", "")

		if got, err := s.Tasks.FindByIDAndOwner(ctx, task.ID, other); err != nil || got != nil {
			t.Errorf("FindByIDAndOwner(other) = %+v, %v; want nil, nil", got, err)
		}
		if list, _ := s.Tasks.ListByOwner(ctx, other, models.TaskFilter{}); len(list) != 0 {
			t.Errorf("ListByOwner(other) = %d tasks, want 0", len(list))
		}
		if _, err := s.Tasks.Update(ctx, task.ID, other, models.TaskPatch{Title: strPtr("x")}); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("Update(other) error = %v, want ErrNotFound", err)
		}
		if _, err := s.Tasks.Toggle(ctx, task.ID, other); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("Toggle(other) error = %v, want ErrNotFound", err)
		}
		if _, err := s.Tasks.Delete(ctx, task.ID, other); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("Delete(other) error = %v, want ErrNotFound", err)
		}
		if _, err := s.Tasks.SetAttachment(ctx, task.ID, other, "u"); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("SetAttachment(other) error = %v, want ErrNotFound", err)
		}

		got, err := s.Tasks.FindByIDAndOwner(ctx, task.ID, owner)
		if err != nil || got == nil || got.Title != "private" || got.Completed {
			t.Errorf("owner's task changed or vanished: %+v, %v", got, err)
		}
	})

	t.Run("update applies only present fields", func(t *testing.T) {
		s := newStores(t)
		task, _ := s.Tasks.Create(ctx, 1, "title", "desc")

		updated, err := s.Tasks.Update(ctx, task.ID, 1, models.TaskPatch{Completed: boolPtr(true)})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Title != "title" || updated.Description != "desc" || !updated.Completed {
			t.Errorf("unexpected update result: %+v", updated)
		}

		updated, err = s.Tasks.Update(ctx, task.ID, 1, models.TaskPatch{Title: strPtr("  new "), Description: strPtr("")})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Title != "new" || updated.Description != "" || !updated.Completed {
			t.Errorf("unexpected update result: %+v", updated)
		}

		if _, err := s.Tasks.Update(ctx, task.ID, 1, models.TaskPatch{Title: strPtr(" ")}); !errors.Is(err, utils.ErrValidation) {
			t.Errorf("blank title update error = %v, want ErrValidation", err)
		}
		if _, err := s.Tasks.Update(ctx, task.ID+1000, 1, models.TaskPatch{}); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("toggle twice restores completion", func(t *testing.T) {
		s := newStores(t)
		task, _ := s.Tasks.Create(ctx, 1, "t", "")

		once, err := s.Tasks.Toggle(ctx, task.ID, 1)
		if err != nil || !once.Completed {
			t.Fatalf("first Toggle = %+v, %v", once, err)
		}
		twice, err := s.Tasks.Toggle(ctx, task.ID, 1)
		if err != nil || twice.Completed != task.Completed {
			t.Fatalf("second Toggle = %+v, %v", twice, err)
		}
	})

	t.Run("delete returns the removed task", func(t *testing.T) {
		s := newStores(t)
		task, _ := s.Tasks.Create(ctx, 1, "gone", "")

		deleted, err := s.Tasks.Delete(ctx, task.ID, 1)
		if err != nil || deleted.ID != task.ID || deleted.Title != "gone" {
			t.Fatalf("Delete = %+v, %v", deleted, err)
		}
		if got, _ := s.Tasks.FindByIDAndOwner(ctx, task.ID, 1); got != nil {
			t.Errorf("task still present after delete: %+v", got)
		}
		if _, err := s.Tasks.Delete(ctx, task.ID, 1); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("second Delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list filter and pagination", func(t *testing.T) {
		s := newStores(t)
		var ids []int64
		for _, title := range []string{"a", "b", "c", "d"} {
			task, _ := s.Tasks.Create(ctx, 7, title, "")
			ids = append(ids, task.ID)
		}
		s.Tasks.Toggle(ctx, ids[1], 7)
		s.Tasks.Toggle(ctx, ids[3], 7)
		s.Tasks.Create(ctx, 8, "not mine", "")

		all, _ := s.Tasks.ListByOwner(ctx, 7, models.TaskFilter{})
		if len(all) != 4 || all[0].Title != "a" || all[3].Title != "d" {
			t.Fatalf("ListByOwner = %+v", all)
		}

		done, _ := s.Tasks.ListByOwner(ctx, 7, models.TaskFilter{Completed: boolPtr(true)})
		if len(done) != 2 || done[0].Title != "b" || done[1].Title != "d" {
			t.Errorf("completed filter = %+v", done)
		}

		page, _ := s.Tasks.ListByOwner(ctx, 7, models.TaskFilter{Skip: 1, Limit: 2})
		if len(page) != 2 || page[0].Title != "b" || page[1].Title != "c" {
			t.Errorf("page = %+v", page)
		}

		if n, _ := s.Tasks.Count(ctx); n != 5 {
			t.Errorf("Count = %d, want 5", n)
		}
	})

	t.Run("attachment url is stored", func(t *testing.T) {
		s := newStores(t)
		task, _ := s.Tasks.Create(ctx, 1, "t", "")

		got, err := s.Tasks.SetAttachment(ctx, task.ID, 1, "https://cdn.example/f.png")
		if err != nil || got.AttachmentURL != "https://cdn.example/f.png" {
			t.Fatalf("SetAttachment = %+v, %v", got, err)
		}
	})

	t.Run("concurrent registration of one contact", func(t *testing.T) {
		s := newStores(t)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Accounts.Create(ctx, "Ann", "race@x.com", "h")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		created := 0
		for err := range errs {
			switch {
			case err == nil:
				created++
			case !errors.Is(err, utils.ErrConflict):
				t.Errorf("unexpected error: %v", err)
			}
		}
		if created != 1 {
			t.Errorf("%d accounts created, want exactly 1", created)
		}
	})
}
