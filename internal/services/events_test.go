package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/internal/models"
)

func receive(t *testing.T, ch <-chan models.TaskEvent) models.TaskEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.TaskEvent{}
}

func expectNone(t *testing.T, ch <-chan models.TaskEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventHub_LocalFanOutIsPerAccount(t *testing.T) {
	h := NewEventHub(nil)

	mine, cancelMine := h.Subscribe(1)
	defer cancelMine()
	theirs, cancelTheirs := h.Subscribe(2)
	defer cancelTheirs()

	h.Publish(context.Background(), models.TaskEvent{
		Type:   models.TaskCreated,
		UserID: 1,
		Task:   &models.Task{ID: 5, UserID: 1, Title: "Buy milk"},
	})

	ev := receive(t, mine)
	if ev.Type != models.TaskCreated || ev.Task.ID != 5 || ev.Timestamp.IsZero() {
		t.Errorf("unexpected event: %+v", ev)
	}
	expectNone(t, theirs)
}

func TestEventHub_CancelUnsubscribes(t *testing.T) {
	h := NewEventHub(nil)

	ch, cancel := h.Subscribe(1)
	if n := h.SubscriberCount(1); n != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n)
	}
	cancel()
	cancel() // idempotent

	if n := h.SubscriberCount(1); n != 0 {
		t.Errorf("SubscriberCount after cancel = %d, want 0", n)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Publishing with no listeners must not block or panic.
	h.Publish(context.Background(), models.TaskEvent{Type: models.TaskDeleted, UserID: 1})
}

func TestEventHub_SlowListenerDoesNotBlock(t *testing.T) {
	h := NewEventHub(nil)
	_, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(context.Background(), models.TaskEvent{Type: models.TaskUpdated, UserID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full listener")
	}
}

func TestEventHub_RedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two hubs sharing one Redis behave like two server instances.
	publisher := NewEventHub(rdb)
	listener := NewEventHub(rdb)
	go listener.Run(ctx)

	select {
	case <-listener.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never became ready")
	}

	mine, cancelMine := listener.Subscribe(7)
	defer cancelMine()
	other, cancelOther := listener.Subscribe(8)
	defer cancelOther()

	publisher.Publish(ctx, models.TaskEvent{
		Type:   models.TaskToggled,
		UserID: 7,
		Task:   &models.Task{ID: 1, UserID: 7, Completed: true},
	})

	ev := receive(t, mine)
	if ev.Type != models.TaskToggled || ev.Task == nil || !ev.Task.Completed {
		t.Errorf("unexpected event: %+v", ev)
	}
	expectNone(t, other)
}

func TestEventHub_RunWithoutRedisIsReady(t *testing.T) {
	h := NewEventHub(nil)
	h.Run(context.Background())
	select {
	case <-h.Ready():
	default:
		t.Error("hub without Redis should be ready immediately")
	}
}

func TestEventChannel(t *testing.T) {
	if got := EventChannel(12); got != "todos:events:12" {
		t.Errorf("EventChannel = %q", got)
	}
}
