package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/internal/models"
)

const (
	eventChannelPrefix  = "todos:events:"
	eventChannelPattern = eventChannelPrefix + "*"
	subscriberBuffer    = 16
)

// EventChannel is the Redis channel carrying one account's task events.
func EventChannel(userID int64) string {
	return fmt.Sprintf("%s%d", eventChannelPrefix, userID)
}

// EventHub delivers task events to the owning account's live connections.
// With a Redis client, events travel through Redis pub/sub so every instance sees them;
// without one, Publish fans out in-process.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[string]chan models.TaskEvent

	rdb       *redis.Client
	readyOnce sync.Once
	ready     chan struct{}
}

func NewEventHub(rdb *redis.Client) *EventHub {
	return &EventHub{
		subscribers: make(map[int64]map[string]chan models.TaskEvent),
		rdb:         rdb,
		ready:       make(chan struct{}),
	}
}

// Subscribe registers a listener for userID's events. The returned cancel func
// unregisters it and closes the channel.
func (h *EventHub) Subscribe(userID int64) (<-chan models.TaskEvent, func()) {
	id := uuid.New().String()
	ch := make(chan models.TaskEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[string]chan models.TaskEvent)
	}
	h.subscribers[userID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[userID], id)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// SubscriberCount returns the number of live listeners for userID.
func (h *EventHub) SubscriberCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Publish is best-effort: failures are logged, never returned to the request.
func (h *EventHub) Publish(ctx context.Context, event models.TaskEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if h.rdb == nil {
		h.fanOut(event)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal task event: %v", err)
		return
	}
	if err := h.rdb.Publish(ctx, EventChannel(event.UserID), data).Err(); err != nil {
		log.Printf("failed to publish task event, delivering locally: %v", err)
		h.fanOut(event)
	}
}

// fanOut delivers to local listeners of the event's owner. A full listener buffer drops the event.
func (h *EventHub) fanOut(event models.TaskEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[event.UserID] {
		select {
		case ch <- event:
		default:
			log.Printf("dropping %s event for user %d: listener is slow", event.Type, event.UserID)
		}
	}
}

// Ready is closed once the Redis subscription has been confirmed.
func (h *EventHub) Ready() <-chan struct{} {
	return h.ready
}

// Run consumes Redis pub/sub until ctx is cancelled, reconnecting with backoff.
// Without Redis it returns immediately.
func (h *EventHub) Run(ctx context.Context) {
	if h.rdb == nil {
		h.readyOnce.Do(func() { close(h.ready) })
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		if err := h.consume(ctx); err != nil && ctx.Err() == nil {
			log.Printf("task event subscriber error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}
		backoff = time.Second
	}
}

func (h *EventHub) consume(ctx context.Context) error {
	pubsub := h.rdb.PSubscribe(ctx, eventChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.readyOnce.Do(func() {
		log.Printf("✅ Task event subscriber started (pattern: %s)", eventChannelPattern)
		close(h.ready)
	})

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}

		var event models.TaskEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("failed to unmarshal task event: %v", err)
			continue
		}
		// The channel name is authoritative for the owner.
		if owner := strings.TrimPrefix(msg.Channel, eventChannelPrefix); owner != fmt.Sprint(event.UserID) {
			log.Printf("ignoring task event on %s: owner mismatch", msg.Channel)
			continue
		}
		h.fanOut(event)
	}
}
