package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/todo-backend/internal/middleware"
	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/internal/store"
)

// EventPublisher receives a TaskEvent after every successful task mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TaskEvent)
}

// CreateTodoRequest is the POST /api/todos body.
type CreateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DeleteTodoResponse echoes the removed task.
type DeleteTodoResponse struct {
	Message string       `json:"message"`
	Todo    *models.Task `json:"todo"`
}

type TodoHandler struct {
	tasks  store.TaskStore
	events EventPublisher
}

func NewTodoHandler(tasks store.TaskStore, events EventPublisher) *TodoHandler {
	return &TodoHandler{tasks: tasks, events: events}
}

func (h *TodoHandler) publish(r *http.Request, typ models.TaskEventType, task *models.Task) {
	if h.events == nil {
		return
	}
	h.events.Publish(r.Context(), models.TaskEvent{
		Type:      typ,
		UserID:    task.UserID,
		Task:      task,
		Timestamp: time.Now().UTC(),
	})
}

// parseTaskFilter reads ?completed=true|false&skip=N&limit=N.
func parseTaskFilter(r *http.Request) (models.TaskFilter, string) {
	var f models.TaskFilter
	q := r.URL.Query()

	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			return f, "completed must be true or false"
		}
		f.Completed = &completed
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, "skip must be a non-negative integer"
		}
		f.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > models.MaxTaskLimit {
			return f, "limit must be between 1 and " + strconv.Itoa(models.MaxTaskLimit)
		}
		f.Limit = n
	}
	return f, ""
}

// List handles GET /api/todos.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())

	filter, problem := parseTaskFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	tasks, err := h.tasks.ListByOwner(r.Context(), ownerID, filter)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /api/todos/{id}.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	task, err := h.tasks.FindByIDAndOwner(r.Context(), id, ownerID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create handles POST /api/todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())

	var req CreateTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.Create(r.Context(), ownerID, req.Title, req.Description)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	h.publish(r, models.TaskCreated, task)
	writeJSON(w, http.StatusCreated, task)
}

// Update handles PUT /api/todos/{id}. Only the fields present in the body change.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	var patch models.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.Update(r.Context(), id, ownerID, patch)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	h.publish(r, models.TaskUpdated, task)
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/todos/{id}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	task, err := h.tasks.Delete(r.Context(), id, ownerID)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	h.publish(r, models.TaskDeleted, task)
	writeJSON(w, http.StatusOK, DeleteTodoResponse{Message: "Todo deleted", Todo: task})
}

// Toggle handles PATCH /api/todos/{id}/toggle.
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.AccountIDFromContext(r.Context())
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	task, err := h.tasks.Toggle(r.Context(), id, ownerID)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	h.publish(r, models.TaskToggled, task)
	writeJSON(w, http.StatusOK, task)
}
