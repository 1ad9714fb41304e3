package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/todo-backend/internal/store"
)

const apiVersion = "1.0.0"

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Users     int    `json:"users"`
	Todos     int    `json:"todos"`
}

type MetaHandler struct {
	accounts store.AccountStore
	tasks    store.TaskStore
	now      func() time.Time
}

func NewMetaHandler(accounts store.AccountStore, tasks store.TaskStore) *MetaHandler {
	return &MetaHandler{accounts: accounts, tasks: tasks, now: time.Now}
}

// Root handles GET / with a short description of the API.
func (h *MetaHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Todo API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"register":   "POST /api/auth/register",
			"login":      "POST /api/auth/login",
			"me":         "GET /api/auth/me",
			"listTodos":  "GET /api/todos",
			"getTodo":    "GET /api/todos/:id",
			"createTodo": "POST /api/todos",
			"updateTodo": "PUT /api/todos/:id",
			"deleteTodo": "DELETE /api/todos/:id",
			"toggleTodo": "PATCH /api/todos/:id/toggle",
			"attachment": "POST /api/todos/:id/attachment",
			"events":     "GET /ws/todos",
			"health":     "GET /api/health",
		},
	})
}

// Health handles GET /api/health.
func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.Count(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	todos, err := h.tasks.Count(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Users:     users,
		Todos:     todos,
	})
}

// NotFound answers unmatched routes and methods.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}
