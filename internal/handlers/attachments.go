package handlers

import (
	"fmt"
	"net/http"

	"github.com/AnshRaj112/todo-backend/internal/middleware"
	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/internal/services"
	"github.com/AnshRaj112/todo-backend/internal/store"
)

// MaxAttachmentSize bounds an uploaded attachment.
const MaxAttachmentSize = 10 << 20 // 10MB

type AttachmentHandler struct {
	tasks    store.TaskStore
	uploader services.Uploader // nil when uploads are not configured
	events   EventPublisher
}

func NewAttachmentHandler(tasks store.TaskStore, uploader services.Uploader, events EventPublisher) *AttachmentHandler {
	return &AttachmentHandler{tasks: tasks, uploader: uploader, events: events}
}

// Upload handles POST /api/todos/{id}/attachment with a multipart "file" field.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "File uploads are not configured")
		return
	}

	ownerID, _ := middleware.AccountIDFromContext(r.Context())
	id, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	// Check ownership before accepting any bytes.
	task, err := h.tasks.FindByIDAndOwner(r.Context(), id, ownerID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxAttachmentSize+1<<20)
	if err := r.ParseMultipartForm(MaxAttachmentSize); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Size > MaxAttachmentSize {
		writeError(w, http.StatusBadRequest, "File exceeds 10MB limit")
		return
	}

	url, err := h.uploader.Upload(r.Context(), file, fmt.Sprintf("todos/%d", ownerID))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	task, err = h.tasks.SetAttachment(r.Context(), id, ownerID, url)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	if h.events != nil {
		h.events.Publish(r.Context(), models.TaskEvent{
			Type:      models.TaskUpdated,
			UserID:    task.UserID,
			Task:      task,
			Timestamp: task.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, task)
}
