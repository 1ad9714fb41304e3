package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

// writeTaskError maps a task store error onto the HTTP error taxonomy.
func writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, utils.ErrNotFound):
		writeError(w, http.StatusNotFound, "Todo not found")
	default:
		writeInternalError(w, r, err)
	}
}

// MaxJSONBodySize bounds a JSON request body.
const MaxJSONBodySize = 1 << 20 // 1MB

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBodySize)).Decode(dst)
}

// taskIDParam parses the {id} URL parameter. Anything that is not a positive
// integer cannot name a task.
func taskIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
