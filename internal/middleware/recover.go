package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
)

// Recover turns a panicking handler into a 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Internal server error",
				"message": fmt.Sprint(rec),
			})
		}()

		next.ServeHTTP(w, r)
	})
}
