package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"textile-backend/pkg/utils"
)

// PanicRecovery turns a panic in a handler into the usual JSON 500 body
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] PANIC %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
