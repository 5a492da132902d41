package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// RequestLogger writes one log line per API request
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip probes and scrapes
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("[API] %s %s %d %dB %v", r.Method, r.URL.Path, wrapped.statusCode, wrapped.bytesWritten, time.Since(start).Round(time.Millisecond))
	})
}

func shouldSkipLogging(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics" || path == "/ws"
}
