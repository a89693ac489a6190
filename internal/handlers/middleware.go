package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"carbon-platform/pkg/logging"
)

// RequestIDMiddleware assigns every request a correlation ID, honoring an
// X-Request-ID header when the caller supplies one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with its duration and status
func LoggingMiddleware(logger *logging.StructuredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(startTime)
			logger.Debug(r.Context(), "[HTTP_REQUEST] Request completed", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.status,
				"duration_ms": duration.Milliseconds(),
			})
		})
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
