package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/logs"
	"github.com/userforge/userforge-backend/pkg/metrics"
)

var methodActions = map[string]string{
	http.MethodGet:    "read",
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodPatch:  "update",
	http.MethodDelete: "delete",
}

// Audit persists one log entry per handled request and feeds the HTTP
// metrics. Recording happens after the handler so the route pattern and
// final status are known; a failed write never affects the response.
func Audit(recorder *logs.Recorder, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			duration := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			if httpMetrics != nil {
				httpMetrics.ObserveRequest(r.Method, route, rec.status, duration)
			}

			if recorder == nil {
				return
			}

			action := methodActions[r.Method]
			if action == "" {
				action = "request"
			}

			var userID *uuid.UUID
			if raw := UserIDFromContext(r.Context()); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					userID = &id
				}
			}

			recorder.Record(r.Context(), logs.Entry{
				UserID:     userID,
				Action:     action,
				Resource:   route,
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: rec.status,
				UserAgent:  r.UserAgent(),
				IP:         clientIP(r),
				Duration:   duration,
			})
		})
	}
}
