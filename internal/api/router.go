package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/dipscan/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(h *Handlers, stream *ProgressStream, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Progress stream for long-running pipeline stages
	r.Handle("/ws/progress", stream).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/scores", h.GetScores).Methods("GET")
	api.HandleFunc("/scores/{ticker}", h.GetScore).Methods("GET")
	api.HandleFunc("/watchlist", h.GetWatchlist).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")

	api.HandleFunc("/tasks", h.StartTask).Methods("POST")
	api.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", h.GetTask).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "dipscan-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
