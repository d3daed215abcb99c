package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dqtools/segments/internal/api/handlers"
	"github.com/dqtools/segments/internal/api/stream"
	"github.com/dqtools/segments/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(flagHandler *handlers.FlagHandler, jobsHandler *handlers.JobsHandler, hub *stream.Hub, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Flag endpoints
	api.HandleFunc("/flags", flagHandler.ListFlags).Methods("GET")
	api.HandleFunc("/segments/{ifo}/{flag}/{version}", flagHandler.GetSegments).Methods("GET")
	api.HandleFunc("/segments", flagHandler.PublishSegments).Methods("POST")

	// Scheduled-job endpoints, present only when a scheduler is running
	if jobsHandler != nil {
		api.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
		api.HandleFunc("/jobs/{job}/run", jobsHandler.RunJob).Methods("POST")
	}

	// Live segment stream
	if hub != nil {
		api.Handle("/streams/segments", hub).Methods("GET")
	}

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
		"service": "segments-api",
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
