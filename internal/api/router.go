package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/fundquant/internal/api/handlers"
	"github.com/wonny/fundquant/internal/realtime"
	"github.com/wonny/fundquant/pkg/logger"
)

// Handlers groups everything the router mounts. Data and Hub may be nil
// (no database / no websocket).
type Handlers struct {
	Analysis *handlers.AnalysisHandler
	Data     *handlers.DataHandler
	Hub      *realtime.Hub
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Progress stream
	if h.Hub != nil {
		r.HandleFunc("/ws/progress", h.Hub.ServeWS).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Analysis endpoints
	api.HandleFunc("/analysis/latest", h.Analysis.GetLatest).Methods("GET")
	api.HandleFunc("/analysis/status", h.Analysis.GetStatus).Methods("GET")
	api.HandleFunc("/analysis/export", h.Analysis.Export).Methods("GET")
	api.HandleFunc("/analysis/records/{code:[0-9A-Za-z]+}", h.Analysis.GetRecord).Methods("GET")
	api.HandleFunc("/analysis/run", h.Analysis.Run).Methods("POST")

	// Data endpoints
	if h.Data != nil {
		api.HandleFunc("/data/collect", h.Data.Collect).Methods("POST")
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
		"service": "fundquant-api",
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
