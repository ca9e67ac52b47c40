package http

import (
	"net/http"

	"edge-log-analytics/internal/shared/loggers"
	"edge-log-analytics/internal/shared/metrics"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates and configures the HTTP router of the status server.
func NewRouter(statusProvider StatusProvider, httpLogger loggers.Logger) http.Handler {
	router := chi.NewRouter()
	setupMiddleware(router, httpLogger)

	statusHandler := NewStatusHandler(statusProvider)

	router.Get("/status", errorHandlingAdapter(statusHandler))
	router.Get("/metrics", metrics.PromHTTP.Handler().ServeHTTP)

	return router
}
