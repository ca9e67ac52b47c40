package http

//go:generate mockgen -source=status_handler.go -destination=./mocks/status_handler_mock.go -package=mocks

import (
	"net/http"

	"edge-log-analytics/internal/models"
)

type AppHttpHandler interface {
	Handle(w http.ResponseWriter, r *http.Request) error
}

// StatusProvider exposes the progress of the running analysis.
type StatusProvider interface {
	Status() (models.RunStatus, bool)
}

type statusHandler struct {
	statusProvider StatusProvider
}

func NewStatusHandler(statusProvider StatusProvider) AppHttpHandler {
	return &statusHandler{
		statusProvider: statusProvider,
	}
}

// Handle serves GET /status.
func (h *statusHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	status, ok := h.statusProvider.Status()
	if !ok {
		return errStatusUnavailable()
	}

	w.Header().Set(headerCacheControl, "no-store")
	if err := writeJSON(w, http.StatusOK, status); err != nil {
		return errEncodeStatus(err)
	}
	return nil
}
