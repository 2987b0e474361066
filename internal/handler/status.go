package handler

import (
	"log/slog"
	"net/http"
)

// Pinger reports whether the store is reachable. *sqlite.DB satisfies it.
type Pinger interface {
	Ping() error
}

// StatusHandler is the health check.
type StatusHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewStatusHandler(db Pinger, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{db: db, logger: logger}
}

// HandleStatus reports UP, or DOWN with 503 when the database does not answer.
//
// HTTP: GET /api/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "DOWN"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "UP"})
}
