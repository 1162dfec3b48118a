package handler

import (
	"net/http"

	natsclient "github.com/capitalize-ai/sales-consultant/internal/nats"
	"github.com/capitalize-ai/sales-consultant/internal/session"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	sessions   *session.Manager
}

// NewHealthHandler creates a new health handler. natsClient is nil when
// event publishing is disabled.
func NewHealthHandler(natsClient *natsclient.Client, sessions *session.Manager) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		sessions:   sessions,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"sessions": h.sessions.Count(),
	})
}
