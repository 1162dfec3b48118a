package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// loadSession returns the state of the request's session, writing a 500
// when it cannot be created.
func loadSession(w http.ResponseWriter, r *http.Request, sessions *session.Manager, log *logger.Logger) (*session.State, bool) {
	sessionID := middleware.GetSessionID(r.Context())
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "missing session")
		return nil, false
	}

	st, err := sessions.GetOrCreate(sessionID)
	if err != nil {
		log.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return st, true
}
