package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/prompt"
	"github.com/capitalize-ai/sales-consultant/internal/service"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	sessions *session.Manager
	chat     *service.ChatService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(sessions *session.Manager, chat *service.ChatService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		sessions: sessions,
		chat:     chat,
		logger:   log,
	}
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	conversationID, req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	resp, err := h.chat.Submit(context.WithoutCancel(r.Context()), st, conversationID, req.Content)
	if err != nil {
		writeSubmitError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Prompts handles GET /api/v1/prompts
func (h *MessageHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, prompt.QuickPrompts)
}

// Usage handles GET /api/v1/usage
func (h *MessageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Usage(r.Context()))
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (string, *model.SendMessageRequest, bool) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*middleware.MaxMessageLength)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", nil, false
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	return conversationID, &req, true
}

func writeSubmitError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, service.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("failed to send message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send message")
	}
}
