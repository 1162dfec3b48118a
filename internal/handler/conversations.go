// Package handler provides HTTP handlers for the consultant server.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	sessions *session.Manager
	logger   *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(sessions *session.Manager, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	id := st.CreateConversation()
	conv, err := st.Conversation(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	h.logger.Info("conversation created",
		zap.String("session_id", st.ID),
		zap.String("conversation_id", id),
	)

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, listResponse(st))
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	conv, err := st.Conversation(conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Select handles PUT /api/v1/conversations/{id}/select
func (h *ConversationHandler) Select(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	if !st.SelectConversation(conversationID) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, listResponse(st))
}

// Turns handles GET /api/v1/conversations/{id}/turns
func (h *ConversationHandler) Turns(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	conv, err := st.Conversation(conversationID)
	if errors.Is(err, session.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get turns")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListTurnsResponse{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Turns:          conv.Turns,
	})
}

func listResponse(st *session.State) *model.ListConversationsResponse {
	convs := st.ListConversations()
	return &model.ListConversationsResponse{
		Conversations: convs,
		CurrentID:     st.CurrentID(),
		Total:         len(convs),
	}
}
