package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/prompt"
	"github.com/capitalize-ai/sales-consultant/internal/service"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// UIHandler serves the server-rendered chat page and its form actions.
type UIHandler struct {
	sessions *session.Manager
	chat     *service.ChatService
	logger   *logger.Logger
}

// NewUIHandler creates a new UI handler.
func NewUIHandler(sessions *session.Manager, chat *service.ChatService, log *logger.Logger) *UIHandler {
	return &UIHandler{
		sessions: sessions,
		chat:     chat,
		logger:   log,
	}
}

type pageData struct {
	Conversations []model.ConversationSummary
	Current       model.Conversation
	QuickPrompts  []model.QuickPrompt
	Prefill       string
	Usage         model.Usage
}

// Index handles GET /
// ?prompt=N pre-fills the input with the Nth quick prompt.
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	current, err := st.Conversation(st.CurrentID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	data := pageData{
		Conversations: st.ListConversations(),
		Current:       current,
		QuickPrompts:  prompt.QuickPrompts,
		Usage:         st.Usage(r.Context()),
	}
	if i, err := strconv.Atoi(r.URL.Query().Get("prompt")); err == nil && i >= 0 && i < len(prompt.QuickPrompts) {
		data.Prefill = prompt.QuickPrompts[i].Text
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// NewChat handles POST /chat/new
func (h *UIHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	st.CreateConversation()
	redirectHome(w, r)
}

// Select handles POST /chat/select. Unknown ids are ignored.
func (h *UIHandler) Select(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	st.SelectConversation(r.FormValue("id"))
	redirectHome(w, r)
}

// Send handles POST /chat/send against the current conversation.
func (h *UIHandler) Send(w http.ResponseWriter, r *http.Request) {
	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	content := r.FormValue("content")
	if err := middleware.ValidateMessageContent(content); err != nil {
		redirectHome(w, r)
		return
	}

	if _, err := h.chat.Submit(context.WithoutCancel(r.Context()), st, "", content); err != nil {
		h.logger.Warn("failed to submit message", zap.String("session_id", st.ID), zap.Error(err))
	}
	redirectHome(w, r)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
