package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/service"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/metrics"
)

// StreamHandler serves replies as a server-sent event stream that reveals
// the finished answer a rune at a time.
type StreamHandler struct {
	sessions    *session.Manager
	chat        *service.ChatService
	typingDelay time.Duration
	logger      *logger.Logger
}

// NewStreamHandler creates a new stream handler. A zero typingDelay sends
// the runes back to back.
func NewStreamHandler(sessions *session.Manager, chat *service.ChatService, typingDelay time.Duration, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		sessions:    sessions,
		chat:        chat,
		typingDelay: typingDelay,
		logger:      log,
	}
}

// StreamWithMessage handles POST /api/v1/conversations/{id}/stream
// This endpoint accepts a message and streams the response
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	st, ok := loadSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	ctx := r.Context()

	sendSSEEvent(w, flusher, "thinking", map[string]string{
		"conversation_id": conversationID,
	})

	// The interaction completes even if the client goes away mid-reply.
	resp, err := h.chat.Submit(context.WithoutCancel(ctx), st, conversationID, req.Content)
	if err != nil {
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    submitErrorCode(err),
			Message: err.Error(),
		})
		return
	}

	sendSSEEvent(w, flusher, "user_message", resp.UserTurn)

	err = typeOut(ctx, resp.AgentTurn.Content, h.typingDelay, func(token string, index int) error {
		return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
			Token: token,
			Index: index,
		})
	})
	if err != nil {
		h.logger.Info("SSE client disconnected",
			zap.String("session_id", st.ID),
			zap.String("conversation_id", conversationID),
		)
		return
	}

	sendSSEEvent(w, flusher, "message_complete", resp)
	sendSSEEvent(w, flusher, "done", map[string]bool{"success": !resp.Failed})
}

// typeOut emits text one rune at a time, waiting delay between runes.
func typeOut(ctx context.Context, text string, delay time.Duration, emit func(token string, index int) error) error {
	index := 0
	for _, r := range text {
		if index > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := emit(string(r), index); err != nil {
			return err
		}
		index++
	}
	return nil
}

func submitErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrConversationNotFound):
		return "conversation_not_found"
	case errors.Is(err, service.ErrEmptyInput):
		return "empty_input"
	default:
		return "stream_error"
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
