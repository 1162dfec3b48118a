package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/tokens"
)

// ErrEmptyInput is returned when the user submits only whitespace.
var ErrEmptyInput = errors.New("message cannot be empty")

// EventPublisher receives one event per completed interaction.
type EventPublisher interface {
	PublishInteraction(ctx context.Context, event *model.InteractionEvent) error
}

// ChatService runs question/answer cycles against a session.
type ChatService struct {
	generator     *GeneratorService
	systemContext string
	events        EventPublisher
	logger        *logger.Logger
}

// NewChatService creates a chat service. systemContext is shared read-only
// by every session; events may be nil.
func NewChatService(generator *GeneratorService, systemContext string, events EventPublisher, log *logger.Logger) *ChatService {
	return &ChatService{
		generator:     generator,
		systemContext: systemContext,
		events:        events,
		logger:        log,
	}
}

// SystemContext returns the persona plus corpus sent with every question.
func (s *ChatService) SystemContext() string {
	return s.systemContext
}

// Submit records the user's question, answers it and records the answer.
// An empty conversationID targets the session's current conversation. Model
// failures still produce both turns, the agent turn holding the apology.
func (s *ChatService) Submit(ctx context.Context, st *session.State, conversationID, input string) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	release := st.BeginSubmission()
	defer release()

	if conversationID == "" {
		conversationID = st.CurrentID()
	}

	log := s.logger.With(
		zap.String("session_id", st.ID),
		zap.String("conversation_id", conversationID),
	)

	userTurn, err := st.AppendTurn(conversationID, model.RoleUser, input)
	if err != nil {
		return nil, err
	}

	interactions := st.IncrementInteractions()
	log.Info("user interaction", zap.Int("interactions", interactions))

	res := s.generator.Generate(ctx, st.Cache(), input, s.systemContext)

	agentTurn, err := st.AppendTurn(conversationID, model.RoleAgent, res.Text)
	if err != nil {
		return nil, err
	}

	interactionTokens := tokens.Estimate(input) + tokens.Estimate(res.Text)
	interactionChars := tokens.Chars(input) + tokens.Chars(res.Text)
	st.AddUsage(interactionTokens, interactionChars)
	usage := st.Usage(ctx)

	log.Info("interaction complete",
		zap.Bool("cache_hit", res.CacheHit),
		zap.Bool("failed", res.Failed),
		zap.Int("interaction_tokens", interactionTokens),
		zap.Int("interaction_chars", interactionChars),
		zap.Int("total_tokens", usage.Tokens),
		zap.Int("total_chars", usage.Characters),
	)

	s.publish(ctx, log, st.ID, conversationID, res)

	conv, err := st.Conversation(conversationID)
	if err != nil {
		return nil, err
	}

	return &model.SendMessageResponse{
		UserTurn:  userTurn,
		AgentTurn: agentTurn,
		Title:     conv.Title,
		CacheHit:  res.CacheHit,
		Failed:    res.Failed,
		Usage:     usage,
	}, nil
}

func (s *ChatService) publish(ctx context.Context, log *logger.Logger, sessionID, conversationID string, res Result) {
	if s.events == nil {
		return
	}

	event := &model.InteractionEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		SessionID:      sessionID,
		ConversationID: conversationID,
		CacheHit:       res.CacheHit,
		Failed:         res.Failed,
		PromptTokens:   res.PromptTokens,
		ResponseTokens: res.ResponseTokens,
		PromptChars:    res.PromptChars,
		ResponseChars:  res.ResponseChars,
		LatencyMs:      res.LatencyMs,
		CreatedAt:      time.Now(),
	}
	if err := s.events.PublishInteraction(ctx, event); err != nil {
		log.Warn("failed to publish interaction event", zap.Error(err))
	}
}
