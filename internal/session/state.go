// Package session holds the per-browser chat state: conversations, the
// current conversation pointer, usage counters and the response cache.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/sales-consultant/internal/cache"
	"github.com/capitalize-ai/sales-consultant/internal/model"
	"github.com/capitalize-ai/sales-consultant/pkg/metrics"
)

var (
	// ErrConversationNotFound is returned for an unknown conversation id.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidRole is returned when appending a turn with an unknown role.
	ErrInvalidRole = errors.New("invalid turn role")
)

// State is the mutable state of one session. It is safe for concurrent use.
type State struct {
	ID        string
	CreatedAt time.Time

	mu            sync.Mutex
	conversations map[string]*model.Conversation
	order         []string
	currentID     string
	interactions  int
	tokens        int
	characters    int

	// submitMu serializes question/answer cycles of the session.
	submitMu sync.Mutex

	cache cache.Store
	now   func() time.Time
}

// NewState creates a session with one empty conversation selected.
func NewState(id string, store cache.Store) *State {
	s := &State{
		ID:            id,
		CreatedAt:     time.Now(),
		conversations: make(map[string]*model.Conversation),
		cache:         store,
		now:           time.Now,
	}
	s.CreateConversation()
	return s
}

// Cache returns the session's response cache.
func (s *State) Cache() cache.Store {
	return s.cache
}

// BeginSubmission blocks until no other submission of this session is
// running. The returned func releases it.
func (s *State) BeginSubmission() func() {
	s.submitMu.Lock()
	return s.submitMu.Unlock
}

// CreateConversation adds an empty conversation and makes it current.
func (s *State) CreateConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     model.DefaultTitle,
		CreatedAt: s.now(),
		Turns:     []model.Turn{},
	}
	s.conversations[conv.ID] = conv
	s.order = append(s.order, conv.ID)
	s.currentID = conv.ID

	metrics.ConversationsTotal.Inc()

	return conv.ID
}

// SelectConversation moves the current pointer. Unknown ids are ignored and
// reported as false.
func (s *State) SelectConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	s.currentID = id
	return true
}

// CurrentID returns the id of the selected conversation.
func (s *State) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// AppendTurn adds a turn to the end of a conversation. The first user turn
// of a conversation still carrying the default title names it.
func (s *State) AppendTurn(conversationID string, role model.Role, text string) (model.Turn, error) {
	if !role.Valid() {
		return model.Turn{}, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return model.Turn{}, ErrConversationNotFound
	}

	turn := model.Turn{
		Role:      role,
		Content:   text,
		CreatedAt: s.now(),
	}
	conv.Turns = append(conv.Turns, turn)

	if role == model.RoleUser && conv.Title == model.DefaultTitle {
		conv.Title = DeriveTitle(text)
	}

	metrics.TurnsTotal.WithLabelValues(string(role)).Inc()

	return turn, nil
}

// Conversation returns a copy of a conversation.
func (s *State) Conversation(id string) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return model.Conversation{}, ErrConversationNotFound
	}

	cp := *conv
	cp.Turns = append([]model.Turn(nil), conv.Turns...)
	return cp, nil
}

// Turns returns the turns of a conversation, oldest first.
func (s *State) Turns(id string) ([]model.Turn, error) {
	conv, err := s.Conversation(id)
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

// ListConversations returns the conversations in creation order.
func (s *State) ListConversations() []model.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ConversationSummary, 0, len(s.order))
	for _, id := range s.order {
		conv := s.conversations[id]
		out = append(out, model.ConversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			Date:      conv.Date(),
			TurnCount: len(conv.Turns),
			Current:   conv.ID == s.currentID,
		})
	}
	return out
}

// IncrementInteractions counts a submission and returns the new total.
func (s *State) IncrementInteractions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions++
	return s.interactions
}

// AddUsage accumulates the token and character counts of an interaction.
func (s *State) AddUsage(tokens, characters int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens += tokens
	s.characters += characters
}

// Usage returns the session counters.
func (s *State) Usage(ctx context.Context) model.Usage {
	s.mu.Lock()
	u := model.Usage{
		Interactions: s.interactions,
		Tokens:       s.tokens,
		Characters:   s.characters,
	}
	s.mu.Unlock()

	if s.cache != nil {
		u.CacheEntries = s.cache.Len(ctx)
	}
	return u
}

// Close releases the session's cache.
func (s *State) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
