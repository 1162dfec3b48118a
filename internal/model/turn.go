package model

import (
	"time"
)

// Role represents the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// Turn is one message of a conversation. Turns are never modified after append.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to submit a user turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the result of one interaction.
type SendMessageResponse struct {
	UserTurn  Turn   `json:"user_turn"`
	AgentTurn Turn   `json:"agent_turn"`
	Title     string `json:"title"`
	CacheHit  bool   `json:"cache_hit"`
	Failed    bool   `json:"failed"`
	Usage     Usage  `json:"usage"`
}

// ListTurnsResponse is the chronological history of a conversation.
type ListTurnsResponse struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Turns          []Turn `json:"turns"`
}

// Usage holds the cumulative counters of a session.
type Usage struct {
	Interactions int `json:"interactions"`
	Tokens       int `json:"tokens"`
	Characters   int `json:"characters"`
	CacheEntries int `json:"cache_entries"`
}

// QuickPrompt is a canned input offered as a shortcut.
type QuickPrompt struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// TokenEvent represents one step of the typing reveal.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// ErrorEvent represents an error event on a stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
