package model

import (
	"time"
)

// InteractionEvent records the outcome of one question/answer cycle.
type InteractionEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	CacheHit       bool      `json:"cache_hit"`
	Failed         bool      `json:"failed"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	PromptChars    int       `json:"prompt_chars"`
	ResponseChars  int       `json:"response_chars"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
