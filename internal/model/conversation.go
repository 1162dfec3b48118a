// Package model defines data structures for the consultant chat.
package model

import (
	"time"
)

// DefaultTitle is the placeholder title of a conversation with no derived title yet.
const DefaultTitle = "Novo Chat"

// DateLayout is the display format of conversation dates.
const DateLayout = "02/01/2006"

// Conversation represents a chat thread inside one session.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns"`
}

// Date returns the creation date formatted for display.
func (c *Conversation) Date() string {
	return c.CreatedAt.Format(DateLayout)
}

// ConversationSummary is the sidebar entry for a conversation.
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	TurnCount int    `json:"turn_count"`
	Current   bool   `json:"current"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	CurrentID     string                `json:"current_id"`
	Total         int                   `json:"total"`
}
