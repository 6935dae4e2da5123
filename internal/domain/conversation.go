package domain

import "time"

// Conversation is an ordered, user-owned sequence of messages.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	OwnerID        string    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is a single persisted message in a conversation.
type Message struct {
	MessageID      int64            `json:"message_id"`
	ConversationID string           `json:"conversation_id"`
	Role           Role             `json:"role"`
	Content        string           `json:"content"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
	CreatedAt      time.Time        `json:"created_at"`
}
