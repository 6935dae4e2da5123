package ws

import "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"

// Frame types.
const (
	TypeChat         = "chat"
	TypeChatResponse = "chat_response"
	TypeError        = "error"
)

// Error codes.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeBadRequest     = "bad_request"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeUnavailable    = "unavailable"
	ErrorCodeInternal       = "internal"
)

// BaseMessage carries the fields every frame has.
type BaseMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage is a client chat frame.
type ChatMessage struct {
	BaseMessage
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponseMessage answers a chat frame.
type ChatResponseMessage struct {
	BaseMessage
	domain.ChatResponse
}

// ErrorMessage reports a failed frame.
type ErrorMessage struct {
	BaseMessage
	Code           string `json:"code"`
	Message        string `json:"message"`
	Retryable      bool   `json:"retryable"`
	ConversationID string `json:"conversation_id,omitempty"`
}
