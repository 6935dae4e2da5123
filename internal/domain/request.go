package domain

import "encoding/json"

// ChatRequest is the inbound chat message from an authenticated caller.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is returned for a completed (or aborted) turn.
type ChatResponse struct {
	ConversationID string         `json:"conversation_id"`
	Response       string         `json:"response"`
	ToolCalls      []ToolCallView `json:"tool_calls"`
}

// ToolCallView is the wire shape of a ToolCallRecord.
type ToolCallView struct {
	Tool         string          `json:"tool"`
	Parameters   json.RawMessage `json:"parameters"`
	Result       ToolResult      `json:"result"`
	ErrorMessage *string         `json:"error_message"`
}

// NewToolCallViews converts records to their wire shape. The result is never nil.
func NewToolCallViews(records []ToolCallRecord) []ToolCallView {
	views := make([]ToolCallView, 0, len(records))
	for _, r := range records {
		view := ToolCallView{
			Tool:       r.Tool,
			Parameters: r.Parameters,
			Result:     r.Result,
		}
		if len(view.Parameters) == 0 {
			view.Parameters = json.RawMessage(`{}`)
		}
		if r.Result == ToolResultError {
			msg := r.ErrorMessage
			view.ErrorMessage = &msg
		}
		views = append(views, view)
	}
	return views
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error          string `json:"error"`
	Retryable      bool   `json:"retryable,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ConversationListResponse lists a caller's conversations.
type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// MessageListResponse lists conversation history.
type MessageListResponse struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// EventListResponse lists audit events for a conversation.
type EventListResponse struct {
	Events []Event `json:"events"`
}
