package domain

import "encoding/json"

// ToolCallRecord is the audit record of one tool invocation attempt.
type ToolCallRecord struct {
	CallID       string          `json:"call_id,omitempty"`
	Tool         string          `json:"tool"`
	Parameters   json.RawMessage `json:"parameters"`
	Result       ToolResult      `json:"result"`
	ErrorMessage string          `json:"error_message,omitempty"`

	// Output is the handler payload fed back to the model. It is not persisted.
	Output json.RawMessage `json:"-"`
}

// Succeeded reports whether the invocation succeeded.
func (r ToolCallRecord) Succeeded() bool {
	return r.Result == ToolResultSuccess
}

// ToolListItem represents a declared tool in the list response.
type ToolListItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// ListToolsResponse represents the response for listing tools.
type ListToolsResponse struct {
	Tools []ToolListItem `json:"tools"`
}
