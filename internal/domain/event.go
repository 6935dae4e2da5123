package domain

import "encoding/json"

// Event represents an audit event recorded during a turn.
type Event struct {
	EventID        string          `json:"event_id"`
	ConversationID string          `json:"conversation_id"`
	TurnID         string          `json:"turn_id"`
	Ts             int64           `json:"ts"` // Unix milliseconds
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// TurnStartedPayload is the payload for turn_started events.
type TurnStartedPayload struct {
	OwnerID       string `json:"owner_id"`
	MessageID     int64  `json:"message_id"`
	HistoryLength int    `json:"history_length"`
}

// LLMCallDonePayload is the payload for llm_call_done events.
type LLMCallDonePayload struct {
	Round            int    `json:"round"`
	LatencyMs        int64  `json:"latency_ms"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	ToolCalls        int    `json:"tool_calls"`
	Error            string `json:"error,omitempty"`
}

// ToolResultPayload is the payload for tool_result events.
type ToolResultPayload struct {
	Round        int        `json:"round"`
	CallID       string     `json:"call_id,omitempty"`
	Tool         string     `json:"tool"`
	Result       ToolResult `json:"result"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// TurnEndedPayload is the payload for turn_done and turn_aborted events.
type TurnEndedPayload struct {
	State       string `json:"state"`
	Rounds      int    `json:"rounds"`
	ToolCalls   int    `json:"tool_calls"`
	MessageID   int64  `json:"message_id,omitempty"`
	AbortReason string `json:"abort_reason,omitempty"`
}

// TurnFailedPayload is the payload for turn_failed events.
type TurnFailedPayload struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}
