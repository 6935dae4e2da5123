// Package domain defines the core domain models for the task agent.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the persisted roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ToolResult is the outcome of one tool invocation attempt.
type ToolResult string

const (
	ToolResultSuccess ToolResult = "success"
	ToolResultError   ToolResult = "error"
)

// Valid reports whether r is a known tool result.
func (r ToolResult) Valid() bool {
	return r == ToolResultSuccess || r == ToolResultError
}

// TaskStatus filters task listings.
type TaskStatus string

const (
	TaskStatusAll       TaskStatus = "all"
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// EventType represents the type of an audit event.
type EventType string

const (
	EventTypeTurnStarted EventType = "turn_started"
	EventTypeLLMCallDone EventType = "llm_call_done"
	EventTypeToolResult  EventType = "tool_result"
	EventTypeTurnDone    EventType = "turn_done"
	EventTypeTurnAborted EventType = "turn_aborted"
	EventTypeTurnFailed  EventType = "turn_failed"
)
