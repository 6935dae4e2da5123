package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("caller identity is required")
	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrMessageTooLong  = errors.New("message is too long")

	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationForbidden = errors.New("conversation belongs to another user")

	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskForbidden = errors.New("task belongs to another user")
	ErrInvalidTask   = errors.New("invalid task")

	// ErrModelUnavailable marks a turn that could not reach the language model.
	// Callers may retry the whole turn.
	ErrModelUnavailable = errors.New("language model unavailable")
)

// TurnError reports a turn that failed after the user message was persisted.
type TurnError struct {
	ConversationID string
	Err            error
}

func (e *TurnError) Error() string {
	return e.Err.Error()
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
