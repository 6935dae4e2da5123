// Package store persists conversations, tasks and audit events.
package store

import (
	"context"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// ConversationStore persists user-scoped conversations and their messages.
type ConversationStore interface {
	// GetOrCreateConversation returns the caller's conversation, or creates a
	// new one when conversationID is empty.
	GetOrCreateConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error)
	GetConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, ownerID string, limit int) ([]domain.Conversation, error)
	// LoadHistory returns at most limit most recent messages, oldest first.
	LoadHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
}

// TaskStore is the owner-scoped task capability used by tool handlers.
type TaskStore interface {
	CreateTask(ctx context.Context, ownerID string, task domain.NewTask) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, ownerID string, taskID int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, ownerID string, taskID int64, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, ownerID string, taskID int64) (*domain.Task, error)
}

// EventStore records turn audit events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *domain.Event) error
	ListEvents(ctx context.Context, conversationID string, afterTs int64, limit int) ([]domain.Event, error)
}

// Store is the full persistence surface.
type Store interface {
	ConversationStore
	TaskStore
	EventStore
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
