package service

import (
	"context"
	"fmt"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// GetConversation returns one of the owner's conversations.
func (s *Service) GetConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	conv, err := s.store.GetConversation(ctx, ownerID, conversationID)
	if err != nil {
		if isConversationAccessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the owner's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, ownerID string, limit int) ([]domain.Conversation, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	conversations, err := s.store.ListConversations(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// GetMessages returns up to limit most recent messages of one of the owner's
// conversations, oldest first. A non-positive limit uses the history limit.
func (s *Service) GetMessages(ctx context.Context, ownerID, conversationID string, limit int) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	messages, err := s.store.LoadHistory(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// ListTools returns the declared tools with their schemas.
func (s *Service) ListTools() []domain.ToolListItem {
	declared := s.dispatcher.Registry().List()
	items := make([]domain.ToolListItem, 0, len(declared))
	for _, t := range declared {
		items = append(items, domain.ToolListItem{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return items
}
