package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/agent"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// Chat runs one conversational turn for ownerID.
//
// Input is validated before anything is written. The user message is
// persisted before the model is called and stays persisted if the turn
// fails. The assistant message is appended only when the loop produced one.
func (s *Service) Chat(ctx context.Context, ownerID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > s.config.MaxMessageLength {
		return nil, fmt.Errorf("%w: limit is %d characters", domain.ErrMessageTooLong, s.config.MaxMessageLength)
	}
	conversationID := strings.TrimSpace(req.ConversationID)

	if conversationID != "" && s.config.SerializeConversations {
		unlock, err := s.locks.Lock(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	conv, err := s.getOrCreateConversation(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With().Str("conversation_id", conv.ConversationID).Str("owner_id", ownerID).Logger()

	history, err := s.loadHistory(ctx, conv.ConversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.appendMessage(ctx, &domain.Message{
		ConversationID: conv.ConversationID,
		Role:           domain.RoleUser,
		Content:        message,
	})
	if err != nil {
		return nil, err
	}

	turn := &agent.Turn{
		TurnID:         "turn_" + uuid.New().String(),
		OwnerID:        ownerID,
		ConversationID: conv.ConversationID,
		History:        history,
		Message:        message,
	}
	s.audit(ctx, turn.ConversationID, turn.TurnID, domain.EventTypeTurnStarted, domain.TurnStartedPayload{
		OwnerID:       ownerID,
		MessageID:     userMsg.MessageID,
		HistoryLength: len(history),
	})

	result, err := s.loop.Run(ctx, turn)
	if err != nil {
		logger.Error().Err(err).Str("turn_id", turn.TurnID).Msg("turn failed")
		s.audit(ctx, turn.ConversationID, turn.TurnID, domain.EventTypeTurnFailed, domain.TurnFailedPayload{
			Stage: "model",
			Error: err.Error(),
		})
		if errors.Is(err, domain.ErrModelUnavailable) {
			err = domain.ErrModelUnavailable
		}
		return nil, &domain.TurnError{ConversationID: conv.ConversationID, Err: err}
	}

	assistantMsg, err := s.appendMessage(ctx, &domain.Message{
		ConversationID: conv.ConversationID,
		Role:           domain.RoleAssistant,
		Content:        result.Text,
		ToolCalls:      result.ToolCalls,
	})
	if err != nil {
		logger.Error().Err(err).Str("turn_id", turn.TurnID).Msg("failed to persist assistant message")
		s.audit(ctx, turn.ConversationID, turn.TurnID, domain.EventTypeTurnFailed, domain.TurnFailedPayload{
			Stage: "persist",
			Error: err.Error(),
		})
		return nil, &domain.TurnError{ConversationID: conv.ConversationID, Err: err}
	}

	eventType := domain.EventTypeTurnDone
	if result.State == agent.StateAborted {
		eventType = domain.EventTypeTurnAborted
	}
	s.audit(ctx, turn.ConversationID, turn.TurnID, eventType, domain.TurnEndedPayload{
		State:       string(result.State),
		Rounds:      result.Rounds,
		ToolCalls:   len(result.ToolCalls),
		MessageID:   assistantMsg.MessageID,
		AbortReason: result.AbortReason,
	})
	logger.Info().
		Str("turn_id", turn.TurnID).
		Str("state", string(result.State)).
		Int("rounds", result.Rounds).
		Int("tool_calls", len(result.ToolCalls)).
		Msg("turn completed")

	return &domain.ChatResponse{
		ConversationID: conv.ConversationID,
		Response:       result.Text,
		ToolCalls:      domain.NewToolCallViews(assistantMsg.ToolCalls),
	}, nil
}

func (s *Service) getOrCreateConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	conv, err := s.store.GetOrCreateConversation(ctx, ownerID, conversationID)
	if err != nil {
		if isConversationAccessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) loadHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	history, err := s.store.LoadHistory(ctx, conversationID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return history, nil
}

func (s *Service) appendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	// Appends outlive a cancelled request; the store timeout still bounds them.
	ctx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	saved, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s message: %w", msg.Role, err)
	}
	return saved, nil
}

func isConversationAccessError(err error) bool {
	return errors.Is(err, domain.ErrConversationNotFound) || errors.Is(err, domain.ErrConversationForbidden)
}
