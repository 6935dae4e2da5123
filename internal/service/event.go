package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/agent"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, conversationID, turnID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID:        "evt_" + uuid.New().String(),
		ConversationID: conversationID,
		TurnID:         turnID,
		Ts:             time.Now().UnixMilli(),
		Type:           eventType,
		Payload:        payloadBytes,
	}

	ctx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	return s.store.CreateEvent(ctx, event)
}

// audit records an event and only logs failures.
func (s *Service) audit(ctx context.Context, conversationID, turnID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, conversationID, turnID, eventType, payload); err != nil {
		s.logger.Warn().Err(err).
			Str("conversation_id", conversationID).
			Str("turn_id", turnID).
			Str("type", string(eventType)).
			Msg("failed to record event")
	}
}

// ModelCalled implements agent.Observer.
func (s *Service) ModelCalled(ctx context.Context, turn *agent.Turn, call agent.ModelCall) {
	payload := domain.LLMCallDonePayload{
		Round:     call.Round,
		LatencyMs: call.Latency.Milliseconds(),
		ToolCalls: call.ToolCallCount,
	}
	if call.Usage != nil {
		payload.PromptTokens = call.Usage.PromptTokens
		payload.CompletionTokens = call.Usage.CompletionTokens
	}
	if call.Err != nil {
		payload.Error = call.Err.Error()
	}
	s.audit(ctx, turn.ConversationID, turn.TurnID, domain.EventTypeLLMCallDone, payload)
}

// ToolCompleted implements agent.Observer.
func (s *Service) ToolCompleted(ctx context.Context, turn *agent.Turn, round int, rec domain.ToolCallRecord) {
	s.audit(ctx, turn.ConversationID, turn.TurnID, domain.EventTypeToolResult, domain.ToolResultPayload{
		Round:        round,
		CallID:       rec.CallID,
		Tool:         rec.Tool,
		Result:       rec.Result,
		ErrorMessage: rec.ErrorMessage,
	})
}

// ListEvents returns the audit trail of one of the owner's conversations.
func (s *Service) ListEvents(ctx context.Context, ownerID, conversationID string, afterTs int64, limit int) ([]domain.Event, error) {
	if _, err := s.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	events, err := s.store.ListEvents(ctx, conversationID, afterTs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
