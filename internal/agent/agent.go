// Package agent runs one conversational turn: it alternates model calls and
// tool dispatch until the model answers in text or the round limit is hit.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/tools"
)

// State is a state of the turn state machine.
type State string

const (
	StateAwaitingModel State = "AWAITING_MODEL"
	StateHasToolCalls  State = "HAS_TOOL_CALLS"
	StateHasFinalText  State = "HAS_FINAL_TEXT"
	StateDone          State = "DONE"
	StateAborted       State = "ABORTED"
)

// Abort reasons.
const (
	AbortRoundLimit       = "round_limit"
	AbortModelUnavailable = "model_unavailable"
)

// User-facing texts for turns that end without a model answer.
const (
	RoundLimitText   = "Sorry, I couldn't finish that request within the allowed number of steps. The actions listed below were attempted before I stopped."
	ModelFailureText = "Sorry, I ran into a problem while finishing your request. Some actions may already have been applied, so please check your task list."
	EmptyReplyText   = "I'm here to help with your tasks!"
	DoneText         = "Done."
	notExecutedText  = "not executed: round limit reached"
)

// DefaultSystemPrompt instructs the model about the task tools.
const DefaultSystemPrompt = `You are a helpful AI assistant that helps users manage their todo tasks.

You have access to the following task management functions:
- add_task: Create a new task
- list_tasks: Show all tasks or filter by status
- complete_task: Mark a task as done
- update_task: Modify an existing task
- delete_task: Remove a task

When users ask you to do something with their tasks, use the appropriate function.
Always be friendly and confirm what actions you've taken.
If a task operation fails, explain the error in a user-friendly way.
When listing tasks, format them nicely for the user.`

// Config bounds the loop.
type Config struct {
	Model        string
	MaxRounds    int
	ModelTimeout time.Duration
	SystemPrompt string
}

// Turn is the input of one loop run.
type Turn struct {
	TurnID         string
	OwnerID        string
	ConversationID string
	// History holds prior messages, oldest first, excluding Message.
	History []domain.Message
	Message string
}

// Result is the outcome of a turn that produced an assistant message.
type Result struct {
	State       State
	Text        string
	ToolCalls   []domain.ToolCallRecord
	Rounds      int
	AbortReason string
}

// ModelCall describes one model invocation for observers.
type ModelCall struct {
	Round         int
	Latency       time.Duration
	Usage         *llm.Usage
	ToolCallCount int
	Err           error
}

// Observer receives progress notifications. Implementations must not block.
type Observer interface {
	ModelCalled(ctx context.Context, turn *Turn, call ModelCall)
	ToolCompleted(ctx context.Context, turn *Turn, round int, rec domain.ToolCallRecord)
}

// Dispatcher executes a batch of tool invocations for one owner.
type Dispatcher interface {
	DispatchAll(ctx context.Context, ownerID string, invocations []tools.Invocation) []domain.ToolCallRecord
	Registry() *tools.Registry
}

// Loop is the agent state machine.
type Loop struct {
	client     llm.LLMClient
	dispatcher Dispatcher
	cfg        Config
	observer   Observer
	logger     zerolog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// New creates a loop.
func New(client llm.LLMClient, dispatcher Dispatcher, cfg Config, logger zerolog.Logger, opts ...Option) *Loop {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	l := &Loop{
		client:     client,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "agent").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives one turn to DONE or ABORTED. It returns an error wrapping
// domain.ErrModelUnavailable only when the model failed before any tool was
// dispatched; in that case nothing should be persisted for the assistant.
func (l *Loop) Run(ctx context.Context, turn *Turn) (*Result, error) {
	messages := l.buildMessages(turn)
	toolDefs := l.toolDefinitions()
	records := []domain.ToolCallRecord{}
	dispatched := 0
	state := StateAwaitingModel

	for {
		round := dispatched + 1
		msg, err := l.callModel(ctx, turn, round, messages, toolDefs)
		if err != nil {
			l.logger.Error().Err(err).
				Str("turn_id", turn.TurnID).
				Int("round", round).
				Str("state", string(state)).
				Msg("model call failed")
			if dispatched == 0 {
				return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
			}
			return &Result{
				State:       StateAborted,
				Text:        ModelFailureText,
				ToolCalls:   records,
				Rounds:      dispatched,
				AbortReason: AbortModelUnavailable,
			}, nil
		}

		if len(msg.ToolCalls) == 0 {
			state = StateHasFinalText
			l.logger.Debug().
				Str("turn_id", turn.TurnID).
				Str("state", string(state)).
				Int("rounds", dispatched).
				Msg("model answered")
			text := strings.TrimSpace(msg.Content)
			if text == "" {
				text = EmptyReplyText
				if len(records) > 0 {
					text = DoneText
				}
			}
			return &Result{State: StateDone, Text: text, ToolCalls: records, Rounds: dispatched}, nil
		}

		state = StateHasToolCalls
		invocations := toInvocations(msg.ToolCalls)

		if dispatched >= l.cfg.MaxRounds {
			for _, inv := range invocations {
				records = append(records, skippedRecord(inv))
			}
			l.logger.Warn().
				Str("turn_id", turn.TurnID).
				Str("state", string(state)).
				Int("max_rounds", l.cfg.MaxRounds).
				Int("skipped", len(invocations)).
				Msg("round limit reached")
			return &Result{
				State:       StateAborted,
				Text:        RoundLimitText,
				ToolCalls:   records,
				Rounds:      dispatched,
				AbortReason: AbortRoundLimit,
			}, nil
		}

		batch := l.dispatcher.DispatchAll(ctx, turn.OwnerID, invocations)
		dispatched++
		for _, rec := range batch {
			if l.observer != nil {
				l.observer.ToolCompleted(ctx, turn, dispatched, rec)
			}
		}
		records = append(records, batch...)

		messages = append(messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: toWireCalls(invocations),
		})
		for _, rec := range batch {
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: rec.CallID,
				Content:    toolResultContent(rec),
			})
		}
		state = StateAwaitingModel
	}
}

func (l *Loop) callModel(ctx context.Context, turn *Turn, round int, messages []llm.ChatMessage, toolDefs []llm.Tool) (*llm.ChatMessage, error) {
	if l.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.ModelTimeout)
		defer cancel()
	}

	req := &llm.ChatCompletionRequest{
		Model:    l.cfg.Model,
		Messages: messages,
		Tools:    toolDefs,
	}
	if len(toolDefs) > 0 {
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, req)
	call := ModelCall{Round: round, Latency: time.Since(start), Err: err}
	var msg *llm.ChatMessage
	if err == nil {
		call.Usage = resp.Usage
		msg, err = firstMessage(resp)
		call.Err = err
		if msg != nil {
			call.ToolCallCount = len(msg.ToolCalls)
		}
	}
	if l.observer != nil {
		l.observer.ModelCalled(ctx, turn, call)
	}
	return msg, err
}

var errMalformedResponse = errors.New("malformed model response")

func firstMessage(resp *llm.ChatCompletionResponse) (*llm.ChatMessage, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, errMalformedResponse
	}
	return resp.Choices[0].Message, nil
}

func (l *Loop) buildMessages(turn *Turn) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(turn.History)+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: l.cfg.SystemPrompt})
	for _, m := range turn.History {
		if m.Content == "" {
			continue
		}
		messages = append(messages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: turn.Message})
	return messages
}

func (l *Loop) toolDefinitions() []llm.Tool {
	declared := l.dispatcher.Registry().List()
	defs := make([]llm.Tool, 0, len(declared))
	for _, t := range declared {
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return defs
}

func toInvocations(calls []llm.ToolCall) []tools.Invocation {
	invocations := make([]tools.Invocation, 0, len(calls))
	for _, c := range calls {
		id := c.ID
		if id == "" {
			id = "call_" + uuid.New().String()
		}
		invocations = append(invocations, tools.Invocation{
			CallID:    id,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return invocations
}

func toWireCalls(invocations []tools.Invocation) []llm.ToolCall {
	calls := make([]llm.ToolCall, 0, len(invocations))
	for _, inv := range invocations {
		calls = append(calls, llm.ToolCall{
			ID:   inv.CallID,
			Type: "function",
			Function: llm.ToolCallFunction{
				Name:      inv.Name,
				Arguments: inv.Arguments,
			},
		})
	}
	return calls
}

func skippedRecord(inv tools.Invocation) domain.ToolCallRecord {
	params, _ := tools.NormalizeArguments(inv.Arguments)
	return domain.ToolCallRecord{
		CallID:       inv.CallID,
		Tool:         inv.Name,
		Parameters:   params,
		Result:       domain.ToolResultError,
		ErrorMessage: notExecutedText,
	}
}

type toolResultMessage struct {
	Result       domain.ToolResult `json:"result"`
	Data         json.RawMessage   `json:"data,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// toolResultContent is the tool message fed back to the model.
func toolResultContent(rec domain.ToolCallRecord) string {
	out := toolResultMessage{Result: rec.Result}
	if rec.Succeeded() {
		out.Data = rec.Output
	} else {
		out.ErrorMessage = rec.ErrorMessage
	}
	b, err := json.Marshal(out)
	if err != nil {
		return `{"result":"error","error_message":"unencodable tool output"}`
	}
	return string(b)
}
