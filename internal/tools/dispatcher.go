package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/policy"
)

// Invocation is one tool call requested by the model.
type Invocation struct {
	CallID    string
	Name      string
	Arguments string
}

// PolicyEvaluator decides whether a validated call may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

// DispatcherConfig bounds tool execution.
type DispatcherConfig struct {
	Timeout       time.Duration
	Concurrency   int
	DisabledTools []string
}

// Dispatcher turns invocations into ToolCallRecords. It never returns an
// error: every failure becomes a record with result "error".
type Dispatcher struct {
	registry *Registry
	policy   PolicyEvaluator
	cfg      DispatcherConfig
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. evaluator may be nil to allow every call.
func NewDispatcher(registry *Registry, evaluator PolicyEvaluator, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DisabledTools == nil {
		cfg.DisabledTools = []string{}
	}
	return &Dispatcher{
		registry: registry,
		policy:   evaluator,
		cfg:      cfg,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// DispatchAll runs a batch and returns one record per invocation, in order.
// A failing call never prevents the others from running.
func (d *Dispatcher) DispatchAll(ctx context.Context, ownerID string, invocations []Invocation) []domain.ToolCallRecord {
	if len(invocations) == 0 {
		return []domain.ToolCallRecord{}
	}
	mapper := iter.Mapper[Invocation, domain.ToolCallRecord]{MaxGoroutines: d.cfg.Concurrency}
	return mapper.Map(invocations, func(inv *Invocation) domain.ToolCallRecord {
		return d.Dispatch(ctx, ownerID, *inv)
	})
}

// Dispatch resolves, validates, checks policy and executes one invocation.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID string, inv Invocation) (rec domain.ToolCallRecord) {
	args, argsErr := NormalizeArguments(inv.Arguments)
	rec = domain.ToolCallRecord{
		CallID:     inv.CallID,
		Tool:       inv.Name,
		Parameters: args,
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Str("tool", inv.Name).Msg("tool dispatch panicked")
			rec.Result = domain.ToolResultError
			rec.ErrorMessage = "internal error executing " + inv.Name
			rec.Output = nil
		}
	}()

	output, err := d.run(ctx, ownerID, inv.Name, args, argsErr)
	if err != nil {
		rec.Result = domain.ToolResultError
		rec.ErrorMessage = d.errorMessage(inv.Name, err)
		d.logger.Debug().Err(err).Str("tool", inv.Name).Str("owner_id", ownerID).Msg("tool call failed")
		return rec
	}
	rec.Result = domain.ToolResultSuccess
	rec.Output = output
	return rec
}

func (d *Dispatcher) run(ctx context.Context, ownerID, name string, args json.RawMessage, argsErr error) (json.RawMessage, error) {
	tool, err := d.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if argsErr != nil {
		return nil, &ValidationError{Tool: name, Reasons: []string{argsErr.Error()}}
	}
	if err := tool.Validate(args); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := d.checkPolicy(ctx, ownerID, name, args); err != nil {
		return nil, err
	}
	return d.execute(ctx, tool, ownerID, args)
}

func (d *Dispatcher) checkPolicy(ctx context.Context, ownerID, name string, args json.RawMessage) error {
	if d.policy == nil {
		return nil
	}
	var argsMap map[string]interface{}
	_ = json.Unmarshal(args, &argsMap)
	input := map[string]interface{}{
		"tool_name":      name,
		"user_id":        ownerID,
		"args":           argsMap,
		"disabled_tools": d.cfg.DisabledTools,
	}
	decision, reason, err := d.policy.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if decision == policy.DecisionBlock {
		return &PolicyError{Tool: name, Reason: reason}
	}
	return nil
}

type execResult struct {
	output json.RawMessage
	err    error
}

// execute runs the handler under the dispatch timeout. A handler that ignores
// cancellation is abandoned once the deadline passes.
func (d *Dispatcher) execute(ctx context.Context, tool *Tool, ownerID string, args json.RawMessage) (json.RawMessage, error) {
	if d.cfg.Timeout <= 0 {
		return tool.handler(ctx, ownerID, args)
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	done := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error().Interface("panic", r).Str("tool", tool.Name).Msg("tool handler panicked")
				done <- execResult{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		out, err := tool.handler(ctx, ownerID, args)
		done <- execResult{output: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Tool: tool.Name, Timeout: d.cfg.Timeout}
		}
		return res.output, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Tool: tool.Name, Timeout: d.cfg.Timeout}
		}
		return nil, ctx.Err()
	}
}

// errorMessage turns err into the user-facing error_message. Unexpected
// failures are logged and reported generically.
func (d *Dispatcher) errorMessage(name string, err error) string {
	var unknown *UnknownToolError
	var invalid *ValidationError
	var blocked *PolicyError
	var timeout *TimeoutError
	switch {
	case errors.As(err, &unknown), errors.As(err, &invalid), errors.As(err, &blocked), errors.As(err, &timeout):
		return err.Error()
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrTaskForbidden),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrUnauthenticated):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "tool " + name + " was cancelled"
	default:
		d.logger.Error().Err(err).Str("tool", name).Msg("tool execution failed")
		return "internal error executing " + name
	}
}

// NormalizeArguments compacts the model's argument string. Non-object or
// malformed arguments are reported and recorded as an empty object.
func NormalizeArguments(raw string) (json.RawMessage, error) {
	if len(bytes.TrimSpace([]byte(raw))) == 0 {
		return json.RawMessage(`{}`), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return json.RawMessage(`{}`), fmt.Errorf("arguments are not valid JSON")
	}
	if buf.Len() == 0 || buf.Bytes()[0] != '{' {
		return json.RawMessage(`{}`), fmt.Errorf("arguments must be a JSON object")
	}
	return json.RawMessage(buf.Bytes()), nil
}
