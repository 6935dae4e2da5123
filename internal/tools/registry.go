package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// HandlerFunc executes a tool on behalf of ownerID with schema-validated args.
type HandlerFunc func(ctx context.Context, ownerID string, args json.RawMessage) (json.RawMessage, error)

// Tool is a declared tool: its schema and its execution binding.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage

	compiled *gojsonschema.Schema
	handler  HandlerFunc
}

// Registry stores tools keyed by name, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a new tool. Duplicate names and schemas that do not compile
// are configuration errors.
func (r *Registry) Register(name, description string, schema json.RawMessage, handler HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required for %s", name)
	}
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		compiled:    compiled,
		handler:     handler,
	}
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(name, description string, schema json.RawMessage, handler HandlerFunc) {
	if err := r.Register(name, description, schema, handler); err != nil {
		panic(err)
	}
}

// Resolve returns the tool registered under name, or an *UnknownToolError.
func (r *Registry) Resolve(name string) (*Tool, error) {
	r.mu.RLock()
	tool := r.tools[name]
	r.mu.RUnlock()
	if tool == nil {
		return nil, &UnknownToolError{Name: name}
	}
	return tool, nil
}

// List returns all tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Validate checks args against the tool's schema.
func (t *Tool) Validate(args json.RawMessage) error {
	result, err := t.compiled.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &ValidationError{Tool: t.Name, Reasons: []string{"arguments are not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}
	reasons := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}
	return &ValidationError{Tool: t.Name, Reasons: reasons}
}

// Typed adapts a handler over a decoded argument struct.
func Typed[T any, R any](fn func(ctx context.Context, ownerID string, args T) (R, error)) HandlerFunc {
	return func(ctx context.Context, ownerID string, raw json.RawMessage) (json.RawMessage, error) {
		var args T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, &ValidationError{Reasons: []string{err.Error()}}
			}
		}
		out, err := fn(ctx, ownerID, args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	}
}
