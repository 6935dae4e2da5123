package tools

import (
	"fmt"
	"strings"
	"time"
)

// UnknownToolError is returned when the model names an undeclared tool.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// ValidationError reports arguments that do not match a tool's schema.
type ValidationError struct {
	Tool    string
	Reasons []string
}

func (e *ValidationError) Error() string {
	msg := "invalid arguments"
	if e.Tool != "" {
		msg += " for " + e.Tool
	}
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, "; ")
	}
	return msg
}

// PolicyError reports a call blocked by the tool policy.
type PolicyError struct {
	Tool   string
	Reason string
}

func (e *PolicyError) Error() string {
	if e.Reason == "" {
		return "blocked by policy: " + e.Tool
	}
	return "blocked by policy: " + e.Reason
}

// TimeoutError reports a handler that exceeded the dispatch timeout.
type TimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Tool, e.Timeout)
}
