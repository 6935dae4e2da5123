package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// MockClient is a rule-based LLMClient for offline runs and tests. It maps
// common task phrasing to tool calls and summarizes tool results in text.
type MockClient struct {
	seq atomic.Int64
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

var (
	updatePattern   = regexp.MustCompile(`(?i)\b(?:rename|update|change)\s+(?:task\s*)?#?(\d+)\s+(?:to|:)\s*(.+)$`)
	deletePattern   = regexp.MustCompile(`(?i)\b(?:delete|remove)\b.*?#?(\d+)`)
	completePattern = regexp.MustCompile(`(?i)\b(?:complete|finish|done with|mark)\b.*?#?(\d+)`)
	addPattern      = regexp.MustCompile(`(?i)\b(?:add|create|remember)\b(?:\s+a)?(?:\s+new)?\s+(?:task|todo)(?:\s+to|:)?\s+(.+)$`)
	listPattern     = regexp.MustCompile(`(?i)\b(?:list|show|what are|what's on)\b.*\b(?:tasks?|todos?|list)\b`)
)

// CreateChatCompletion returns a tool call or text response based on the
// trailing messages of the request.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg := &ChatMessage{Role: RoleAssistant}
	finish := "stop"

	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == RoleTool {
		msg.Content = m.summarizeToolResults(req.Messages)
	} else if call := m.matchToolCall(lastUserContent(req.Messages), req.Tools); call != nil {
		msg.ToolCalls = []ToolCall{*call}
		finish = "tool_calls"
	} else {
		msg.Content = "I can add, list, complete, update or delete your tasks. " +
			`Try "add a task to buy milk" or "show my tasks".`
	}

	prompt := m.estimateTokens(req)
	completion := len(msg.Content) / 4
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      msg,
				FinishReason: finish,
			},
		},
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		SystemFingerprint: "mock-fp",
	}, nil
}

func (m *MockClient) matchToolCall(text string, tools []Tool) *ToolCall {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var name string
	var args map[string]interface{}
	switch {
	case updatePattern.MatchString(text):
		sub := updatePattern.FindStringSubmatch(text)
		id, _ := strconv.ParseInt(sub[1], 10, 64)
		name, args = "update_task", map[string]interface{}{"task_id": id, "title": strings.TrimSpace(sub[2])}
	case addPattern.MatchString(text):
		title := strings.TrimRight(strings.TrimSpace(addPattern.FindStringSubmatch(text)[1]), ".!")
		name, args = "add_task", map[string]interface{}{"title": title}
	case deletePattern.MatchString(text):
		id, _ := strconv.ParseInt(deletePattern.FindStringSubmatch(text)[1], 10, 64)
		name, args = "delete_task", map[string]interface{}{"task_id": id}
	case completePattern.MatchString(text):
		id, _ := strconv.ParseInt(completePattern.FindStringSubmatch(text)[1], 10, 64)
		name, args = "complete_task", map[string]interface{}{"task_id": id}
	case listPattern.MatchString(text):
		status := "all"
		lower := strings.ToLower(text)
		if strings.Contains(lower, "pending") || strings.Contains(lower, "open") {
			status = "pending"
		} else if strings.Contains(lower, "completed") || strings.Contains(lower, "done") {
			status = "completed"
		}
		name, args = "list_tasks", map[string]interface{}{"status": status}
	default:
		return nil
	}

	if len(tools) > 0 && !declared(tools, name) {
		return nil
	}
	encoded, _ := json.Marshal(args)
	return &ToolCall{
		ID:   fmt.Sprintf("call_mock_%d", m.seq.Add(1)),
		Type: "function",
		Function: ToolCallFunction{
			Name:      name,
			Arguments: string(encoded),
		},
	}
}

type toolResultContent struct {
	Result       string          `json:"result"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"error_message"`
}

type taskData struct {
	TaskID    int64      `json:"task_id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Tasks     []taskData `json:"tasks"`
	Count     int        `json:"count"`
}

// summarizeToolResults describes the trailing tool messages in plain text.
func (m *MockClient) summarizeToolResults(messages []ChatMessage) string {
	start := len(messages)
	for start > 0 && messages[start-1].Role == RoleTool {
		start--
	}
	names := map[string]string{}
	if start > 0 {
		for _, tc := range messages[start-1].ToolCalls {
			names[tc.ID] = tc.Function.Name
		}
	}

	var lines []string
	for _, msg := range messages[start:] {
		tool := names[msg.ToolCallID]
		var content toolResultContent
		if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
			lines = append(lines, fmt.Sprintf("I ran %s.", tool))
			continue
		}
		if content.Result != "success" {
			lines = append(lines, fmt.Sprintf("I couldn't run %s: %s.", tool, content.ErrorMessage))
			continue
		}
		var data taskData
		_ = json.Unmarshal(content.Data, &data)
		switch tool {
		case "add_task":
			lines = append(lines, fmt.Sprintf("Added task %d: %q.", data.TaskID, data.Title))
		case "complete_task":
			lines = append(lines, fmt.Sprintf("Marked task %d (%q) as completed.", data.TaskID, data.Title))
		case "update_task":
			lines = append(lines, fmt.Sprintf("Updated task %d to %q.", data.TaskID, data.Title))
		case "delete_task":
			lines = append(lines, fmt.Sprintf("Deleted task %d (%q).", data.TaskID, data.Title))
		case "list_tasks":
			if data.Count == 0 {
				lines = append(lines, "You have no tasks.")
				continue
			}
			lines = append(lines, fmt.Sprintf("You have %d task(s):", data.Count))
			for _, t := range data.Tasks {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				lines = append(lines, fmt.Sprintf("%s %d. %s", box, t.TaskID, t.Title))
			}
		default:
			lines = append(lines, fmt.Sprintf("Done with %s.", tool))
		}
	}
	if len(lines) == 0 {
		return "Done."
	}
	return strings.Join(lines, "\n")
}

// estimateTokens provides a rough token estimate.
func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

func lastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func declared(tools []Tool, name string) bool {
	for _, t := range tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}
