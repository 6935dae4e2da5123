package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(ctx, map[string]interface{}{
		"tool_name":      "add_task",
		"user_id":        "u1",
		"args":           map[string]interface{}{"title": "milk"},
		"disabled_tools": []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
	assert.Empty(t, reason)

	decision, reason, err = engine.Evaluate(ctx, map[string]interface{}{
		"tool_name":      "delete_task",
		"user_id":        "u1",
		"args":           map[string]interface{}{"task_id": 1},
		"disabled_tools": []string{"delete_task"},
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Equal(t, "tool delete_task is disabled", reason)
}

func TestCustomPolicyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "policy.rego")
	content := `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "delete_task"
	input.user_id == "guest"
}

reason = "guests cannot delete" {
	input.user_id == "guest"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	engine, err := LoadEngine(ctx, path)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(ctx, map[string]interface{}{"tool_name": "delete_task", "user_id": "guest"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Equal(t, "guests cannot delete", reason)

	decision, _, err = engine.Evaluate(ctx, map[string]interface{}{"tool_name": "delete_task", "user_id": "alice"})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestLoadEngineMissingFile(t *testing.T) {
	_, err := LoadEngine(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}

func TestNewEngineInvalidModule(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\n\ndecision = {")
	assert.Error(t, err)
}
