// Package fixtures builds fully wired services for transport tests.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/config"
	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/tools"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/policy"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/tests/helpers"
)

// ClientFunc adapts a function to llm.LLMClient.
type ClientFunc func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)

func (f ClientFunc) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return f(ctx, req)
}

// Config returns a configuration with short timeouts for tests.
func Config() *config.Config {
	return &config.Config{
		HTTPPort:               8080,
		UserHeader:             "X-User-ID",
		DatabaseDriver:         "sqlite3",
		LLMModel:               "mock",
		AgentMaxRounds:         3,
		HistoryLimit:           50,
		MaxMessageLength:       2000,
		LLMTimeout:             time.Second,
		ToolTimeout:            time.Second,
		StoreTimeout:           time.Second,
		ToolConcurrency:        1,
		SerializeConversations: true,
	}
}

// NewService wires a service over an in-memory store. A nil client uses the
// offline mock model.
func NewService(t *testing.T, client llm.LLMClient) (*service.Service, *store.SQLiteStore) {
	t.Helper()
	if client == nil {
		client = llm.NewMockClient()
	}
	cfg := Config()
	db := helpers.NewTestSQLiteStore(t)

	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterTaskTools(registry, db))
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	dispatcher := tools.NewDispatcher(registry, engine, tools.DispatcherConfig{
		Timeout:     cfg.ToolTimeout,
		Concurrency: cfg.ToolConcurrency,
	}, zerolog.Nop())

	return service.New(db, client, dispatcher, cfg, zerolog.Nop()), db
}
