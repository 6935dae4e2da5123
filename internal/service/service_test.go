package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/agent"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/config"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/tools"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/policy"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/tests/helpers"
)

type clientFunc func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)

func (f clientFunc) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return f(ctx, req)
}

func testConfig() *config.Config {
	return &config.Config{
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

func newTestService(t *testing.T, client llm.LLMClient, cfg *config.Config) (*Service, *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	db := helpers.NewTestSQLiteStore(t)

	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterTaskTools(registry, db))
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	dispatcher := tools.NewDispatcher(registry, engine, tools.DispatcherConfig{
		Timeout:       cfg.ToolTimeout,
		Concurrency:   cfg.ToolConcurrency,
		DisabledTools: cfg.DisabledTools,
	}, zerolog.Nop())

	return New(db, client, dispatcher, cfg, zerolog.Nop()), db
}

func TestChatAddTask(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, llm.NewMockClient(), testConfig())

	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "  add a task to buy milk  "})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.Response)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Tool)
	assert.Equal(t, domain.ToolResultSuccess, resp.ToolCalls[0].Result)
	assert.Nil(t, resp.ToolCalls[0].ErrorMessage)
	assert.JSONEq(t, `{"title":"buy milk"}`, string(resp.ToolCalls[0].Parameters))

	history, err := db.LoadHistory(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "add a task to buy milk", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, resp.Response, history[1].Content)
	require.Len(t, history[1].ToolCalls, 1)

	tasks, err := db.ListTasks(ctx, "alice", domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Title)

	events, err := svc.ListEvents(ctx, "alice", resp.ConversationID, 0, 0)
	require.NoError(t, err)
	var types []domain.EventType
	ids := map[string]bool{}
	for _, e := range events {
		types = append(types, e.Type)
		id := strings.TrimPrefix(e.EventID, "evt_")
		_, err := uuid.Parse(id)
		assert.NoError(t, err, "event id %s should carry a full uuid", e.EventID)
		ids[e.EventID] = true
	}
	assert.Len(t, ids, len(events))
	assert.Equal(t, []domain.EventType{
		domain.EventTypeTurnStarted,
		domain.EventTypeLLMCallDone,
		domain.EventTypeToolResult,
		domain.EventTypeLLMCallDone,
		domain.EventTypeTurnDone,
	}, types)
}

func TestChatContinuesConversation(t *testing.T) {
	ctx := context.Background()
	var seen []int
	client := clientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		seen = append(seen, len(req.Messages))
		return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: &llm.ChatMessage{Content: "ok"}}}}, nil
	})
	svc, _ := newTestService(t, client, testConfig())

	first, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	second, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "again", ConversationID: first.ConversationID})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// system + user, then system + 2 history + user
	assert.Equal(t, []int{2, 4}, seen)
	assert.NotNil(t, second.ToolCalls)
	assert.Empty(t, second.ToolCalls)
}

func TestChatRejectsEmptyMessageBeforeWriting(t *testing.T) {
	ctx := context.Background()
	called := false
	client := clientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		called = true
		return nil, errors.New("unexpected")
	})
	svc, db := newTestService(t, client, testConfig())

	for _, msg := range []string{"", "   ", "\n\t "} {
		_, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: msg})
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	}
	assert.False(t, called)

	convs, err := db.ListConversations(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestChatRejectsLongMessage(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageLength = 5
	svc, _ := newTestService(t, llm.NewMockClient(), cfg)

	_, err := svc.Chat(context.Background(), "alice", domain.ChatRequest{Message: "abcdef"})
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)

	_, err = svc.Chat(context.Background(), "alice", domain.ChatRequest{Message: "héllo"})
	assert.NoError(t, err)
}

func TestChatRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient(), testConfig())
	_, err := svc.Chat(context.Background(), "", domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestChatRejectsForeignConversation(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, llm.NewMockClient(), testConfig())

	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	_, err = svc.Chat(ctx, "bob", domain.ChatRequest{Message: "add a task to steal", ConversationID: resp.ConversationID})
	assert.ErrorIs(t, err, domain.ErrConversationForbidden)

	history, err := db.LoadHistory(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = svc.GetMessages(ctx, "bob", resp.ConversationID, 0)
	assert.ErrorIs(t, err, domain.ErrConversationForbidden)

	_, err = svc.Chat(ctx, "bob", domain.ChatRequest{Message: "hi", ConversationID: "conv_nope"})
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestChatModelUnavailableKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	client := clientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
	})
	svc, db := newTestService(t, client, testConfig())

	_, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "add a task to buy milk"})
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.NotContains(t, err.Error(), "10.0.0.1")

	var turnErr *domain.TurnError
	require.ErrorAs(t, err, &turnErr)
	history, err := db.LoadHistory(ctx, turnErr.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)

	tasks, err := db.ListTasks(ctx, "alice", domain.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	events, err := db.ListEvents(ctx, turnErr.ConversationID, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventTypeTurnFailed, events[len(events)-1].Type)
}

func TestChatRoundLimitPersistsAllRecords(t *testing.T) {
	ctx := context.Background()
	client := clientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: &llm.ChatMessage{
			ToolCalls: []llm.ToolCall{
				{ID: "a", Type: "function", Function: llm.ToolCallFunction{Name: "list_tasks", Arguments: `{}`}},
				{ID: "b", Type: "function", Function: llm.ToolCallFunction{Name: "nope", Arguments: `{}`}},
			},
		}}}}, nil
	})
	cfg := testConfig()
	cfg.AgentMaxRounds = 2
	svc, db := newTestService(t, client, cfg)

	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "spin"})
	require.NoError(t, err)
	assert.Equal(t, agent.RoundLimitText, resp.Response)
	assert.Len(t, resp.ToolCalls, 6)

	history, err := db.LoadHistory(ctx, resp.ConversationID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Len(t, history[1].ToolCalls, 6)
	for _, tc := range resp.ToolCalls {
		if tc.Result == domain.ToolResultError {
			require.NotNil(t, tc.ErrorMessage)
			assert.NotEmpty(t, *tc.ErrorMessage)
		}
	}
}

func TestChatSerializesTurnsOnSameConversation(t *testing.T) {
	ctx := context.Background()
	var inFlight, maxInFlight atomic.Int32
	client := clientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: &llm.ChatMessage{Content: "ok"}}}}, nil
	})
	svc, db := newTestService(t, client, testConfig())

	first, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "start"})
	require.NoError(t, err)
	maxInFlight.Store(0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "next", ConversationID: first.ConversationID})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, 0, svc.locks.size())

	history, err := db.LoadHistory(ctx, first.ConversationID, 0)
	require.NoError(t, err)
	require.Len(t, history, 10)
	// Serialized turns never interleave: roles strictly alternate.
	for i, m := range history {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		assert.Equal(t, want, m.Role)
	}
}

func TestGetMessagesAndConversations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, llm.NewMockClient(), testConfig())

	resp, err := svc.Chat(ctx, "alice", domain.ChatRequest{Message: "add a task to water plants"})
	require.NoError(t, err)

	msgs, err := svc.GetMessages(ctx, "alice", resp.ConversationID, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)

	convs, err := svc.ListConversations(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, resp.ConversationID, convs[0].ConversationID)

	names := []string{}
	for _, tool := range svc.ListTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, "add_task,list_tasks,complete_task,update_task,delete_task", strings.Join(names, ","))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "c1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "c1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := k.Lock(context.Background(), "c2")
	require.NoError(t, err)
	other()

	unlock()
	assert.Equal(t, 0, k.size())
}
