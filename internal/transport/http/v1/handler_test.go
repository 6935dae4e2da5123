package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/tests/fixtures"
)

func newTestHandler(t *testing.T, client llm.LLMClient) *Handler {
	t.Helper()
	svc, _ := fixtures.NewService(t, client)
	return NewHandler(svc, DefaultUserHeader, zerolog.Nop())
}

func newTestServer(t *testing.T, client llm.LLMClient) *echo.Echo {
	t.Helper()
	e := echo.New()
	newTestHandler(t, client).RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, ownerID string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ownerID != "" {
		req.Header.Set(DefaultUserHeader, ownerID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(t, nil)

	reqBody, _ := json.Marshal(domain.ChatRequest{Message: "add a task to buy milk"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(DefaultUserHeader, "alice")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.RequireUser(handler.Chat)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.Response)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Tool)
	assert.Equal(t, domain.ToolResultSuccess, resp.ToolCalls[0].Result)
	assert.Contains(t, rec.Body.String(), `"error_message":null`)
}

func TestChatErrors(t *testing.T) {
	e := newTestServer(t, nil)

	t.Run("Missing User", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/chat", "", domain.ChatRequest{Message: "hi"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Whitespace Message", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/chat", "alice", domain.ChatRequest{Message: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Invalid Body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":`)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(DefaultUserHeader, "alice")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unknown Conversation", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/chat", "alice", domain.ChatRequest{Message: "hi", ConversationID: "conv_missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Foreign Conversation", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/chat", "alice", domain.ChatRequest{Message: "list my tasks"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		rec = doJSON(e, http.MethodPost, "/api/v1/chat", "bob", domain.ChatRequest{Message: "hi", ConversationID: resp.ConversationID})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), "alice")
	})
}

func TestChatModelUnavailable(t *testing.T) {
	client := fixtures.ClientFunc(func(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
	})
	e := newTestServer(t, client)

	rec := doJSON(e, http.MethodPost, "/chat", "alice", domain.ChatRequest{Message: "add a task to buy milk"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Retryable)
	require.NotEmpty(t, body.ConversationID)

	rec = doJSON(e, http.MethodGet, "/api/v1/conversations/"+body.ConversationID+"/messages", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history domain.MessageListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, domain.RoleUser, history.Messages[0].Role)
}

func TestConversationEndpoints(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/chat", "alice", domain.ChatRequest{Message: "add a task to buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	var chat domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))

	t.Run("List Conversations", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/conversations", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.ConversationListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Conversations, 1)
		assert.Equal(t, chat.ConversationID, resp.Conversations[0].ConversationID)

		rec = doJSON(e, http.MethodGet, "/api/v1/conversations", "bob", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Conversations)
	})

	t.Run("Messages", func(t *testing.T) {
		e2 := echo.New()
		handler := newTestHandler(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e2.NewContext(req, rec)
		c.SetPath("/api/v1/conversations/:conversation_id/messages")
		c.SetParamNames("conversation_id")
		c.SetParamValues("conv_missing")
		c.Set(ownerKey, "alice")

		require.NoError(t, handler.GetConversationMessages(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/messages?limit=10", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.MessageListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 2)
		assert.Equal(t, domain.RoleUser, resp.Messages[0].Role)
		assert.Equal(t, domain.RoleAssistant, resp.Messages[1].Role)
		require.Len(t, resp.Messages[1].ToolCalls, 1)
		assert.Equal(t, "add_task", resp.Messages[1].ToolCalls[0].Tool)

		rec = doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/messages", "bob", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Events", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/events", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Events)
		assert.Equal(t, domain.EventTypeTurnStarted, resp.Events[0].Type)
		assert.Equal(t, domain.EventTypeTurnDone, resp.Events[len(resp.Events)-1].Type)

		rec = doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/events", "bob", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Events After Timestamp", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/events?after_ts=9999999999999", "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Events)

		for _, bad := range []string{"yesterday", "-5", "1.5"} {
			rec = doJSON(e, http.MethodGet, "/api/v1/conversations/"+chat.ConversationID+"/events?after_ts="+bad, "alice", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "after_ts=%s", bad)
			assert.Contains(t, rec.Body.String(), "after_ts")
		}
	})
}

func TestListTools(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/api/v1/tools", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListToolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	names := make([]string, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"add_task", "list_tasks", "complete_task", "update_task", "delete_task"}, names)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, false},
		{"empty", domain.ErrEmptyMessage, http.StatusBadRequest, false},
		{"forbidden", domain.ErrConversationForbidden, http.StatusNotFound, false},
		{"model", &domain.TurnError{ConversationID: "conv_1", Err: domain.ErrModelUnavailable}, http.StatusServiceUnavailable, true},
		{"store", errors.New("database is locked"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := MapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.retryable, body.Retryable)
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "database")
		})
	}
}
