package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/tests/fixtures"
)

func TestNewServer(t *testing.T) {
	svc, _ := fixtures.NewService(t, nil)
	e := NewServer(svc, fixtures.Config(), zerolog.Nop())

	t.Run("Health Has Request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("Chat", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":"add a task to call mom"}`)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("X-User-ID", "alice")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"tool":"add_task"`)
	})

	t.Run("Oversized Body", func(t *testing.T) {
		body := `{"message":"` + strings.Repeat("a", 70*1024) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("X-User-ID", "alice")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

		conversations, err := svc.ListConversations(context.Background(), "alice", 10)
		assert.NoError(t, err)
		assert.Len(t, conversations, 1)
	})

	t.Run("WebSocket Requires User", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Unknown Route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
