package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// ListConversations lists the caller's conversations.
// GET /api/v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	limit := queryInt(c, "limit", 50)

	conversations, err := h.service.ListConversations(c.Request().Context(), OwnerID(c), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ConversationListResponse{Conversations: conversations})
}

// GetConversationMessages retrieves the history of a conversation.
// GET /api/v1/conversations/:conversation_id/messages
func (h *Handler) GetConversationMessages(c echo.Context) error {
	conversationID := c.Param("conversation_id")
	limit := queryInt(c, "limit", 0)

	messages, err := h.service.GetMessages(c.Request().Context(), OwnerID(c), conversationID, limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.MessageListResponse{
		ConversationID: conversationID,
		Messages:       messages,
	})
}

// GetConversationEvents retrieves the audit events of a conversation.
// GET /api/v1/conversations/:conversation_id/events
func (h *Handler) GetConversationEvents(c echo.Context) error {
	conversationID := c.Param("conversation_id")
	limit := queryInt(c, "limit", 100)
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		val, err := strconv.ParseInt(t, 10, 64)
		if err != nil || val < 0 {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: msgInvalidAfterTs})
		}
		afterTs = val
	}

	events, err := h.service.ListEvents(c.Request().Context(), OwnerID(c), conversationID, afterTs, limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.EventListResponse{Events: events})
}

// ListTools lists the declared tools.
// GET /api/v1/tools
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.ListToolsResponse{Tools: h.service.ListTools()})
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			return val
		}
	}
	return def
}
