// Package v1 provides the HTTP handlers for the chat API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service    *service.Service
	userHeader string
	logger     zerolog.Logger
}

// NewHandler creates a new handler. userHeader names the request header
// carrying the pre-validated user id.
func NewHandler(service *service.Service, userHeader string, logger zerolog.Logger) *Handler {
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}
	return &Handler{
		service:    service,
		userHeader: userHeader,
		logger:     logger.With().Str("component", "http").Logger(),
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/chat", h.Chat, h.RequireUser)

	api := e.Group("/api/v1", h.RequireUser)
	api.POST("/chat", h.Chat)
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:conversation_id/messages", h.GetConversationMessages)
	api.GET("/conversations/:conversation_id/events", h.GetConversationEvents)
	api.GET("/tools", h.ListTools)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Health(c.Request().Context()); err != nil {
		h.logger.Warn().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
