package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// Chat runs one conversational turn.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: msgBadRequest})
	}

	resp, err := h.service.Chat(c.Request().Context(), OwnerID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
