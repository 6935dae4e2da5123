package v1

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// DefaultUserHeader carries the caller identity resolved by the front end.
const DefaultUserHeader = "X-User-ID"

const ownerKey = "owner_id"

// RequireUser rejects requests without a user id and stores it on the context.
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID := strings.TrimSpace(c.Request().Header.Get(h.userHeader))
		if ownerID == "" {
			return h.writeError(c, domain.ErrUnauthenticated)
		}
		c.Set(ownerKey, ownerID)
		return next(c)
	}
}

// OwnerID returns the authenticated user id for the request.
func OwnerID(c echo.Context) string {
	id, _ := c.Get(ownerKey).(string)
	return id
}
