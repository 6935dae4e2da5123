package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

const (
	msgRetry       = "The assistant is temporarily unavailable. Please try again."
	msgInternal    = "Something went wrong. Please try again."
	msgNotFound    = "conversation not found"
	msgBadRequest  = "invalid request body"
	msgMissingUser = "missing user identity"

	msgInvalidAfterTs = "after_ts must be a non-negative unix timestamp in milliseconds"
)

// MapError converts a service error to a status code and a body that is safe
// to show the caller. Raw causes never leave this function.
func MapError(err error) (int, domain.ErrorResponse) {
	var body domain.ErrorResponse
	var turnErr *domain.TurnError
	if errors.As(err, &turnErr) {
		body.ConversationID = turnErr.ConversationID
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		body.Error = msgMissingUser
		return http.StatusUnauthorized, body
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrMessageTooLong):
		body.Error = err.Error()
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrConversationNotFound), errors.Is(err, domain.ErrConversationForbidden):
		body.Error = msgNotFound
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrModelUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		body.Error = msgRetry
		body.Retryable = true
		return http.StatusServiceUnavailable, body
	default:
		body.Error = msgInternal
		body.Retryable = true
		return http.StatusInternalServerError, body
	}
}

func (h *Handler) writeError(c echo.Context, err error) error {
	status, body := MapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Int("status", status).
			Msg("request failed")
	}
	return c.JSON(status, body)
}
