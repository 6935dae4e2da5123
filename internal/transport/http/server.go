// Package http provides the HTTP server for the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/config"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
	v1 "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/http/v1"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/ws"
)

// BodyLimit caps request bodies. It matches the WebSocket frame limit.
const BodyLimit = "64K"

// NewServer creates and configures the external HTTP server.
// It serves the REST chat API and the WebSocket chat endpoint.
func NewServer(svc *service.Service, cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	accessLog := logger.With().Str("component", "access").Logger()

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := accessLog.Info()
			if v.Error != nil || v.Status >= 500 {
				event = accessLog.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(BodyLimit))
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg.UserHeader, logger)
	wsServer := ws.NewServer(svc, cfg.UserHeader, ws.Options{}, logger)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)

	return e
}
