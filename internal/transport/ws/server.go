// Package ws serves the chat turn over a WebSocket connection.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
	v1 "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/http/v1"
)

const (
	defaultMaxMessageSize = 64 * 1024
	defaultReadTimeout    = 60 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultPingInterval   = 54 * time.Second
	sendBuffer            = 16
)

// Options tunes connection keepalive and limits. Zero values use defaults.
type Options struct {
	MaxMessageSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.ReadTimeout {
		o.PingInterval = o.ReadTimeout * 9 / 10
	}
	return o
}

// Server handles WebSocket connections.
type Server struct {
	service    *service.Service
	userHeader string
	opts       Options
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service, userHeader string, opts Options, logger zerolog.Logger) *Server {
	if userHeader == "" {
		userHeader = v1.DefaultUserHeader
	}
	return &Server{
		service:    svc,
		userHeader: userHeader,
		opts:       opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", s.HandleWebSocket)
}

type connection struct {
	id      string
	ownerID string
	conn    *websocket.Conn
	send    chan []byte
	turns   sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// HandleWebSocket authenticates the upgrade request and runs the connection.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ownerID := strings.TrimSpace(c.Request().Header.Get(s.userHeader))
	if ownerID == "" {
		status, body := v1.MapError(domain.ErrUnauthenticated)
		return c.JSON(status, body)
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	conn := &connection{
		id:      uuid.New().String(),
		ownerID: ownerID,
		conn:    ws,
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)
	s.logger.Debug().Str("connection_id", conn.id).Str("owner_id", ownerID).Msg("websocket connected")

	go s.writePump(conn)
	s.readPump(conn)
	return nil
}

// readPump reads frames until the peer goes away, then waits for running
// turns and closes the send channel.
func (s *Server) readPump(conn *connection) {
	defer func() {
		conn.cancel()
		conn.turns.Wait()
		close(conn.send)
		s.logger.Debug().Str("connection_id", conn.id).Msg("websocket disconnected")
	}()

	_ = conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Str("connection_id", conn.id).Msg("websocket read error")
			}
			return
		}
		s.handleMessage(conn, data)
	}
}

// writePump is the only writer on the connection.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				_ = conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn().Err(err).Str("connection_id", conn.id).Msg("failed to write message")
				conn.cancel()
				return
			}

		case <-ticker.C:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.cancel()
				return
			}
		}
	}
}

func (s *Server) handleMessage(conn *connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message", false, "")
		return
	}

	switch base.Type {
	case TypeChat:
		var msg ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "invalid chat message", false, "")
			return
		}
		conn.turns.Add(1)
		go func() {
			defer conn.turns.Done()
			s.handleChat(conn, msg)
		}()
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type, false, "")
	}
}

func (s *Server) handleChat(conn *connection, msg ChatMessage) {
	resp, err := s.service.Chat(conn.ctx, conn.ownerID, domain.ChatRequest{
		Message:        msg.Message,
		ConversationID: msg.ConversationID,
	})
	if err != nil {
		status, body := v1.MapError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("connection_id", conn.id).Str("request_id", msg.RequestID).Msg("chat turn failed")
		}
		s.sendError(conn, msg.RequestID, errorCode(status), body.Error, body.Retryable, body.ConversationID)
		return
	}

	s.sendJSON(conn, ChatResponseMessage{
		BaseMessage:  BaseMessage{Type: TypeChatResponse, RequestID: msg.RequestID},
		ChatResponse: *resp,
	})
}

func (s *Server) sendError(conn *connection, requestID, code, message string, retryable bool, conversationID string) {
	s.sendJSON(conn, ErrorMessage{
		BaseMessage:    BaseMessage{Type: TypeError, RequestID: requestID},
		Code:           code,
		Message:        message,
		Retryable:      retryable,
		ConversationID: conversationID,
	})
}

func (s *Server) sendJSON(conn *connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode frame")
		return
	}
	select {
	case conn.send <- data:
	case <-conn.ctx.Done():
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusServiceUnavailable:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeInternal
	}
}
