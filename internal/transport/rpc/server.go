// Package rpc exposes the chat service over JSON-RPC for trusted internal clients.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
	v1 "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/http/v1"
)

// Server exposes internal RPC endpoints for front ends that already resolved
// the caller identity.
type Server struct {
	listener  net.Listener
	rpcServer *rpc.Server
	logger    zerolog.Logger
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the chat service.
func NewServer(svc *service.Service, logger zerolog.Logger) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName("Orchestrator", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		logger:    logger.With().Str("component", "rpc").Logger(),
		done:      make(chan struct{}),
	}, nil
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the listener without accepting connections yet.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections on the bound listener.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("rpc server is not listening")
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.logger.Warn().Err(err).Msg("rpc accept error")
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	if err := s.listener.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements orchestrator RPC methods.
type Handler struct {
	service *service.Service
}

// ChatArgs carries one chat turn together with the resolved caller.
type ChatArgs struct {
	OwnerID string `json:"owner_id"`
	domain.ChatRequest
}

// ListConversationsArgs selects the caller's conversations.
type ListConversationsArgs struct {
	OwnerID string `json:"owner_id"`
	Limit   int    `json:"limit"`
}

// ListToolsArgs is empty; the tool set is the same for every caller.
type ListToolsArgs struct{}

// Chat runs one conversational turn.
func (h *Handler) Chat(req *ChatArgs, resp *domain.ChatResponse) error {
	if req == nil {
		return errors.New("chat request is required")
	}

	result, err := h.service.Chat(context.Background(), strings.TrimSpace(req.OwnerID), req.ChatRequest)
	if err != nil {
		return publicError(err)
	}
	if resp != nil && result != nil {
		*resp = *result
	}
	return nil
}

// ListConversations lists the caller's conversations, most recent first.
func (h *Handler) ListConversations(req *ListConversationsArgs, resp *domain.ConversationListResponse) error {
	if req == nil {
		return errors.New("list request is required")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return publicError(domain.ErrUnauthenticated)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	conversations, err := h.service.ListConversations(context.Background(), req.OwnerID, limit)
	if err != nil {
		return publicError(err)
	}
	if resp != nil {
		resp.Conversations = conversations
	}
	return nil
}

// ListTools lists the declared tools.
func (h *Handler) ListTools(_ *ListToolsArgs, resp *domain.ListToolsResponse) error {
	if resp != nil {
		resp.Tools = h.service.ListTools()
	}
	return nil
}

// publicError strips the cause down to the message safe for callers. The
// status code prefix lets clients tell retryable failures apart.
func publicError(err error) error {
	status, body := v1.MapError(err)
	if body.ConversationID != "" {
		return fmt.Errorf("%d: %s (conversation_id=%s)", status, body.Error, body.ConversationID)
	}
	return fmt.Errorf("%d: %s", status, body.Error)
}
