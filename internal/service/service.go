// Package service implements the chat request flow: it resolves the
// conversation, runs the agent loop and persists the turn.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/agent"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/config"
	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/tools"
)

type Service struct {
	store      store.Store
	dispatcher *tools.Dispatcher
	loop       *agent.Loop
	config     *config.Config
	locks      *keyedMutex
	logger     zerolog.Logger
}

func New(store store.Store, llmClient llm.LLMClient, dispatcher *tools.Dispatcher, cfg *config.Config, logger zerolog.Logger) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		config:     cfg,
		locks:      newKeyedMutex(),
		logger:     logger.With().Str("component", "service").Logger(),
	}
	s.loop = agent.New(llmClient, dispatcher, agent.Config{
		Model:        cfg.LLMModel,
		MaxRounds:    cfg.AgentMaxRounds,
		ModelTimeout: cfg.LLMTimeout,
	}, logger, agent.WithObserver(s))
	return s
}

// storeContext bounds a single store operation.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// Health checks that the store is reachable.
func (s *Service) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.store.Ping(ctx)
}
