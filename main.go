package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/adapter/llm"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/config"
	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/service"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/tools"
	handler "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/http"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/transport/rpc"
	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "todoagent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}

	logger.Info().
		Int("http_port", cfg.HTTPPort).
		Int("rpc_port", cfg.RPCPort).
		Str("database_driver", cfg.DatabaseDriver).
		Str("llm_base_url", cfg.LLMBaseURL).
		Str("agent_mode", cfg.AgentMode).
		Msg("starting task agent")

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize LLM client
	llmClient := llm.NewLLMClient(cfg.AgentMode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.LoadEngine(ctx, cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize tools
	registry := tools.NewRegistry()
	if err := tools.RegisterTaskTools(registry, db); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}
	dispatcher := tools.NewDispatcher(registry, policyEngine, tools.DispatcherConfig{
		Timeout:       cfg.ToolTimeout,
		Concurrency:   cfg.ToolConcurrency,
		DisabledTools: cfg.DisabledTools,
	}, logger)

	// Initialize service
	svc := service.New(db, llmClient, dispatcher, cfg, logger)

	// Create external server
	server := handler.NewServer(svc, cfg, logger)
	errCh := make(chan error, 2)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	logger.Info().Int("port", cfg.HTTPPort).Msg("HTTP API started")

	// Start internal RPC server
	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc, logger)
		if err != nil {
			return fmt.Errorf("failed to create rpc server: %w", err)
		}
		go func() {
			if err := rpcServer.Start(fmt.Sprintf(":%d", cfg.RPCPort)); err != nil {
				errCh <- fmt.Errorf("rpc server: %w", err)
			}
		}()
		logger.Info().Int("port", cfg.RPCPort).Msg("RPC API started")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to shutdown HTTP server gracefully")
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to shutdown RPC server gracefully")
		}
	}

	logger.Info().Msg("task agent stopped")
	return runErr
}

