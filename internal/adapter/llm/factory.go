package llm

import (
	"time"

	"github.com/rs/zerolog"
)

// ModeMock selects the offline rule-based client.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for the given agent mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) LLMClient {
	if mode == ModeMock {
		logger.Info().Msg("AGENT_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
