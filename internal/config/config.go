// Package config provides configuration for the task agent service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort   int
	RPCPort    int
	UserHeader string

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// LLM
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	AgentMode  string

	// Agent loop bounds
	AgentMaxRounds   int
	HistoryLimit     int
	MaxMessageLength int

	// Timeouts
	LLMTimeout   time.Duration
	ToolTimeout  time.Duration
	StoreTimeout time.Duration

	// Tools
	ToolConcurrency int
	DisabledTools   []string
	PolicyFile      string

	SerializeConversations bool

	// Logging
	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("rpc_port", 0)
	v.SetDefault("user_header", "X-User-ID")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "file:todoagent.db")
	v.SetDefault("llm_base_url", "https://api.openai.com")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("agent_mode", "")
	v.SetDefault("agent_max_rounds", 5)
	v.SetDefault("history_limit", 50)
	v.SetDefault("max_message_length", 2000)
	v.SetDefault("llm_timeout_ms", 60000)
	v.SetDefault("tool_timeout_ms", 10000)
	v.SetDefault("store_timeout_ms", 5000)
	v.SetDefault("tool_concurrency", 1)
	v.SetDefault("disabled_tools", "")
	v.SetDefault("policy_file", "")
	v.SetDefault("serialize_conversations", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. When path is empty the
// CONFIG_FILE variable is consulted.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPPort:               v.GetInt("http_port"),
		RPCPort:                v.GetInt("rpc_port"),
		UserHeader:             v.GetString("user_header"),
		DatabaseDriver:         v.GetString("database_driver"),
		DatabaseURL:            v.GetString("database_url"),
		LLMBaseURL:             v.GetString("llm_base_url"),
		LLMAPIKey:              v.GetString("llm_api_key"),
		LLMModel:               v.GetString("llm_model"),
		AgentMode:              strings.ToUpper(v.GetString("agent_mode")),
		AgentMaxRounds:         v.GetInt("agent_max_rounds"),
		HistoryLimit:           v.GetInt("history_limit"),
		MaxMessageLength:       v.GetInt("max_message_length"),
		LLMTimeout:             time.Duration(v.GetInt("llm_timeout_ms")) * time.Millisecond,
		ToolTimeout:            time.Duration(v.GetInt("tool_timeout_ms")) * time.Millisecond,
		StoreTimeout:           time.Duration(v.GetInt("store_timeout_ms")) * time.Millisecond,
		ToolConcurrency:        v.GetInt("tool_concurrency"),
		DisabledTools:          splitList(v.GetString("disabled_tools")),
		PolicyFile:             v.GetString("policy_file"),
		SerializeConversations: v.GetBool("serialize_conversations"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects non-positive limits and timeouts.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int64
	}{
		{"HTTP_PORT", int64(c.HTTPPort)},
		{"AGENT_MAX_ROUNDS", int64(c.AgentMaxRounds)},
		{"HISTORY_LIMIT", int64(c.HistoryLimit)},
		{"MAX_MESSAGE_LENGTH", int64(c.MaxMessageLength)},
		{"LLM_TIMEOUT_MS", int64(c.LLMTimeout)},
		{"TOOL_TIMEOUT_MS", int64(c.ToolTimeout)},
		{"STORE_TIMEOUT_MS", int64(c.StoreTimeout)},
		{"TOOL_CONCURRENCY", int64(c.ToolConcurrency)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("invalid config: %s must be positive", p.name)
		}
	}
	if c.RPCPort < 0 {
		return fmt.Errorf("invalid config: RPC_PORT must not be negative")
	}
	switch c.DatabaseDriver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("invalid config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.UserHeader == "" {
		return fmt.Errorf("invalid config: USER_HEADER must be set")
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
