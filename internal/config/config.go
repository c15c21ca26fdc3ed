// Package config defines the typed configuration surface for the assistant
// core: durable-store DSNs, cache/vector endpoints, LLM backend selection,
// timeouts, and feature flags. Loading is split from definition (loader.go)
// following the teacher's config.go/loader.go separation.
package config

import "time"

// PostgresConfig configures the durable tenant-scoped memory store (C1).
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxConns     int32  `yaml:"max_conns"`
	QueryTimeout string `yaml:"query_timeout"`
}

// RedisConfig configures the conversation-state store (C2) and dedupe cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// VectorConfig configures the knowledge retrieval vector index (C10).
type VectorConfig struct {
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"` // cosine|l2|ip
}

// KafkaConfig configures the async event bus. Only AuditTopic is read, by
// the Audit fire-and-forget sink; OutcomeTopic and TriggerTopic are parsed
// but not used by any component.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	OutcomeTopic string   `yaml:"outcome_topic"`
	AuditTopic   string   `yaml:"audit_topic"`
	TriggerTopic string   `yaml:"trigger_topic"`
}

// ClickHouseConfig configures the long-term structured audit sink (C13),
// kept separate from the Postgres hot path.
type ClickHouseConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// AnthropicConfig and OpenAIConfig select and authenticate an LLM backend.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// LLMConfig chooses between configured backends. Backend is "anthropic" or
// "openai"; Understanding (C5) and Knowledge Synthesis (C10) both resolve
// against the same backend selection.
type LLMConfig struct {
	Backend   string          `yaml:"backend"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
}

// FeatureFlags mirrors spec.md §6's recognized flags. enable_brain_architecture
// is the kill switch: when false, cmd/assistant's message handler answers
// every message with a fixed "system unavailable" response rather than
// running a partial core.
type FeatureFlags struct {
	EnableBrainArchitecture  bool `yaml:"enable_brain_architecture"`
	EnableExecutionExcellence bool `yaml:"enable_execution_excellence"`
	EnableTruthResolver      bool `yaml:"enable_truth_resolver"`
	EnableKnowledgeSynthesis bool `yaml:"enable_knowledge_synthesis"`
	LongTermMemoryEnabled    bool `yaml:"long_term_memory_enabled"`
	BotPersonaMemoryEnabled  bool `yaml:"bot_persona_memory_enabled"`
}

// TimeoutConfig carries the per-step budgets named in spec.md §5.
type TimeoutConfig struct {
	MessageBudget      time.Duration `yaml:"message_budget"`
	ContextBuildBudget time.Duration `yaml:"context_build_budget"`
	UnderstandingLLM   time.Duration `yaml:"understanding_llm_budget"`
	HandlerTimeout     time.Duration `yaml:"handler_timeout"`
	VectorQueryBudget  time.Duration `yaml:"vector_query_budget"`
}

// DefaultTimeouts mirrors spec.md §5's stated defaults.
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		MessageBudget:      60 * time.Second,
		ContextBuildBudget: 300 * time.Millisecond,
		UnderstandingLLM:   10 * time.Second,
		HandlerTimeout:     30 * time.Second,
		VectorQueryBudget:  5 * time.Second,
	}
}

// Config is the root configuration document.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Vector     VectorConfig     `yaml:"vector"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	LLM        LLMConfig        `yaml:"llm"`
	Flags      FeatureFlags     `yaml:"flags"`
	Timeouts   TimeoutConfig    `yaml:"-"`
}
