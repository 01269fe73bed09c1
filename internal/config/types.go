// Package config loads the process-wide configuration table of spec.md
// §6: listener settings, the thinking-budget threshold table, timeouts,
// the channel store's database settings, and logging. Channel records
// themselves are not configuration — they live in the channel store and
// are read through internal/channel.
package config

// Config is the root configuration object, loaded from YAML and then
// overridden field-by-field from environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Database       DatabaseConfig       `yaml:"database"`
	Security       SecurityConfig       `yaml:"security"`
	HTTPClient     HTTPClientConfig     `yaml:"http_client"`
	Timeouts       TimeoutsConfig       `yaml:"timeouts"`
	ThinkingBudget ThinkingBudgetConfig `yaml:"thinking_budget"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"` // overridden by WEB_PORT
}

type LoggingConfig struct {
	Level   string `yaml:"level"`    // LOG_LEVEL
	File    string `yaml:"file"`     // LOG_FILE
	MaxDays int    `yaml:"max_days"` // LOG_MAX_DAYS
}

type DatabaseConfig struct {
	Type     string `yaml:"type"` // sqlite or mysql, DATABASE_TYPE
	DSN      string `yaml:"dsn"`  // sqlite file path, or a mysql DSN (gorm.io/driver/mysql form)
	MaxConns int    `yaml:"max_conns"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // ENCRYPTION_KEY, opaque to the core
	AdminPassword string `yaml:"admin_password"` // ADMIN_PASSWORD, consumed only by the admin collaborator
}

type HTTPClientConfig struct {
	MaxIdleConns    int `yaml:"max_idle_conns"`
	MaxIdlePerHost  int `yaml:"max_idle_per_host"`
	MaxConnsPerHost int `yaml:"max_conns_per_host"`
}

type TimeoutsConfig struct {
	TLSHandshakeSeconds   int `yaml:"tls_handshake_seconds"`
	ResponseHeaderSeconds int `yaml:"response_header_seconds"`
	IdleConnSeconds       int `yaml:"idle_conn_seconds"`
}

// ThinkingBudgetConfig is the threshold table of spec.md §6, named field
// for field after the environment variables it overrides.
type ThinkingBudgetConfig struct {
	AnthropicMaxTokens         int `yaml:"anthropic_max_tokens"`          // ANTHROPIC_MAX_TOKENS
	OpenAIReasoningMaxTokens   int `yaml:"openai_reasoning_max_tokens"`    // OPENAI_REASONING_MAX_TOKENS

	OpenAILowToAnthropicTokens    int `yaml:"openai_low_to_anthropic_tokens"`    // OPENAI_LOW_TO_ANTHROPIC_TOKENS
	OpenAIMediumToAnthropicTokens int `yaml:"openai_medium_to_anthropic_tokens"` // OPENAI_MEDIUM_TO_ANTHROPIC_TOKENS
	OpenAIHighToAnthropicTokens   int `yaml:"openai_high_to_anthropic_tokens"`   // OPENAI_HIGH_TO_ANTHROPIC_TOKENS

	OpenAILowToGeminiTokens    int `yaml:"openai_low_to_gemini_tokens"`    // OPENAI_LOW_TO_GEMINI_TOKENS
	OpenAIMediumToGeminiTokens int `yaml:"openai_medium_to_gemini_tokens"` // OPENAI_MEDIUM_TO_GEMINI_TOKENS
	OpenAIHighToGeminiTokens   int `yaml:"openai_high_to_gemini_tokens"`   // OPENAI_HIGH_TO_GEMINI_TOKENS

	AnthropicToOpenAILowThreshold  int `yaml:"anthropic_to_openai_low_reasoning_threshold"`  // ANTHROPIC_TO_OPENAI_LOW_REASONING_THRESHOLD
	AnthropicToOpenAIHighThreshold int `yaml:"anthropic_to_openai_high_reasoning_threshold"` // ANTHROPIC_TO_OPENAI_HIGH_REASONING_THRESHOLD

	GeminiToOpenAILowThreshold  int `yaml:"gemini_to_openai_low_reasoning_threshold"`  // GEMINI_TO_OPENAI_LOW_REASONING_THRESHOLD
	GeminiToOpenAIHighThreshold int `yaml:"gemini_to_openai_high_reasoning_threshold"` // GEMINI_TO_OPENAI_HIGH_REASONING_THRESHOLD
}
