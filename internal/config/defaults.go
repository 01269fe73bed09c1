package config

// Default holds the package-wide default configuration, mirroring the
// defaults named in spec.md §6.
var Default = Config{
	Server: ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	},
	Logging: LoggingConfig{
		Level:   "info",
		MaxDays: 7,
	},
	Database: DatabaseConfig{
		Type:     "sqlite",
		DSN:      "./data/channels.db",
		MaxConns: 10,
	},
	HTTPClient: HTTPClientConfig{
		MaxIdleConns:    100,
		MaxIdlePerHost:  10,
		MaxConnsPerHost: 100,
	},
	Timeouts: TimeoutsConfig{
		TLSHandshakeSeconds:   10,
		ResponseHeaderSeconds: 60,
		IdleConnSeconds:       90,
	},
	ThinkingBudget: ThinkingBudgetConfig{
		AnthropicMaxTokens:       32000,
		OpenAIReasoningMaxTokens: 32000,

		OpenAILowToAnthropicTokens:    2048,
		OpenAIMediumToAnthropicTokens: 8192,
		OpenAIHighToAnthropicTokens:   16384,

		OpenAILowToGeminiTokens:    2048,
		OpenAIMediumToGeminiTokens: 8192,
		OpenAIHighToGeminiTokens:   16384,

		AnthropicToOpenAILowThreshold:  2048,
		AnthropicToOpenAIHighThreshold: 16384,

		GeminiToOpenAILowThreshold:  2048,
		GeminiToOpenAIHighThreshold: 16384,
	},
}
