package config

import "fmt"

// Validate checks the handful of invariants the core actually relies on.
// Most fields are best-effort defaults; an admin-facing validator that
// rejects a broader set of misconfigurations belongs to the out-of-scope
// admin collaborator.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	switch cfg.Database.Type {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", cfg.Database.Type)
	}
	tb := &cfg.ThinkingBudget
	if tb.AnthropicToOpenAILowThreshold >= tb.AnthropicToOpenAIHighThreshold {
		return fmt.Errorf("thinking_budget.anthropic_to_openai_low_reasoning_threshold must be < high_reasoning_threshold")
	}
	if tb.GeminiToOpenAILowThreshold >= tb.GeminiToOpenAIHighThreshold {
		return fmt.Errorf("thinking_budget.gemini_to_openai_low_reasoning_threshold must be < high_reasoning_threshold")
	}
	return nil
}
