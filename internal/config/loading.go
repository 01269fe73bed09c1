package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads filename (if it exists), merges it over Default, then applies
// every environment-variable override named in spec.md §6 on top.
func Load(filename string) (*Config, error) {
	cfg := Default

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envString("WEB_PORT", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	})
	envString("LOG_LEVEL", func(v string) { cfg.Logging.Level = v })
	envString("LOG_FILE", func(v string) { cfg.Logging.File = v })
	envInt("LOG_MAX_DAYS", &cfg.Logging.MaxDays)

	envString("DATABASE_TYPE", func(v string) { cfg.Database.Type = v })
	envString("ENCRYPTION_KEY", func(v string) { cfg.Security.EncryptionKey = v })
	envString("ADMIN_PASSWORD", func(v string) { cfg.Security.AdminPassword = v })

	envInt("ANTHROPIC_MAX_TOKENS", &cfg.ThinkingBudget.AnthropicMaxTokens)
	envInt("OPENAI_REASONING_MAX_TOKENS", &cfg.ThinkingBudget.OpenAIReasoningMaxTokens)

	envInt("OPENAI_LOW_TO_ANTHROPIC_TOKENS", &cfg.ThinkingBudget.OpenAILowToAnthropicTokens)
	envInt("OPENAI_MEDIUM_TO_ANTHROPIC_TOKENS", &cfg.ThinkingBudget.OpenAIMediumToAnthropicTokens)
	envInt("OPENAI_HIGH_TO_ANTHROPIC_TOKENS", &cfg.ThinkingBudget.OpenAIHighToAnthropicTokens)

	envInt("OPENAI_LOW_TO_GEMINI_TOKENS", &cfg.ThinkingBudget.OpenAILowToGeminiTokens)
	envInt("OPENAI_MEDIUM_TO_GEMINI_TOKENS", &cfg.ThinkingBudget.OpenAIMediumToGeminiTokens)
	envInt("OPENAI_HIGH_TO_GEMINI_TOKENS", &cfg.ThinkingBudget.OpenAIHighToGeminiTokens)

	envInt("ANTHROPIC_TO_OPENAI_LOW_REASONING_THRESHOLD", &cfg.ThinkingBudget.AnthropicToOpenAILowThreshold)
	envInt("ANTHROPIC_TO_OPENAI_HIGH_REASONING_THRESHOLD", &cfg.ThinkingBudget.AnthropicToOpenAIHighThreshold)

	envInt("GEMINI_TO_OPENAI_LOW_REASONING_THRESHOLD", &cfg.ThinkingBudget.GeminiToOpenAILowThreshold)
	envInt("GEMINI_TO_OPENAI_HIGH_REASONING_THRESHOLD", &cfg.ThinkingBudget.GeminiToOpenAIHighThreshold)
}

func envString(key string, apply func(string)) {
	if v := os.Getenv(key); v != "" {
		apply(v)
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
