package thinking

import (
	"testing"

	"chatproxy/internal/config"
	"chatproxy/internal/wire"
)

func testConfig() config.ThinkingBudgetConfig {
	return config.ThinkingBudgetConfig{
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
	}
}

func TestEffortToAnthropicTokens(t *testing.T) {
	m := NewMapper(testConfig())

	cases := []struct {
		effort wire.Effort
		want   int
	}{
		{wire.EffortLow, 2048},
		{wire.EffortMedium, 8192},
		{wire.EffortHigh, 16384},
	}
	for _, c := range cases {
		if got := m.EffortToAnthropicTokens(c.effort); got != c.want {
			t.Errorf("EffortToAnthropicTokens(%s) = %d, want %d", c.effort, got, c.want)
		}
	}
}

func TestBudgetToEffortThresholds(t *testing.T) {
	m := NewMapper(testConfig())

	cases := []struct {
		name   string
		tokens int
		source wire.Family
		want   wire.Effort
	}{
		{"below anthropic low", 1000, wire.Anthropic, wire.EffortLow},
		{"at anthropic low boundary", 2048, wire.Anthropic, wire.EffortMedium},
		{"at anthropic high boundary", 16384, wire.Anthropic, wire.EffortHigh},
		{"below gemini low", 1000, wire.Gemini, wire.EffortLow},
		{"at gemini high boundary", 16384, wire.Gemini, wire.EffortHigh},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := m.BudgetToEffort(c.tokens, c.source); got != c.want {
				t.Errorf("BudgetToEffort(%d, %s) = %s, want %s", c.tokens, c.source, got, c.want)
			}
		})
	}
}

func TestResolveEffortKind(t *testing.T) {
	m := NewMapper(testConfig())

	resolved := m.Resolve(wire.Thinking{Kind: wire.ThinkingEffort, Effort: wire.EffortHigh})
	if resolved.AnthropicBudgetTokens != 16384 {
		t.Errorf("AnthropicBudgetTokens = %d, want 16384", resolved.AnthropicBudgetTokens)
	}
	if resolved.GeminiBudgetTokens != 16384 {
		t.Errorf("GeminiBudgetTokens = %d, want 16384", resolved.GeminiBudgetTokens)
	}
	if resolved.OpenAIEffort != wire.EffortHigh {
		t.Errorf("OpenAIEffort = %s, want high", resolved.OpenAIEffort)
	}
}

func TestResolveBudgetKindRoundTripsSourceThreshold(t *testing.T) {
	m := NewMapper(testConfig())

	resolved := m.Resolve(wire.Thinking{Kind: wire.ThinkingBudget, BudgetTokens: 20000, SourceFamily: wire.Gemini})
	if resolved.OpenAIEffort != wire.EffortHigh {
		t.Errorf("OpenAIEffort = %s, want high", resolved.OpenAIEffort)
	}
	if resolved.AnthropicBudgetTokens != 20000 {
		t.Errorf("AnthropicBudgetTokens = %d, want passthrough 20000", resolved.AnthropicBudgetTokens)
	}
}

func TestResolveNoneKindIsZeroValue(t *testing.T) {
	m := NewMapper(testConfig())

	resolved := m.Resolve(wire.Thinking{Kind: wire.ThinkingNone})
	if resolved != (Resolved{}) {
		t.Errorf("Resolve(none) = %+v, want zero value", resolved)
	}
}

func TestDefaults(t *testing.T) {
	m := NewMapper(testConfig())
	if got := m.DefaultAnthropicMaxTokens(); got != 32000 {
		t.Errorf("DefaultAnthropicMaxTokens() = %d, want 32000", got)
	}
	if got := m.DefaultOpenAIReasoningMaxTokens(); got != 32000 {
		t.Errorf("DefaultOpenAIReasoningMaxTokens() = %d, want 32000", got)
	}
}
