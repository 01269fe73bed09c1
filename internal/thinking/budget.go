// Package thinking maps the "reasoning effort" concept across the three
// wire families using the configured threshold table (spec.md §4.3,
// §6). It is grounded on the teacher's ThinkingBudgetMapper and on
// original_source/src/formats/reasoning_utils.py's threshold semantics.
package thinking

import (
	"chatproxy/internal/config"
	"chatproxy/internal/wire"
)

// Mapper translates wire.Thinking values across families using a fixed
// threshold table. It holds no mutable state and is safe for concurrent
// use.
type Mapper struct {
	cfg config.ThinkingBudgetConfig
}

func NewMapper(cfg config.ThinkingBudgetConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// EffortToAnthropicTokens implements spec.md §4.3: "Neutral effort ...
// egress to F-A/F-G ⇒ emit the corresponding configured token budget."
func (m *Mapper) EffortToAnthropicTokens(effort wire.Effort) int {
	switch effort {
	case wire.EffortLow:
		return m.cfg.OpenAILowToAnthropicTokens
	case wire.EffortHigh:
		return m.cfg.OpenAIHighToAnthropicTokens
	default:
		return m.cfg.OpenAIMediumToAnthropicTokens
	}
}

// EffortToGeminiTokens is the F-G counterpart of EffortToAnthropicTokens.
func (m *Mapper) EffortToGeminiTokens(effort wire.Effort) int {
	switch effort {
	case wire.EffortLow:
		return m.cfg.OpenAILowToGeminiTokens
	case wire.EffortHigh:
		return m.cfg.OpenAIHighToGeminiTokens
	default:
		return m.cfg.OpenAIMediumToGeminiTokens
	}
}

// BudgetToEffort implements spec.md §4.3: "Neutral budget: N egress to
// F-O ⇒ emit reasoning_effort: low if N < LOW_*, high if N >= HIGH_*,
// else medium, where the threshold set is chosen by the inbound family
// that produced N."
func (m *Mapper) BudgetToEffort(tokens int, source wire.Family) wire.Effort {
	low, high := m.thresholdsFor(source)
	switch {
	case tokens < low:
		return wire.EffortLow
	case tokens >= high:
		return wire.EffortHigh
	default:
		return wire.EffortMedium
	}
}

func (m *Mapper) thresholdsFor(source wire.Family) (low, high int) {
	if source == wire.Gemini {
		return m.cfg.GeminiToOpenAILowThreshold, m.cfg.GeminiToOpenAIHighThreshold
	}
	// Anthropic is the default threshold set; an unset/unknown source
	// (e.g. the client itself is F-O and supplied a raw budget) also
	// falls back to the Anthropic table since that is the family the
	// budget concept originates from in this proxy's design.
	return m.cfg.AnthropicToOpenAILowThreshold, m.cfg.AnthropicToOpenAIHighThreshold
}

// DefaultAnthropicMaxTokens is ANTHROPIC_MAX_TOKENS, spec.md §4.3's
// "max_tokens is required — if absent, use configured
// ANTHROPIC_MAX_TOKENS default."
func (m *Mapper) DefaultAnthropicMaxTokens() int {
	return m.cfg.AnthropicMaxTokens
}

// DefaultOpenAIReasoningMaxTokens is OPENAI_REASONING_MAX_TOKENS,
// spec.md §4.3's "max_completion_tokens defaulting to
// OPENAI_REASONING_MAX_TOKENS when absent."
func (m *Mapper) DefaultOpenAIReasoningMaxTokens() int {
	return m.cfg.OpenAIReasoningMaxTokens
}

// Resolve normalizes a wire.Thinking value into the token budget and/or
// effort level each egress family needs, applying every rule of
// spec.md §4.3 in one place so translators do not duplicate the table.
type Resolved struct {
	// AnthropicBudgetTokens / GeminiBudgetTokens are the token counts to
	// emit as thinking.budget_tokens / thinkingConfig.thinkingBudget.
	// Zero means "omit the field".
	AnthropicBudgetTokens int
	GeminiBudgetTokens    int

	// OpenAIEffort is the reasoning_effort string to emit. Empty means
	// "omit the field".
	OpenAIEffort wire.Effort
}

func (m *Mapper) Resolve(t wire.Thinking) Resolved {
	switch t.Kind {
	case wire.ThinkingEffort:
		return Resolved{
			AnthropicBudgetTokens: m.EffortToAnthropicTokens(t.Effort),
			GeminiBudgetTokens:    m.EffortToGeminiTokens(t.Effort),
			OpenAIEffort:          t.Effort,
		}
	case wire.ThinkingBudget:
		effort := m.BudgetToEffort(t.BudgetTokens, t.SourceFamily)
		return Resolved{
			AnthropicBudgetTokens: t.BudgetTokens,
			GeminiBudgetTokens:    t.BudgetTokens,
			OpenAIEffort:          effort,
		}
	default: // wire.ThinkingNone
		return Resolved{}
	}
}
