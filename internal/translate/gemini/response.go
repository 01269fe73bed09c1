package gemini

import (
	"encoding/json"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

func (c *Codec) DecodeResponse(body []byte) (*wire.Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewUpstreamError(0, string(body))
	}
	if len(resp.Candidates) == 0 {
		return nil, apperrors.NewUpstreamError(0, "upstream response has no candidates")
	}
	cand := resp.Candidates[0]

	out := &wire.Response{
		Model:        resp.ModelVersion,
		FinishReason: normalizeFinishReason(cand.FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.Usage = wire.Usage{
			PromptTokens:     &resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: &resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	turn := decodeContent(cand.Content)
	out.Content = turn.Content
	return out, nil
}

func normalizeFinishReason(reason string) wire.FinishReason {
	switch reason {
	case "STOP":
		return wire.FinishStop
	case "MAX_TOKENS":
		return wire.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return wire.FinishContentFilter
	default:
		return wire.FinishOther
	}
}

func denormalizeFinishReason(reason wire.FinishReason) string {
	switch reason {
	case wire.FinishStop, wire.FinishToolUse:
		return "STOP"
	case wire.FinishLength:
		return "MAX_TOKENS"
	case wire.FinishContentFilter:
		return "SAFETY"
	default:
		return "STOP"
	}
}

func (c *Codec) EncodeResponse(resp *wire.Response) ([]byte, error) {
	content, err := encodeTurn(wire.Turn{Role: wire.RoleAssistant, Content: resp.Content})
	if err != nil {
		return nil, err
	}
	out := Response{
		Candidates: []Candidate{{
			Content:      content,
			FinishReason: denormalizeFinishReason(resp.FinishReason),
			Index:        0,
		}},
		ModelVersion: resp.Model,
	}
	if resp.Usage.PromptTokens != nil || resp.Usage.CompletionTokens != nil {
		u := &UsageMetadata{}
		if resp.Usage.PromptTokens != nil {
			u.PromptTokenCount = *resp.Usage.PromptTokens
		}
		if resp.Usage.CompletionTokens != nil {
			u.CandidatesTokenCount = *resp.Usage.CompletionTokens
		}
		// spec.md:87 — a count the upstream never reported is emitted as
		// null, not fabricated by summing the other two.
		u.TotalTokenCount = resp.Usage.TotalTokens
		out.UsageMetadata = u
	}
	return json.Marshal(out)
}
