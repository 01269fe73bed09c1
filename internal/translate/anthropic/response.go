package anthropic

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

	out := &wire.Response{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: wire.Usage{
			PromptTokens:     &resp.Usage.InputTokens,
			CompletionTokens: &resp.Usage.OutputTokens,
		},
	}

	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			out.Content = append(out.Content, wire.ContentPart{Kind: wire.ContentText, Text: b.Text})
		case "tool_use":
			out.Content = append(out.Content, wire.ContentPart{
				Kind: wire.ContentToolCall,
				ToolCall: &wire.ToolCall{ID: b.ID, Name: b.Name, Arguments: string(b.Input)},
			})
		case "thinking":
			out.Content = append(out.Content, wire.ContentPart{Kind: wire.ContentThinking, Thinking: b.Thinking})
		}
	}
	return out, nil
}

func normalizeStopReason(reason string) wire.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return wire.FinishStop
	case "max_tokens":
		return wire.FinishLength
	case "tool_use":
		return wire.FinishToolUse
	default:
		return wire.FinishOther
	}
}

func denormalizeStopReason(reason wire.FinishReason) string {
	switch reason {
	case wire.FinishStop:
		return "end_turn"
	case wire.FinishLength:
		return "max_tokens"
	case wire.FinishToolUse:
		return "tool_use"
	default:
		return "end_turn"
	}
}

func (c *Codec) EncodeResponse(resp *wire.Response) ([]byte, error) {
	out := Response{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      resp.Model,
		StopReason: denormalizeStopReason(resp.FinishReason),
	}
	if resp.Usage.PromptTokens != nil {
		out.Usage.InputTokens = *resp.Usage.PromptTokens
	}
	if resp.Usage.CompletionTokens != nil {
		out.Usage.OutputTokens = *resp.Usage.CompletionTokens
	}

	for _, p := range resp.Content {
		switch p.Kind {
		case wire.ContentText:
			out.Content = append(out.Content, ContentBlock{Type: "text", Text: p.Text})
		case wire.ContentToolCall:
			input := json.RawMessage(p.ToolCall.Arguments)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out.Content = append(out.Content, ContentBlock{Type: "tool_use", ID: p.ToolCall.ID, Name: p.ToolCall.Name, Input: input})
		case wire.ContentThinking:
			out.Content = append(out.Content, ContentBlock{Type: "thinking", Thinking: p.Thinking})
		}
	}

	return json.Marshal(out)
}
