package openai

import (
	"encoding/json"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

// DecodeResponse turns an upstream F-O unary response into the neutral
// wire.Response, used when the configured channel's family is F-O.
func (c *Codec) DecodeResponse(body []byte) (*wire.Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewUpstreamError(0, string(body))
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewUpstreamError(0, "upstream response has no choices")
	}
	choice := resp.Choices[0]

	out := &wire.Response{
		ID:           resp.ID,
		Model:        resp.Model,
		CreatedAt:    resp.Created,
		FinishReason: normalizeFinishReason(choice.FinishReason),
	}
	if resp.Usage != nil {
		out.Usage = wire.Usage{
			PromptTokens:     &resp.Usage.PromptTokens,
			CompletionTokens: &resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if text, ok := plainText(choice.Message.Content); ok && text != "" {
		out.Content = append(out.Content, wire.ContentPart{Kind: wire.ContentText, Text: text})
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Content = append(out.Content, wire.ContentPart{
			Kind: wire.ContentToolCall,
			ToolCall: &wire.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return out, nil
}

// normalizeFinishReason is grounded on the teacher's
// normalizeOpenAIFinishReason in openai_helpers.go.
func normalizeFinishReason(reason string) wire.FinishReason {
	switch reason {
	case "stop":
		return wire.FinishStop
	case "length":
		return wire.FinishLength
	case "tool_calls", "function_call":
		return wire.FinishToolUse
	case "content_filter":
		return wire.FinishContentFilter
	default:
		return wire.FinishOther
	}
}

func denormalizeFinishReason(reason wire.FinishReason) string {
	switch reason {
	case wire.FinishStop:
		return "stop"
	case wire.FinishLength:
		return "length"
	case wire.FinishToolUse:
		return "tool_calls"
	case wire.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}

// EncodeResponse builds the client-visible F-O unary response from the
// neutral wire.Response, used when the inbound client is F-O regardless
// of the channel's own family.
func (c *Codec) EncodeResponse(resp *wire.Response) ([]byte, error) {
	msg := Message{Role: "assistant"}

	var texts string
	for _, p := range resp.Content {
		switch p.Kind {
		case wire.ContentText:
			texts += p.Text
		case wire.ContentToolCall:
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   p.ToolCall.ID,
				Type: "function",
				Function: Function{
					Name:      p.ToolCall.Name,
					Arguments: p.ToolCall.Arguments,
				},
			})
		}
	}
	if texts != "" {
		msg.Content = rawString(texts)
	}

	out := Response{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.CreatedAt,
		Model:   resp.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: denormalizeFinishReason(resp.FinishReason),
		}},
	}
	if resp.Usage.PromptTokens != nil || resp.Usage.CompletionTokens != nil {
		u := &Usage{}
		if resp.Usage.PromptTokens != nil {
			u.PromptTokens = *resp.Usage.PromptTokens
		}
		if resp.Usage.CompletionTokens != nil {
			u.CompletionTokens = *resp.Usage.CompletionTokens
		}
		// spec.md:87 — a count the upstream never reported is emitted as
		// null, not fabricated by summing the other two.
		u.TotalTokens = resp.Usage.TotalTokens
		out.Usage = u
	}

	return json.Marshal(out)
}
