package anthropic

import (
	"encoding/json"
	"testing"

	"chatproxy/internal/wire"
)

func TestDecodeResponseToolUseAndThinking(t *testing.T) {
	body := []byte(`{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 12, "output_tokens": 34},
		"content": [
			{"type": "thinking", "thinking": "reasoning..."},
			{"type": "tool_use", "id": "call_1", "name": "lookup", "input": {"q": "x"}}
		]
	}`)

	resp, err := testCodec().DecodeResponse(body)
	if err != nil {
		t.Fatalf("DecodeResponse() error: %v", err)
	}
	if resp.FinishReason != wire.FinishToolUse {
		t.Errorf("FinishReason = %s, want tool_use", resp.FinishReason)
	}
	if len(resp.Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2", len(resp.Content))
	}
	if resp.Content[0].Kind != wire.ContentThinking || resp.Content[0].Thinking != "reasoning..." {
		t.Errorf("Content[0] = %+v, want thinking block", resp.Content[0])
	}
	if resp.Content[1].Kind != wire.ContentToolCall || resp.Content[1].ToolCall.Name != "lookup" {
		t.Errorf("Content[1] = %+v, want tool_use lookup", resp.Content[1])
	}
	if *resp.Usage.PromptTokens != 12 || *resp.Usage.CompletionTokens != 34 {
		t.Errorf("Usage = %+v, want 12/34", resp.Usage)
	}
}

func TestEncodeResponseDenormalizesStopReason(t *testing.T) {
	resp := &wire.Response{
		ID:           "msg_2",
		Model:        "claude-sonnet-4-5",
		FinishReason: wire.FinishLength,
		Content:      []wire.ContentPart{{Kind: wire.ContentText, Text: "partial"}},
	}

	out, err := testCodec().EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() error: %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal encoded response: %v", err)
	}
	if decoded.StopReason != "max_tokens" {
		t.Errorf("StopReason = %q, want max_tokens", decoded.StopReason)
	}
	if len(decoded.Content) != 1 || decoded.Content[0].Text != "partial" {
		t.Errorf("Content = %+v, want one text block 'partial'", decoded.Content)
	}
}

func TestNormalizeStopReasonMapsKnownValues(t *testing.T) {
	cases := map[string]wire.FinishReason{
		"end_turn":      wire.FinishStop,
		"stop_sequence": wire.FinishStop,
		"max_tokens":    wire.FinishLength,
		"tool_use":      wire.FinishToolUse,
		"refusal":       wire.FinishOther,
	}
	for in, want := range cases {
		if got := normalizeStopReason(in); got != want {
			t.Errorf("normalizeStopReason(%q) = %s, want %s", in, got, want)
		}
	}
}
