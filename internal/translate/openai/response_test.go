package openai

import (
	"encoding/json"
	"testing"

	"chatproxy/internal/wire"
)

func TestDecodeResponseExtractsTextAndUsage(t *testing.T) {
	body := []byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`)

	resp, err := testCodec().DecodeResponse(body)
	if err != nil {
		t.Fatalf("DecodeResponse() error: %v", err)
	}
	if resp.FinishReason != wire.FinishStop {
		t.Errorf("FinishReason = %s, want stop", resp.FinishReason)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "hi there" {
		t.Fatalf("Content = %+v, want one text part", resp.Content)
	}
	if resp.Usage.TotalTokens == nil || *resp.Usage.TotalTokens != 15 {
		t.Errorf("Usage.TotalTokens = %v, want 15", resp.Usage.TotalTokens)
	}
}

func TestDecodeResponseRejectsEmptyChoices(t *testing.T) {
	if _, err := testCodec().DecodeResponse([]byte(`{"id":"x","choices":[]}`)); err == nil {
		t.Error("DecodeResponse() expected error for empty choices, got nil")
	}
}

func TestEncodeResponseToolCallRoundTrip(t *testing.T) {
	resp := &wire.Response{
		ID:           "chatcmpl-2",
		Model:        "gpt-4o",
		FinishReason: wire.FinishToolUse,
		Content: []wire.ContentPart{{
			Kind:     wire.ContentToolCall,
			ToolCall: &wire.ToolCall{ID: "call_1", Name: "lookup", Arguments: `{"q":"x"}`},
		}},
	}

	out, err := testCodec().EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() error: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal encoded response: %v", err)
	}
	if decoded.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", decoded.Choices[0].FinishReason)
	}
	if len(decoded.Choices[0].Message.ToolCalls) != 1 || decoded.Choices[0].Message.ToolCalls[0].Function.Name != "lookup" {
		t.Fatalf("ToolCalls = %+v, want one lookup call", decoded.Choices[0].Message.ToolCalls)
	}
}

func TestEncodeResponseLeavesTotalTokensNullWhenUpstreamOmitsIt(t *testing.T) {
	prompt, completion := 10, 5
	resp := &wire.Response{
		ID:           "chatcmpl-3",
		Model:        "gpt-4o",
		FinishReason: wire.FinishStop,
		Content:      []wire.ContentPart{{Kind: wire.ContentText, Text: "hi"}},
		Usage:        wire.Usage{PromptTokens: &prompt, CompletionTokens: &completion},
	}

	out, err := testCodec().EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() error: %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal encoded response: %v", err)
	}
	if decoded.Usage == nil {
		t.Fatal("Usage = nil, want prompt/completion counts present")
	}
	if decoded.Usage.TotalTokens != nil {
		t.Errorf("TotalTokens = %v, want nil (upstream never reported it)", *decoded.Usage.TotalTokens)
	}
}

func TestNormalizeFinishReasonMapsKnownValues(t *testing.T) {
	cases := map[string]wire.FinishReason{
		"stop":           wire.FinishStop,
		"length":         wire.FinishLength,
		"tool_calls":     wire.FinishToolUse,
		"function_call":  wire.FinishToolUse,
		"content_filter": wire.FinishContentFilter,
		"weird":          wire.FinishOther,
	}
	for in, want := range cases {
		if got := normalizeFinishReason(in); got != want {
			t.Errorf("normalizeFinishReason(%q) = %s, want %s", in, got, want)
		}
	}
}
