package gemini

import (
	"encoding/json"
	"testing"

	"chatproxy/internal/wire"
)

func TestDecodeResponseExtractsTextAndUsage(t *testing.T) {
	body := []byte(`{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "hi there"}]}, "finishReason": "STOP", "index": 0}],
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15},
		"modelVersion": "gemini-2.0-flash"
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

func TestDecodeResponseRejectsEmptyCandidates(t *testing.T) {
	if _, err := testCodec().DecodeResponse([]byte(`{"candidates":[]}`)); err == nil {
		t.Error("DecodeResponse() expected error for empty candidates, got nil")
	}
}

func TestEncodeResponseToolCallRoundTrip(t *testing.T) {
	resp := &wire.Response{
		Model:        "gemini-2.0-flash",
		FinishReason: wire.FinishToolUse,
		Content: []wire.ContentPart{{
			Kind:     wire.ContentToolCall,
			ToolCall: &wire.ToolCall{Name: "lookup", Arguments: `{"q":"x"}`},
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
	if decoded.Candidates[0].FinishReason != "STOP" {
		t.Errorf("FinishReason = %q, want STOP (tool_use maps to STOP)", decoded.Candidates[0].FinishReason)
	}
	parts := decoded.Candidates[0].Content.Parts
	if len(parts) != 1 || parts[0].FunctionCall == nil || parts[0].FunctionCall.Name != "lookup" {
		t.Fatalf("Parts = %+v, want one lookup functionCall", parts)
	}
}

func TestEncodeResponseLeavesTotalTokenCountNullWhenUpstreamOmitsIt(t *testing.T) {
	prompt, completion := 10, 5
	resp := &wire.Response{
		Model:        "gemini-2.0-flash",
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
	if decoded.UsageMetadata == nil {
		t.Fatal("UsageMetadata = nil, want prompt/candidates counts present")
	}
	if decoded.UsageMetadata.TotalTokenCount != nil {
		t.Errorf("TotalTokenCount = %v, want nil (upstream never reported it)", *decoded.UsageMetadata.TotalTokenCount)
	}
}

func TestNormalizeFinishReasonMapsSafetyVariants(t *testing.T) {
	cases := map[string]wire.FinishReason{
		"STOP":               wire.FinishStop,
		"MAX_TOKENS":         wire.FinishLength,
		"SAFETY":             wire.FinishContentFilter,
		"RECITATION":         wire.FinishContentFilter,
		"BLOCKLIST":          wire.FinishContentFilter,
		"PROHIBITED_CONTENT": wire.FinishContentFilter,
		"OTHER":              wire.FinishOther,
	}
	for in, want := range cases {
		if got := normalizeFinishReason(in); got != want {
			t.Errorf("normalizeFinishReason(%q) = %s, want %s", in, got, want)
		}
	}
}
