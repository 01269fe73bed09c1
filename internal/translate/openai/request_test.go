package openai

import (
	"encoding/json"
	"testing"

	"chatproxy/internal/config"
	"chatproxy/internal/thinking"
	"chatproxy/internal/wire"
)

func testCodec() *Codec {
	return New(thinking.NewMapper(config.Default.ThinkingBudget))
}

func TestDecodeRequestExtractsSystemAndMessages(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "system", "content": "be terse"},
			{"role": "user", "content": "hello"}
		],
		"max_tokens": 256
	}`)

	req, err := testCodec().DecodeRequest(body)
	if err != nil {
		t.Fatalf("DecodeRequest() error: %v", err)
	}
	if req.System != "be terse" {
		t.Errorf("System = %q, want %q", req.System, "be terse")
	}
	if len(req.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(req.Messages))
	}
	if req.Messages[0].Role != wire.RoleUser {
		t.Errorf("Messages[0].Role = %s, want user", req.Messages[0].Role)
	}
	if req.Generation.MaxTokens == nil || *req.Generation.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v, want 256", req.Generation.MaxTokens)
	}
}

func TestDecodeRequestToolResultTurn(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "tool", "tool_call_id": "call_1", "content": "42"}
		]
	}`)

	req, err := testCodec().DecodeRequest(body)
	if err != nil {
		t.Fatalf("DecodeRequest() error: %v", err)
	}
	if len(req.Messages) != 1 || len(req.Messages[0].Content) != 1 {
		t.Fatalf("unexpected decode result: %+v", req.Messages)
	}
	part := req.Messages[0].Content[0]
	if part.Kind != wire.ContentToolResult || part.ToolResult == nil {
		t.Fatalf("part = %+v, want tool_result", part)
	}
	if part.ToolResult.CallID != "call_1" {
		t.Errorf("CallID = %q, want call_1", part.ToolResult.CallID)
	}
}

func TestDecodeRequestNamedToolChoice(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [{"role": "user", "content": "hi"}],
		"tool_choice": {"type": "function", "function": {"name": "lookup"}}
	}`)

	req, err := testCodec().DecodeRequest(body)
	if err != nil {
		t.Fatalf("DecodeRequest() error: %v", err)
	}
	if req.ToolChoice.Kind != wire.ToolChoiceNamed || req.ToolChoice.Name != "lookup" {
		t.Errorf("ToolChoice = %+v, want named/lookup", req.ToolChoice)
	}
}

func TestEncodeRequestToolTurnProducesToolRole(t *testing.T) {
	req := &wire.Request{
		Model: "gpt-4o",
		Messages: []wire.Turn{
			{Role: wire.RoleTool, Content: []wire.ContentPart{{
				Kind: wire.ContentToolResult,
				ToolResult: &wire.ToolResult{
					CallID:  "call_1",
					Content: []wire.ContentPart{{Kind: wire.ContentText, Text: "42"}},
				},
			}}},
		},
	}

	out, err := testCodec().EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest() error: %v", err)
	}
	decoded, err := testCodec().DecodeRequest(out)
	if err != nil {
		t.Fatalf("round-trip DecodeRequest() error: %v", err)
	}
	if len(decoded.Messages) != 1 || decoded.Messages[0].Role != wire.RoleTool {
		t.Fatalf("round trip = %+v, want one tool turn", decoded.Messages)
	}
}

func TestEncodeRequestAppliesThinkingEffort(t *testing.T) {
	req := &wire.Request{
		Model:    "gpt-4o",
		Messages: []wire.Turn{{Role: wire.RoleUser, Content: []wire.ContentPart{{Kind: wire.ContentText, Text: "hi"}}}},
		Thinking: wire.Thinking{Kind: wire.ThinkingEffort, Effort: wire.EffortHigh},
	}

	out, err := testCodec().EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest() error: %v", err)
	}
	var encoded Request
	if err := json.Unmarshal(out, &encoded); err != nil {
		t.Fatalf("unmarshal encoded request: %v", err)
	}
	if encoded.ReasoningEffort != "high" {
		t.Errorf("ReasoningEffort = %q, want high", encoded.ReasoningEffort)
	}
	if encoded.MaxCompletionTokens == nil {
		t.Error("MaxCompletionTokens = nil, want a resolved reasoning budget")
	}
	if encoded.MaxTokens != nil {
		t.Errorf("MaxTokens = %v, want nil (reasoning models reject max_tokens)", encoded.MaxTokens)
	}
}
