package anthropic

import (
	"encoding/json"
	"fmt"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

func (c *Codec) DecodeRequest(body []byte) (*wire.Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewInvalidRequest("", fmt.Sprintf("decode anthropic request: %v", err))
	}

	out := &wire.Request{
		Model:  req.Model,
		Stream: req.Stream,
		System: decodeSystem(req.System),
	}

	for _, m := range req.Messages {
		turn, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, turn)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wire.ToolDecl{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	out.ToolChoice = decodeToolChoice(req.ToolChoice)

	maxTokens := req.MaxTokens
	out.Generation = wire.GenerationParams{
		MaxTokens:   &maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSeqs,
	}

	if req.Thinking != nil && req.Thinking.Type == "enabled" {
		out.Thinking = wire.Thinking{
			Kind:         wire.ThinkingBudget,
			BudgetTokens: req.Thinking.BudgetTokens,
			SourceFamily: wire.Anthropic,
		}
	}

	return out, nil
}

func decodeSystem(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out string
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}
	return ""
}

func decodeToolChoice(tc *ToolChoice) wire.ToolChoice {
	if tc == nil {
		return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
	}
	switch tc.Type {
	case "none":
		return wire.ToolChoice{Kind: wire.ToolChoiceNone}
	case "any":
		return wire.ToolChoice{Kind: wire.ToolChoiceRequired}
	case "tool":
		return wire.ToolChoice{Kind: wire.ToolChoiceNamed, Name: tc.Name}
	default:
		return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
	}
}

func decodeMessage(m Message) (wire.Turn, error) {
	turn := wire.Turn{Role: decodeRole(m.Role)}

	var text string
	if err := json.Unmarshal(m.Content, &text); err == nil {
		if text != "" {
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentText, Text: text})
		}
		return turn, nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return turn, apperrors.NewInvalidRequest("messages[].content", fmt.Sprintf("decode content blocks: %v", err))
	}

	for _, b := range blocks {
		switch b.Type {
		case "text":
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentText, Text: b.Text})
		case "image":
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentImage, Image: decodeImageSource(b.Source)})
		case "tool_use":
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind: wire.ContentToolCall,
				ToolCall: &wire.ToolCall{
					ID:        b.ID,
					Name:      b.Name,
					Arguments: string(b.Input),
				},
			})
		case "tool_result":
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind: wire.ContentToolResult,
				ToolResult: &wire.ToolResult{
					CallID:  b.ToolUseID,
					Content: decodeToolResultContent(b.Content),
					IsError: b.IsError,
				},
			})
		case "thinking":
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentThinking, Thinking: b.Thinking})
		}
	}
	return turn, nil
}

func decodeToolResultContent(raw json.RawMessage) []wire.ContentPart {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []wire.ContentPart{{Kind: wire.ContentText, Text: s}}
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out []wire.ContentPart
		for _, b := range blocks {
			if b.Type == "text" {
				out = append(out, wire.ContentPart{Kind: wire.ContentText, Text: b.Text})
			}
		}
		return out
	}
	return nil
}

func decodeImageSource(src *ImageSource) *wire.Image {
	if src == nil {
		return nil
	}
	if src.Type == "url" {
		return &wire.Image{Source: wire.ImageSourceURL, URL: src.URL}
	}
	return &wire.Image{Source: wire.ImageSourceBase64, Data: src.Data, MediaType: src.MediaType}
}

func decodeRole(role string) wire.Role {
	if role == "assistant" {
		return wire.RoleAssistant
	}
	return wire.RoleUser
}

// EncodeRequest builds the outbound F-A request body for a channel whose
// upstream family is Anthropic.
func (c *Codec) EncodeRequest(req *wire.Request) ([]byte, error) {
	out := Request{
		Model:  req.Model,
		Stream: req.Stream,
	}
	if req.System != "" {
		b, _ := json.Marshal(req.System)
		out.System = b
	}

	maxTokens := c.thinking.DefaultAnthropicMaxTokens()
	if req.Generation.MaxTokens != nil {
		maxTokens = *req.Generation.MaxTokens
	}
	out.MaxTokens = maxTokens
	out.Temperature = req.Generation.Temperature
	out.TopP = req.Generation.TopP
	out.StopSeqs = req.Generation.Stop

	for _, t := range mergeConsecutiveRoles(req.Messages) {
		msg, err := encodeTurn(t)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, msg)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, Tool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	out.ToolChoice = encodeToolChoice(req.ToolChoice)

	if req.Thinking.Kind != wire.ThinkingNone {
		resolved := c.thinking.Resolve(req.Thinking)
		if resolved.AnthropicBudgetTokens > 0 {
			out.Thinking = &ThinkingConfig{Type: "enabled", BudgetTokens: resolved.AnthropicBudgetTokens}
			if out.MaxTokens < resolved.AnthropicBudgetTokens {
				out.MaxTokens = resolved.AnthropicBudgetTokens + maxTokens
			}
		}
	}

	return json.Marshal(out)
}

// mergeConsecutiveRoles implements spec.md §4.3's "consecutive same-role
// turns are merged (required by family)" for F-A egress, using each
// turn's effective wire role (tool turns become user turns carrying a
// tool_result block, same as encodeTurn does individually).
func mergeConsecutiveRoles(turns []wire.Turn) []wire.Turn {
	var out []wire.Turn
	for _, t := range turns {
		role := t.Role
		if role == wire.RoleTool {
			role = wire.RoleUser
		}
		if len(out) > 0 && out[len(out)-1].Role == role {
			out[len(out)-1].Content = append(out[len(out)-1].Content, t.Content...)
			continue
		}
		out = append(out, wire.Turn{Role: role, Content: append([]wire.ContentPart{}, t.Content...)})
	}
	return out
}

func encodeToolChoice(tc wire.ToolChoice) *ToolChoice {
	switch tc.Kind {
	case wire.ToolChoiceNone:
		return &ToolChoice{Type: "none"}
	case wire.ToolChoiceRequired:
		return &ToolChoice{Type: "any"}
	case wire.ToolChoiceNamed:
		return &ToolChoice{Type: "tool", Name: tc.Name}
	default:
		return nil
	}
}

func encodeTurn(t wire.Turn) (Message, error) {
	role := "user"
	if t.Role == wire.RoleAssistant {
		role = "assistant"
	}
	if t.Role == wire.RoleTool {
		role = "user"
	}

	var blocks []ContentBlock
	for _, p := range t.Content {
		switch p.Kind {
		case wire.ContentText:
			blocks = append(blocks, ContentBlock{Type: "text", Text: p.Text})
		case wire.ContentImage:
			blocks = append(blocks, ContentBlock{Type: "image", Source: encodeImageSource(p.Image)})
		case wire.ContentToolCall:
			input := json.RawMessage(p.ToolCall.Arguments)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			blocks = append(blocks, ContentBlock{Type: "tool_use", ID: p.ToolCall.ID, Name: p.ToolCall.Name, Input: input})
		case wire.ContentToolResult:
			content, err := json.Marshal(encodeToolResultBlocks(p.ToolResult.Content))
			if err != nil {
				return Message{}, err
			}
			blocks = append(blocks, ContentBlock{Type: "tool_result", ToolUseID: p.ToolResult.CallID, Content: content, IsError: p.ToolResult.IsError})
		case wire.ContentThinking:
			blocks = append(blocks, ContentBlock{Type: "thinking", Thinking: p.Thinking})
		}
	}

	content, err := json.Marshal(blocks)
	if err != nil {
		return Message{}, err
	}
	return Message{Role: role, Content: content}, nil
}

func encodeToolResultBlocks(parts []wire.ContentPart) []ContentBlock {
	var out []ContentBlock
	for _, p := range parts {
		if p.Kind == wire.ContentText {
			out = append(out, ContentBlock{Type: "text", Text: p.Text})
		}
	}
	return out
}

func encodeImageSource(img *wire.Image) *ImageSource {
	if img == nil {
		return nil
	}
	if img.Source == wire.ImageSourceURL {
		return &ImageSource{Type: "url", URL: img.URL}
	}
	return &ImageSource{Type: "base64", MediaType: img.MediaType, Data: img.Data}
}
