package openai

import (
	"encoding/json"
	"fmt"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

// DecodeRequest implements family.RequestCodec, grounded on the teacher's
// openAIMessagesToInternal / openAIMessageToInternal helpers.
func (c *Codec) DecodeRequest(body []byte) (*wire.Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewInvalidRequest("", fmt.Sprintf("decode openai request: %v", err))
	}

	out := &wire.Request{
		Model:  req.Model,
		Stream: req.Stream,
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			if text, ok := plainText(m.Content); ok {
				if out.System != "" {
					out.System += "\n"
				}
				out.System += text
			}
			continue
		}
		turn, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, turn)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wire.ToolDecl{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	out.ToolChoice = decodeToolChoice(req.ToolChoice)

	out.Generation = wire.GenerationParams{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if req.MaxCompletionTokens != nil {
		out.Generation.MaxTokens = req.MaxCompletionTokens
	} else {
		out.Generation.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat != nil {
		out.Generation.ResponseFormat = decodeResponseFormat(req.ResponseFormat)
	}

	if req.ReasoningEffort != "" {
		out.Thinking = wire.Thinking{
			Kind:   wire.ThinkingEffort,
			Effort: wire.Effort(req.ReasoningEffort),
		}
	}

	return out, nil
}

func decodeResponseFormat(rf *ResponseFormat) *wire.ResponseFormat {
	switch rf.Type {
	case "json_object":
		return &wire.ResponseFormat{Kind: wire.ResponseFormatJSON}
	case "json_schema":
		var schema map[string]any
		if rf.JSONSchema != nil {
			schema = rf.JSONSchema.Schema
		}
		return &wire.ResponseFormat{Kind: wire.ResponseFormatSchema, Schema: schema}
	default:
		return &wire.ResponseFormat{Kind: wire.ResponseFormatText}
	}
}

func decodeToolChoice(raw json.RawMessage) wire.ToolChoice {
	if len(raw) == 0 {
		return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "none":
			return wire.ToolChoice{Kind: wire.ToolChoiceNone}
		case "required":
			return wire.ToolChoice{Kind: wire.ToolChoiceRequired}
		default:
			return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
		}
	}
	var named struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &named); err == nil && named.Function.Name != "" {
		return wire.ToolChoice{Kind: wire.ToolChoiceNamed, Name: named.Function.Name}
	}
	return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
}

func plainText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return "", false
}

func decodeMessage(m Message) (wire.Turn, error) {
	turn := wire.Turn{Role: decodeRole(m.Role)}

	if text, ok := plainText(m.Content); ok {
		if text != "" {
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentText, Text: text})
		}
	} else if len(m.Content) > 0 {
		var parts []ContentPart
		if err := json.Unmarshal(m.Content, &parts); err != nil {
			return turn, apperrors.NewInvalidRequest("messages[].content", fmt.Sprintf("decode message content: %v", err))
		}
		for _, p := range parts {
			switch p.Type {
			case "text":
				turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentText, Text: p.Text})
			case "image_url":
				if p.ImageURL == nil {
					continue
				}
				img := decodeImageURL(p.ImageURL.URL)
				turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentImage, Image: img})
			}
		}
	}

	if m.Role == "tool" {
		turn.Role = wire.RoleTool
		turn.Content = []wire.ContentPart{{
			Kind: wire.ContentToolResult,
			ToolResult: &wire.ToolResult{
				CallID:  m.ToolCallID,
				Content: turn.Content,
			},
		}}
		return turn, nil
	}

	for _, tc := range m.ToolCalls {
		turn.Content = append(turn.Content, wire.ContentPart{
			Kind: wire.ContentToolCall,
			ToolCall: &wire.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return turn, nil
}

func decodeImageURL(url string) *wire.Image {
	const b64Prefix = "data:"
	if len(url) > len(b64Prefix) && url[:len(b64Prefix)] == b64Prefix {
		mediaType, data := detectMediaType(url)
		return &wire.Image{Source: wire.ImageSourceBase64, Data: data, MediaType: mediaType}
	}
	return &wire.Image{Source: wire.ImageSourceURL, URL: url}
}

// detectMediaType splits a "data:<media>;base64,<data>" URI, grounded on
// the teacher's openai_helpers.go detectMediaType.
func detectMediaType(dataURI string) (mediaType, data string) {
	const prefix = "data:"
	rest := dataURI[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ',' {
			header := rest[:i]
			data = rest[i+1:]
			for j := 0; j < len(header); j++ {
				if header[j] == ';' {
					return header[:j], data
				}
			}
			return header, data
		}
	}
	return "image/png", ""
}

func decodeRole(role string) wire.Role {
	switch role {
	case "assistant":
		return wire.RoleAssistant
	case "tool":
		return wire.RoleTool
	default:
		return wire.RoleUser
	}
}

// EncodeRequest implements family.RequestCodec for egress to an F-O
// upstream channel.
func (c *Codec) EncodeRequest(req *wire.Request) ([]byte, error) {
	out := Request{
		Model:  req.Model,
		Stream: req.Stream,
	}

	if req.System != "" {
		out.Messages = append(out.Messages, Message{Role: "system", Content: rawString(req.System)})
	}
	for _, t := range req.Messages {
		msgs, err := encodeTurn(t)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, msgs...)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, Tool{
			Type: "function",
			Function: ToolFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if tc := encodeToolChoice(req.ToolChoice); tc != nil {
		out.ToolChoice = tc
	}

	out.Temperature = req.Generation.Temperature
	out.TopP = req.Generation.TopP
	out.MaxTokens = req.Generation.MaxTokens
	out.Stop = req.Generation.Stop
	if rf := req.Generation.ResponseFormat; rf != nil {
		out.ResponseFormat = encodeResponseFormat(rf)
	}

	if req.Thinking.Kind != wire.ThinkingNone {
		resolved := c.thinking.Resolve(req.Thinking)
		out.ReasoningEffort = string(resolved.OpenAIEffort)
		// Reasoning-capable models reject max_tokens and require
		// max_completion_tokens instead; move whatever budget was resolved
		// (or the mapper's default) over and clear the legacy field.
		budget := out.MaxTokens
		if budget == nil {
			def := c.thinking.DefaultOpenAIReasoningMaxTokens()
			budget = &def
		}
		out.MaxCompletionTokens = budget
		out.MaxTokens = nil
	}

	return json.Marshal(out)
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func encodeToolChoice(tc wire.ToolChoice) json.RawMessage {
	switch tc.Kind {
	case wire.ToolChoiceNone:
		return rawString("none")
	case wire.ToolChoiceRequired:
		return rawString("required")
	case wire.ToolChoiceNamed:
		b, _ := json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tc.Name},
		})
		return b
	default:
		return nil
	}
}

func encodeResponseFormat(rf *wire.ResponseFormat) *ResponseFormat {
	switch rf.Kind {
	case wire.ResponseFormatJSON:
		return &ResponseFormat{Type: "json_object"}
	case wire.ResponseFormatSchema:
		return &ResponseFormat{Type: "json_schema", JSONSchema: &JSONSchema{Schema: rf.Schema}}
	default:
		return &ResponseFormat{Type: "text"}
	}
}

func encodeTurn(t wire.Turn) ([]Message, error) {
	if t.Role == wire.RoleTool {
		for _, p := range t.Content {
			if p.Kind == wire.ContentToolResult && p.ToolResult != nil {
				text := flattenText(p.ToolResult.Content)
				return []Message{{Role: "tool", ToolCallID: p.ToolResult.CallID, Content: rawString(text)}}, nil
			}
		}
		return nil, apperrors.NewInvalidRequest("messages[].content", "tool turn missing tool_result content")
	}

	role := "user"
	if t.Role == wire.RoleAssistant {
		role = "assistant"
	}
	msg := Message{Role: role}

	var parts []ContentPart
	for _, p := range t.Content {
		switch p.Kind {
		case wire.ContentText:
			parts = append(parts, ContentPart{Type: "text", Text: p.Text})
		case wire.ContentImage:
			parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: encodeImageURL(p.Image)}})
		case wire.ContentToolCall:
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   p.ToolCall.ID,
				Type: "function",
				Function: Function{
					Name:      p.ToolCall.Name,
					Arguments: p.ToolCall.Arguments,
				},
			})
		case wire.ContentThinking:
			// F-O has no wire form for inbound thinking content in a
			// request turn; dropped per spec.md §9's decision.
		}
	}

	if len(parts) == 1 && parts[0].Type == "text" {
		msg.Content = rawString(parts[0].Text)
	} else if len(parts) > 0 {
		b, err := json.Marshal(parts)
		if err != nil {
			return nil, err
		}
		msg.Content = b
	}

	return []Message{msg}, nil
}

func flattenText(parts []wire.ContentPart) string {
	var s string
	for _, p := range parts {
		if p.Kind == wire.ContentText {
			s += p.Text
		}
	}
	return s
}

func encodeImageURL(img *wire.Image) string {
	if img == nil {
		return ""
	}
	if img.Source == wire.ImageSourceBase64 {
		return fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Data)
	}
	return img.URL
}
