package gemini

import (
	"encoding/json"
	"fmt"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

// DecodeRequest has no standalone "model" field to read since Gemini
// carries the model in the URL path; callers (internal/ingress) must
// extract it from the path and set Request.Model themselves after this
// call returns.
func (c *Codec) DecodeRequest(body []byte) (*wire.Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewInvalidRequest("", fmt.Sprintf("decode gemini request: %v", err))
	}

	out := &wire.Request{Stream: false}

	if req.SystemInstruction != nil {
		out.System = flattenParts(req.SystemInstruction.Parts)
	}

	for _, content := range req.Contents {
		out.Messages = append(out.Messages, decodeContent(content))
	}

	for _, t := range req.Tools {
		for _, fn := range t.FunctionDeclarations {
			out.Tools = append(out.Tools, wire.ToolDecl{Name: fn.Name, Description: fn.Description, Parameters: fn.Parameters})
		}
	}
	out.ToolChoice = decodeToolConfig(req.ToolConfig)

	if gc := req.GenerationConfig; gc != nil {
		out.Generation = wire.GenerationParams{
			Temperature: gc.Temperature,
			TopP:        gc.TopP,
			MaxTokens:   gc.MaxOutputTokens,
			Stop:        gc.StopSequences,
		}
		if gc.ResponseMIMEType == "application/json" {
			if gc.ResponseSchema != nil {
				out.Generation.ResponseFormat = &wire.ResponseFormat{Kind: wire.ResponseFormatSchema, Schema: gc.ResponseSchema}
			} else {
				out.Generation.ResponseFormat = &wire.ResponseFormat{Kind: wire.ResponseFormatJSON}
			}
		}
		if gc.ThinkingConfig != nil {
			out.Thinking = decodeThinkingConfig(*gc.ThinkingConfig)
		}
	}

	return out, nil
}

func decodeThinkingConfig(tc ThinkingConfig) wire.Thinking {
	if tc.ThinkingBudget == 0 {
		return wire.Thinking{}
	}
	return wire.Thinking{Kind: wire.ThinkingBudget, BudgetTokens: tc.ThinkingBudget, SourceFamily: wire.Gemini}
}

func flattenParts(parts []Part) string {
	var s string
	for _, p := range parts {
		s += p.Text
	}
	return s
}

func decodeToolConfig(tc *ToolConfig) wire.ToolChoice {
	if tc == nil || tc.FunctionCallingConfig == nil {
		return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
	}
	switch tc.FunctionCallingConfig.Mode {
	case "NONE":
		return wire.ToolChoice{Kind: wire.ToolChoiceNone}
	case "ANY":
		names := tc.FunctionCallingConfig.AllowedFunctionNames
		if len(names) == 1 {
			return wire.ToolChoice{Kind: wire.ToolChoiceNamed, Name: names[0]}
		}
		return wire.ToolChoice{Kind: wire.ToolChoiceRequired}
	default:
		return wire.ToolChoice{Kind: wire.ToolChoiceAuto}
	}
}

func decodeContent(content Content) wire.Turn {
	turn := wire.Turn{Role: decodeRole(content.Role)}
	for _, p := range content.Parts {
		switch {
		case p.FunctionCall != nil:
			args, _ := json.Marshal(p.FunctionCall.Args)
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind:     wire.ContentToolCall,
				ToolCall: &wire.ToolCall{Name: p.FunctionCall.Name, Arguments: string(args)},
			})
		case p.FunctionResponse != nil:
			resp, _ := json.Marshal(p.FunctionResponse.Response)
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind: wire.ContentToolResult,
				ToolResult: &wire.ToolResult{
					CallID:  p.FunctionResponse.Name,
					Content: []wire.ContentPart{{Kind: wire.ContentText, Text: string(resp)}},
				},
			})
		case p.InlineData != nil:
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind:  wire.ContentImage,
				Image: &wire.Image{Source: wire.ImageSourceBase64, Data: p.InlineData.Data, MediaType: p.InlineData.MIMEType},
			})
		case p.FileData != nil:
			turn.Content = append(turn.Content, wire.ContentPart{
				Kind:  wire.ContentImage,
				Image: &wire.Image{Source: wire.ImageSourceURL, URL: p.FileData.FileURI, MediaType: p.FileData.MIMEType},
			})
		case p.Thought:
			turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentThinking, Thinking: p.Text})
		default:
			if p.Text != "" {
				turn.Content = append(turn.Content, wire.ContentPart{Kind: wire.ContentText, Text: p.Text})
			}
		}
	}
	return turn
}

func decodeRole(role string) wire.Role {
	if role == "model" {
		return wire.RoleAssistant
	}
	return wire.RoleUser
}

// EncodeRequest builds the outbound F-G request body for a channel whose
// upstream family is Gemini. The model is applied to the URL path by the
// dispatcher, via ChatPath, not into this body.
func (c *Codec) EncodeRequest(req *wire.Request) ([]byte, error) {
	out := Request{}

	if req.System != "" {
		out.SystemInstruction = &Content{Parts: []Part{{Text: req.System}}}
	}

	for _, t := range req.Messages {
		content, err := encodeTurn(t)
		if err != nil {
			return nil, err
		}
		out.Contents = append(out.Contents, content)
	}

	if len(req.Tools) > 0 {
		var decls []FunctionDecl
		for _, t := range req.Tools {
			decls = append(decls, FunctionDecl{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		out.Tools = []Tool{{FunctionDeclarations: decls}}
	}
	if tc := encodeToolConfig(req.ToolChoice); tc != nil {
		out.ToolConfig = tc
	}

	gc := &GenerationConfig{
		Temperature:     req.Generation.Temperature,
		TopP:            req.Generation.TopP,
		MaxOutputTokens: req.Generation.MaxTokens,
		StopSequences:   req.Generation.Stop,
	}
	if rf := req.Generation.ResponseFormat; rf != nil {
		switch rf.Kind {
		case wire.ResponseFormatJSON:
			gc.ResponseMIMEType = "application/json"
		case wire.ResponseFormatSchema:
			gc.ResponseMIMEType = "application/json"
			gc.ResponseSchema = rf.Schema
		}
	}
	if req.Thinking.Kind != wire.ThinkingNone {
		resolved := c.thinking.Resolve(req.Thinking)
		if resolved.GeminiBudgetTokens > 0 {
			gc.ThinkingConfig = &ThinkingConfig{ThinkingBudget: resolved.GeminiBudgetTokens, IncludeThoughts: true}
		}
	}
	out.GenerationConfig = gc

	return json.Marshal(out)
}

func encodeToolConfig(tc wire.ToolChoice) *ToolConfig {
	switch tc.Kind {
	case wire.ToolChoiceNone:
		return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "NONE"}}
	case wire.ToolChoiceRequired:
		return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "ANY"}}
	case wire.ToolChoiceNamed:
		return &ToolConfig{FunctionCallingConfig: &FunctionCallingConfig{Mode: "ANY", AllowedFunctionNames: []string{tc.Name}}}
	default:
		return nil
	}
}

func encodeTurn(t wire.Turn) (Content, error) {
	role := "user"
	if t.Role == wire.RoleAssistant {
		role = "model"
	}

	var parts []Part
	for _, p := range t.Content {
		switch p.Kind {
		case wire.ContentText:
			parts = append(parts, Part{Text: p.Text})
		case wire.ContentImage:
			parts = append(parts, encodeImagePart(p.Image))
		case wire.ContentToolCall:
			var args map[string]any
			if len(p.ToolCall.Arguments) > 0 {
				if err := json.Unmarshal([]byte(p.ToolCall.Arguments), &args); err != nil {
					args = map[string]any{}
				}
			}
			parts = append(parts, Part{FunctionCall: &FunctionCall{Name: p.ToolCall.Name, Args: args}})
		case wire.ContentToolResult:
			var respMap map[string]any
			text := flattenWireText(p.ToolResult.Content)
			if err := json.Unmarshal([]byte(text), &respMap); err != nil {
				respMap = map[string]any{"result": text}
			}
			parts = append(parts, Part{FunctionResponse: &FunctionResponse{Name: p.ToolResult.CallID, Response: respMap}})
		case wire.ContentThinking:
			parts = append(parts, Part{Text: p.Thinking, Thought: true})
		}
	}
	return Content{Role: role, Parts: parts}, nil
}

func flattenWireText(parts []wire.ContentPart) string {
	var s string
	for _, p := range parts {
		if p.Kind == wire.ContentText {
			s += p.Text
		}
	}
	return s
}

func encodeImagePart(img *wire.Image) Part {
	if img == nil {
		return Part{}
	}
	if img.Source == wire.ImageSourceURL {
		return Part{FileData: &FileData{FileURI: img.URL, MIMEType: img.MediaType}}
	}
	return Part{InlineData: &Blob{MIMEType: img.MediaType, Data: img.Data}}
}
