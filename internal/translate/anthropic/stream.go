package anthropic

import (
	"encoding/json"
	"io"
	"sort"

	"chatproxy/internal/family"
	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

// streamDecoder turns an upstream F-A SSE stream into neutral events.
// F-A's own event model is already block-structured, so this is mostly
// a field-for-field remap rather than the bookkeeping F-O's decoder
// needs, except for tracking which block indexes are still open: an
// abrupt upstream disconnect must still close them and emit a
// synthetic finish, the same as the F-O and F-G decoders do.
type streamDecoder struct {
	r            *sse.Reader
	blockKind    map[int]wire.BlockKind
	pending      []wire.StreamEvent
	closed       bool
	finishReason wire.FinishReason
	hasFinish    bool
	usage        *wire.Usage
}

func (c *Codec) NewStreamDecoder(r io.Reader) family.StreamDecoder {
	return &streamDecoder{r: sse.NewReader(r), blockKind: make(map[int]wire.BlockKind)}
}

func (d *streamDecoder) Next() (*wire.StreamEvent, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return &ev, nil
		}
		if d.closed {
			return nil, io.EOF
		}

		raw, err := d.r.Next()
		if err != nil {
			d.flushClose()
			if len(d.pending) > 0 {
				continue
			}
			return nil, err
		}
		if raw.Data == "" {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(raw.Data), &ev); err != nil {
			continue
		}

		out, ok := d.convert(ev)
		if ok {
			return out, nil
		}
	}
}

// flushClose synthesizes the closing sequence a client expects but an
// abruptly disconnected upstream never sent: a ContentBlockStop for
// every block still open, a MessageDelta carrying whatever finish
// reason and usage were last known (finish_reason "other" if none
// arrived), and a MessageStop. Mirrors openai/stream.go and
// gemini/stream.go's flushClose.
func (d *streamDecoder) flushClose() {
	if d.closed {
		return
	}
	d.closed = true

	indexes := make([]int, 0, len(d.blockKind))
	for idx := range d.blockKind {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: idx})
		delete(d.blockKind, idx)
	}

	ev := wire.StreamEvent{Kind: wire.EventMessageDelta, FinishReason: wire.FinishOther, HasFinish: true, Usage: d.usage}
	if d.hasFinish {
		ev.FinishReason = d.finishReason
	}
	d.pending = append(d.pending, ev, wire.StreamEvent{Kind: wire.EventMessageStop})
}

func (d *streamDecoder) convert(ev StreamEvent) (*wire.StreamEvent, bool) {
	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return nil, false
		}
		return &wire.StreamEvent{Kind: wire.EventMessageStart, MessageID: ev.Message.ID, Model: ev.Message.Model}, true

	case "content_block_start":
		if ev.Index == nil || ev.ContentBlock == nil {
			return nil, false
		}
		idx := *ev.Index
		var kind wire.BlockKind
		var name, toolID string
		switch ev.ContentBlock.Type {
		case "tool_use":
			kind = wire.BlockToolCall
			name = ev.ContentBlock.Name
			toolID = ev.ContentBlock.ID
		case "thinking":
			kind = wire.BlockThinking
		default:
			kind = wire.BlockText
		}
		d.blockKind[idx] = kind
		return &wire.StreamEvent{Kind: wire.EventContentBlockStart, Index: idx, Block: kind, Name: name, ToolCallID: toolID}, true

	case "content_block_delta":
		if ev.Index == nil {
			return nil, false
		}
		idx := *ev.Index
		var tagged struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(ev.Delta, &tagged); err != nil {
			return nil, false
		}
		switch tagged.Type {
		case "text_delta":
			var d2 TextDelta
			json.Unmarshal(ev.Delta, &d2)
			return &wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: idx, DeltaKind: wire.DeltaText, DeltaText: d2.Text}, true
		case "input_json_delta":
			var d2 InputJSONDelta
			json.Unmarshal(ev.Delta, &d2)
			return &wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: idx, DeltaKind: wire.DeltaJSON, DeltaText: d2.PartialJSON}, true
		case "thinking_delta":
			var d2 ThinkingDelta
			json.Unmarshal(ev.Delta, &d2)
			return &wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: idx, DeltaKind: wire.DeltaThinking, DeltaText: d2.Thinking}, true
		case "signature_delta":
			return nil, false
		}
		return nil, false

	case "content_block_stop":
		if ev.Index == nil {
			return nil, false
		}
		delete(d.blockKind, *ev.Index)
		return &wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: *ev.Index}, true

	case "message_delta":
		var payload MessageDeltaPayload
		json.Unmarshal(ev.Delta, &payload)
		out := &wire.StreamEvent{Kind: wire.EventMessageDelta, Usage: usagePtr(ev.Usage)}
		d.usage = out.Usage
		if payload.StopReason != "" {
			out.FinishReason = normalizeStopReason(payload.StopReason)
			out.HasFinish = true
			d.finishReason = out.FinishReason
			d.hasFinish = true
		}
		return out, true

	case "message_stop":
		d.closed = true
		return &wire.StreamEvent{Kind: wire.EventMessageStop}, true

	case "ping", "error":
		return nil, false
	}
	return nil, false
}

func usagePtr(u *Usage) *wire.Usage {
	if u == nil {
		return nil
	}
	return &wire.Usage{PromptTokens: &u.InputTokens, CompletionTokens: &u.OutputTokens}
}

// streamEncoder turns neutral events into F-A SSE frames for a client
// that itself speaks F-A.
type streamEncoder struct {
	w *sse.Writer
}

func (c *Codec) NewStreamEncoder(w io.Writer) family.StreamEncoder {
	return &streamEncoder{w: sse.NewWriter(w)}
}

func (e *streamEncoder) Encode(ev *wire.StreamEvent) error {
	switch ev.Kind {
	case wire.EventMessageStart:
		return e.write("message_start", StreamEvent{
			Type: "message_start",
			Message: &Response{
				ID: ev.MessageID, Type: "message", Role: "assistant", Model: ev.Model,
			},
		})

	case wire.EventContentBlockStart:
		idx := ev.Index
		block := &ContentBlock{Type: "text"}
		switch ev.Block {
		case wire.BlockToolCall:
			block = &ContentBlock{Type: "tool_use", ID: ev.ToolCallID, Name: ev.Name, Input: json.RawMessage("{}")}
		case wire.BlockThinking:
			block = &ContentBlock{Type: "thinking"}
		}
		return e.write("content_block_start", StreamEvent{Type: "content_block_start", Index: &idx, ContentBlock: block})

	case wire.EventContentBlockDelta:
		idx := ev.Index
		var delta json.RawMessage
		switch ev.DeltaKind {
		case wire.DeltaText:
			delta, _ = json.Marshal(TextDelta{Type: "text_delta", Text: ev.DeltaText})
		case wire.DeltaJSON:
			delta, _ = json.Marshal(InputJSONDelta{Type: "input_json_delta", PartialJSON: ev.DeltaText})
		case wire.DeltaThinking:
			delta, _ = json.Marshal(ThinkingDelta{Type: "thinking_delta", Thinking: ev.DeltaText})
		}
		return e.write("content_block_delta", StreamEvent{Type: "content_block_delta", Index: &idx, Delta: delta})

	case wire.EventContentBlockStop:
		idx := ev.Index
		return e.write("content_block_stop", StreamEvent{Type: "content_block_stop", Index: &idx})

	case wire.EventMessageDelta:
		var delta json.RawMessage
		if ev.HasFinish {
			delta, _ = json.Marshal(MessageDeltaPayload{StopReason: denormalizeStopReason(ev.FinishReason)})
		} else {
			delta = json.RawMessage("{}")
		}
		var usage *Usage
		if ev.Usage != nil {
			usage = &Usage{}
			if ev.Usage.PromptTokens != nil {
				usage.InputTokens = *ev.Usage.PromptTokens
			}
			if ev.Usage.CompletionTokens != nil {
				usage.OutputTokens = *ev.Usage.CompletionTokens
			}
		}
		return e.write("message_delta", StreamEvent{Type: "message_delta", Delta: delta, Usage: usage})

	case wire.EventMessageStop:
		return e.write("message_stop", StreamEvent{Type: "message_stop"})
	}
	return nil
}

func (e *streamEncoder) write(name string, payload StreamEvent) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return e.w.WriteEvent(sse.Event{Name: name, Data: string(b)})
}
