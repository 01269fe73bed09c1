package openai

import (
	"encoding/json"
	"io"

	"chatproxy/internal/family"
	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

// streamDecoder turns an upstream F-O SSE stream into neutral
// wire.StreamEvent values. It tracks which block index is currently
// open for text and for each in-progress tool call, since F-O deltas
// carry only an index and the neutral model needs explicit
// start/delta/stop events.
type streamDecoder struct {
	r            *sse.Reader
	started      bool
	textOpen     bool
	toolOpen     map[int]string // index -> tool call id
	messageID    string
	model        string
	pending      []wire.StreamEvent
	finishReason wire.FinishReason
	hasFinish    bool
	usage        *wire.Usage
	closed       bool
}

func (c *Codec) NewStreamDecoder(r io.Reader) family.StreamDecoder {
	return &streamDecoder{r: sse.NewReader(r), toolOpen: make(map[int]string)}
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
		if raw.Data == "[DONE]" {
			d.flushClose()
			continue
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(raw.Data), &chunk); err != nil {
			continue
		}
		d.handleChunk(chunk)
	}
}

func (d *streamDecoder) handleChunk(chunk StreamChunk) {
	if !d.started {
		d.started = true
		d.messageID = chunk.ID
		d.model = chunk.Model
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventMessageStart, MessageID: chunk.ID, Model: chunk.Model})
	}
	if chunk.Usage != nil {
		d.usage = &wire.Usage{
			PromptTokens:     &chunk.Usage.PromptTokens,
			CompletionTokens: &chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		if !d.textOpen {
			d.textOpen = true
			d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStart, Index: 0, Block: wire.BlockText})
		}
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: 0, DeltaKind: wire.DeltaText, DeltaText: *choice.Delta.Content})
	}

	for _, tc := range choice.Delta.ToolCalls {
		idx := tc.Index + 1 // reserve index 0 for text
		id, open := d.toolOpen[idx]
		if !open {
			id = tc.ID
			d.toolOpen[idx] = id
			d.pending = append(d.pending, wire.StreamEvent{
				Kind: wire.EventContentBlockStart, Index: idx, Block: wire.BlockToolCall,
				Name: tc.Function.Name, ToolCallID: id,
			})
		}
		if tc.Function.Arguments != "" {
			d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: idx, DeltaKind: wire.DeltaJSON, DeltaText: tc.Function.Arguments})
		}
	}

	if choice.FinishReason != nil {
		d.finishReason = normalizeFinishReason(*choice.FinishReason)
		d.hasFinish = true
	}
}

func (d *streamDecoder) flushClose() {
	if d.closed {
		return
	}
	d.closed = true
	if d.textOpen {
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: 0})
	}
	for idx := range d.toolOpen {
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: idx})
	}
	ev := wire.StreamEvent{Kind: wire.EventMessageDelta, FinishReason: wire.FinishOther, HasFinish: true, Usage: d.usage}
	if d.hasFinish {
		ev.FinishReason = d.finishReason
	}
	d.pending = append(d.pending, ev, wire.StreamEvent{Kind: wire.EventMessageStop})
}

// streamEncoder turns neutral events into F-O chat.completion.chunk SSE
// frames for a client that itself speaks F-O, regardless of which
// family's channel produced the neutral events.
type streamEncoder struct {
	w         *sse.Writer
	messageID string
	model     string
	toolIndex map[int]int // neutral index -> openai tool_calls array position
	nextTool  int
}

func (c *Codec) NewStreamEncoder(w io.Writer) family.StreamEncoder {
	return &streamEncoder{w: sse.NewWriter(w), toolIndex: make(map[int]int)}
}

func (e *streamEncoder) Encode(ev *wire.StreamEvent) error {
	switch ev.Kind {
	case wire.EventMessageStart:
		e.messageID = ev.MessageID
		e.model = ev.Model
		return e.writeChunk(StreamChunk{
			ID: e.messageID, Object: "chat.completion.chunk", Model: e.model,
			Choices: []StreamChoice{{Index: 0, Delta: StreamDelta{Role: "assistant"}}},
		})

	case wire.EventContentBlockStart:
		if ev.Block == wire.BlockToolCall {
			pos := e.nextTool
			e.toolIndex[ev.Index] = pos
			e.nextTool++
			return e.writeChunk(StreamChunk{
				ID: e.messageID, Object: "chat.completion.chunk", Model: e.model,
				Choices: []StreamChoice{{Index: 0, Delta: StreamDelta{ToolCalls: []ToolCall{{
					Index: pos, ID: ev.ToolCallID, Type: "function",
					Function: Function{Name: ev.Name, Arguments: ""},
				}}}}},
			})
		}
		return nil

	case wire.EventContentBlockDelta:
		switch ev.DeltaKind {
		case wire.DeltaText:
			text := ev.DeltaText
			return e.writeChunk(StreamChunk{
				ID: e.messageID, Object: "chat.completion.chunk", Model: e.model,
				Choices: []StreamChoice{{Index: 0, Delta: StreamDelta{Content: &text}}},
			})
		case wire.DeltaJSON:
			pos := e.toolIndex[ev.Index]
			return e.writeChunk(StreamChunk{
				ID: e.messageID, Object: "chat.completion.chunk", Model: e.model,
				Choices: []StreamChoice{{Index: 0, Delta: StreamDelta{ToolCalls: []ToolCall{{
					Index: pos, Function: Function{Arguments: ev.DeltaText},
				}}}}},
			})
		default:
			// F-O has no "thinking" delta wire form; dropped.
			return nil
		}

	case wire.EventContentBlockStop:
		return nil

	case wire.EventMessageDelta:
		if !ev.HasFinish {
			return nil
		}
		reason := denormalizeFinishReason(ev.FinishReason)
		var usage *Usage
		if ev.Usage != nil {
			usage = &Usage{}
			if ev.Usage.PromptTokens != nil {
				usage.PromptTokens = *ev.Usage.PromptTokens
			}
			if ev.Usage.CompletionTokens != nil {
				usage.CompletionTokens = *ev.Usage.CompletionTokens
			}
			usage.TotalTokens = ev.Usage.TotalTokens
		}
		return e.writeChunk(StreamChunk{
			ID: e.messageID, Object: "chat.completion.chunk", Model: e.model,
			Choices: []StreamChoice{{Index: 0, Delta: StreamDelta{}, FinishReason: &reason}},
			Usage:   usage,
		})

	case wire.EventMessageStop:
		return e.w.WriteEvent(sse.Event{Data: "[DONE]"})
	}
	return nil
}

func (e *streamEncoder) writeChunk(c StreamChunk) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return e.w.WriteEvent(sse.Event{Data: string(b)})
}
