package gemini

import (
	"encoding/json"
	"io"
	"sort"
	"strings"

	"chatproxy/internal/family"
	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

// streamDecoder turns an upstream F-G SSE stream into neutral events.
// Gemini does not frame content blocks explicitly: each chunk carries
// whatever parts changed since the last chunk. A function call's name
// and args can arrive split across two or more chunks at the same part
// position, so the decoder tracks one open tool-call block per part
// position and appends to it rather than reopening, keeping the one
// open text/thinking block (index 0 and 1) the same way.
type streamDecoder struct {
	r         *sse.Reader
	started   bool
	textOpen  bool
	thinkOpen bool
	nextTool  int
	toolIndex map[int]int
	toolOpen  map[int]bool
	pending   []wire.StreamEvent
	closed    bool
}

const (
	textBlockIndex     = 0
	thinkingBlockIndex = 1
	firstToolIndex     = 2
)

func (c *Codec) NewStreamDecoder(r io.Reader) family.StreamDecoder {
	return &streamDecoder{
		r:         sse.NewReader(r),
		nextTool:  firstToolIndex,
		toolIndex: make(map[int]int),
		toolOpen:  make(map[int]bool),
	}
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
			d.flushClose(nil)
			if len(d.pending) > 0 {
				continue
			}
			return nil, err
		}
		if raw.Data == "" {
			continue
		}

		var resp Response
		if err := json.Unmarshal([]byte(raw.Data), &resp); err != nil {
			continue
		}
		d.handleChunk(resp)
	}
}

func (d *streamDecoder) handleChunk(resp Response) {
	if !d.started {
		d.started = true
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventMessageStart, Model: resp.ModelVersion})
	}
	if len(resp.Candidates) == 0 {
		return
	}
	cand := resp.Candidates[0]

	for pos, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			idx, open := d.toolIndex[pos]
			if !open {
				idx = d.nextTool
				d.nextTool++
				d.toolIndex[pos] = idx
				d.toolOpen[pos] = true
				d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStart, Index: idx, Block: wire.BlockToolCall, Name: p.FunctionCall.Name})
			}
			if len(p.FunctionCall.Args) > 0 {
				args, _ := json.Marshal(p.FunctionCall.Args)
				d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: idx, DeltaKind: wire.DeltaJSON, DeltaText: string(args)})
			}
		case p.Thought:
			if !d.thinkOpen {
				d.thinkOpen = true
				d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStart, Index: thinkingBlockIndex, Block: wire.BlockThinking})
			}
			d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: thinkingBlockIndex, DeltaKind: wire.DeltaThinking, DeltaText: p.Text})
		case p.Text != "":
			if !d.textOpen {
				d.textOpen = true
				d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStart, Index: textBlockIndex, Block: wire.BlockText})
			}
			d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockDelta, Index: textBlockIndex, DeltaKind: wire.DeltaText, DeltaText: p.Text})
		}
	}

	if cand.FinishReason != "" {
		var usage *wire.Usage
		if resp.UsageMetadata != nil {
			usage = &wire.Usage{
				PromptTokens:     &resp.UsageMetadata.PromptTokenCount,
				CompletionTokens: &resp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			}
		}
		reason := normalizeFinishReason(cand.FinishReason)
		d.flushClose(&struct {
			reason wire.FinishReason
			usage  *wire.Usage
		}{reason, usage})
	}
}

func (d *streamDecoder) flushClose(finish *struct {
	reason wire.FinishReason
	usage  *wire.Usage
}) {
	if d.closed {
		return
	}
	d.closed = true
	if d.textOpen {
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: textBlockIndex})
	}
	if d.thinkOpen {
		d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: thinkingBlockIndex})
	}
	positions := make([]int, 0, len(d.toolOpen))
	for pos := range d.toolOpen {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	for _, pos := range positions {
		if d.toolOpen[pos] {
			d.pending = append(d.pending, wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: d.toolIndex[pos]})
			d.toolOpen[pos] = false
		}
	}
	ev := wire.StreamEvent{Kind: wire.EventMessageDelta, FinishReason: wire.FinishOther, HasFinish: true}
	if finish != nil {
		ev.FinishReason = finish.reason
		ev.Usage = finish.usage
	}
	d.pending = append(d.pending, ev, wire.StreamEvent{Kind: wire.EventMessageStop})
}

// streamEncoder turns neutral events into F-G SSE frames for a client
// that itself speaks F-G. Since Gemini has no native block-open/close
// framing, each text/thinking delta becomes one complete chunk as soon
// as it arrives. Tool-call deltas carry raw fragments of a JSON-argument
// stream (the upstream family may be emitting them char-by-char), so an
// encoder must never parse them itself; the raw text is buffered per
// block index and only unmarshaled into a single Gemini functionCall
// part once that block's ContentBlockStop confirms the JSON is whole.
type streamEncoder struct {
	w            *sse.Writer
	model        string
	blockKind    map[int]wire.BlockKind
	toolName     map[int]string
	toolArgsBuf  map[int]*strings.Builder
	finishReason wire.FinishReason
	usage        *wire.Usage
}

func (c *Codec) NewStreamEncoder(w io.Writer) family.StreamEncoder {
	return &streamEncoder{
		w:           sse.NewWriter(w),
		blockKind:   make(map[int]wire.BlockKind),
		toolName:    make(map[int]string),
		toolArgsBuf: make(map[int]*strings.Builder),
	}
}

func (e *streamEncoder) Encode(ev *wire.StreamEvent) error {
	switch ev.Kind {
	case wire.EventMessageStart:
		e.model = ev.Model
		return nil

	case wire.EventContentBlockStart:
		e.blockKind[ev.Index] = ev.Block
		if ev.Block == wire.BlockToolCall {
			e.toolName[ev.Index] = ev.Name
			e.toolArgsBuf[ev.Index] = &strings.Builder{}
		}
		return nil

	case wire.EventContentBlockDelta:
		var part Part
		switch ev.DeltaKind {
		case wire.DeltaText:
			part = Part{Text: ev.DeltaText}
		case wire.DeltaThinking:
			part = Part{Text: ev.DeltaText, Thought: true}
		case wire.DeltaJSON:
			buf, ok := e.toolArgsBuf[ev.Index]
			if !ok {
				buf = &strings.Builder{}
				e.toolArgsBuf[ev.Index] = buf
			}
			buf.WriteString(ev.DeltaText)
			return nil
		}
		return e.writeChunk(Response{Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{part}}, Index: 0}}, ModelVersion: e.model})

	case wire.EventContentBlockStop:
		buf, ok := e.toolArgsBuf[ev.Index]
		if !ok {
			return nil
		}
		delete(e.toolArgsBuf, ev.Index)
		var args map[string]any
		if buf.Len() > 0 {
			if err := json.Unmarshal([]byte(buf.String()), &args); err != nil {
				return err
			}
		}
		part := Part{FunctionCall: &FunctionCall{Name: e.toolName[ev.Index], Args: args}}
		return e.writeChunk(Response{Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{part}}, Index: 0}}, ModelVersion: e.model})

	case wire.EventMessageDelta:
		if ev.HasFinish {
			e.finishReason = ev.FinishReason
		}
		e.usage = ev.Usage
		return nil

	case wire.EventMessageStop:
		usage := (*UsageMetadata)(nil)
		if e.usage != nil {
			usage = &UsageMetadata{}
			if e.usage.PromptTokens != nil {
				usage.PromptTokenCount = *e.usage.PromptTokens
			}
			if e.usage.CompletionTokens != nil {
				usage.CandidatesTokenCount = *e.usage.CompletionTokens
			}
			usage.TotalTokenCount = e.usage.TotalTokens
		}
		return e.writeChunk(Response{
			Candidates:    []Candidate{{Content: Content{Role: "model"}, FinishReason: denormalizeFinishReason(e.finishReason), Index: 0}},
			UsageMetadata: usage,
			ModelVersion:  e.model,
		})
	}
	return nil
}

func (e *streamEncoder) writeChunk(r Response) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return e.w.WriteEvent(sse.Event{Data: string(b)})
}
