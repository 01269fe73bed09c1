package gemini

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

func TestStreamDecoderAssignsFixedSlotsAndFlushesClose(t *testing.T) {
	raw := strings.Join([]string{
		`data: {"candidates":[{"content":{"role":"model","parts":[{"thought":true,"text":"thinking..."}]},"index":0}],"modelVersion":"gemini-2.0-flash"}`,
		`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]},"index":0}]}`,
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"lookup","args":{"q":1}}}]},"finishReason":"STOP","index":0}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2,"totalTokenCount":3}}`,
		"",
	}, "\n\n")

	dec := &streamDecoder{
		r:         sse.NewReader(strings.NewReader(raw)),
		nextTool:  firstToolIndex,
		toolIndex: make(map[int]int),
		toolOpen:  make(map[int]bool),
	}

	var events []*wire.StreamEvent
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		events = append(events, ev)
	}

	var thinkIdx, textIdx, toolIdx = -1, -1, -1
	for _, ev := range events {
		if ev.Kind == wire.EventContentBlockStart {
			switch ev.Block {
			case wire.BlockThinking:
				thinkIdx = ev.Index
			case wire.BlockText:
				textIdx = ev.Index
			case wire.BlockToolCall:
				toolIdx = ev.Index
			}
		}
	}
	if thinkIdx != thinkingBlockIndex {
		t.Errorf("thinking block index = %d, want %d", thinkIdx, thinkingBlockIndex)
	}
	if textIdx != textBlockIndex {
		t.Errorf("text block index = %d, want %d", textIdx, textBlockIndex)
	}
	if toolIdx != firstToolIndex {
		t.Errorf("tool call block index = %d, want %d", toolIdx, firstToolIndex)
	}

	last := events[len(events)-1]
	if last.Kind != wire.EventMessageStop {
		t.Errorf("last event = %s, want message_stop", last.Kind)
	}
	delta := events[len(events)-2]
	if !delta.HasFinish || delta.FinishReason != wire.FinishStop {
		t.Errorf("message_delta = %+v, want finish=stop", delta)
	}
}

func TestStreamDecoderAppendsFunctionCallSplitAcrossChunks(t *testing.T) {
	raw := strings.Join([]string{
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"lookup"}}]},"index":0}],"modelVersion":"gemini-2.0-flash"}`,
		`data: {"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"lookup","args":{"q":"paris"}}}]},"finishReason":"STOP","index":0}]}`,
		"",
	}, "\n\n")

	dec := &streamDecoder{
		r:         sse.NewReader(strings.NewReader(raw)),
		nextTool:  firstToolIndex,
		toolIndex: make(map[int]int),
		toolOpen:  make(map[int]bool),
	}

	var events []*wire.StreamEvent
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		events = append(events, ev)
	}

	var starts, deltas, stops int
	for _, ev := range events {
		switch ev.Kind {
		case wire.EventContentBlockStart:
			if ev.Block == wire.BlockToolCall {
				starts++
			}
		case wire.EventContentBlockDelta:
			if ev.DeltaKind == wire.DeltaJSON {
				deltas++
			}
		case wire.EventContentBlockStop:
			stops++
		}
	}
	if starts != 1 {
		t.Errorf("tool-call content_block_start count = %d, want 1", starts)
	}
	if deltas < 1 {
		t.Errorf("tool-call content_block_delta count = %d, want at least 1", deltas)
	}
	if stops != 1 {
		t.Errorf("content_block_stop count = %d, want 1", stops)
	}
}

func TestStreamEncoderBuffersToolArgsUntilBlockStop(t *testing.T) {
	var buf bytes.Buffer
	enc := &streamEncoder{
		w:           sse.NewWriter(&buf),
		blockKind:   make(map[int]wire.BlockKind),
		toolName:    make(map[int]string),
		toolArgsBuf: make(map[int]*strings.Builder),
	}

	events := []*wire.StreamEvent{
		{Kind: wire.EventMessageStart, Model: "gemini-2.0-flash"},
		{Kind: wire.EventContentBlockStart, Index: firstToolIndex, Block: wire.BlockToolCall, Name: "lookup"},
		{Kind: wire.EventContentBlockDelta, Index: firstToolIndex, DeltaKind: wire.DeltaJSON, DeltaText: `{"ci`},
		{Kind: wire.EventContentBlockDelta, Index: firstToolIndex, DeltaKind: wire.DeltaJSON, DeltaText: `ty":"Paris"}`},
		{Kind: wire.EventContentBlockStop, Index: firstToolIndex},
	}
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode(%+v) error: %v", ev, err)
		}
		if i == 2 || i == 3 {
			if buf.Len() != 0 {
				t.Fatalf("encoder wrote output before content_block_stop: %s", buf.String())
			}
		}
	}

	out := buf.String()
	if strings.Count(out, `"functionCall"`) != 1 {
		t.Errorf("expected exactly one functionCall chunk, got: %s", out)
	}
	if !strings.Contains(out, `"city":"Paris"`) {
		t.Errorf("output missing reassembled args: %s", out)
	}
}

func TestStreamEncoderEmitsOneChunkPerDelta(t *testing.T) {
	var buf bytes.Buffer
	enc := &streamEncoder{
		w:           sse.NewWriter(&buf),
		blockKind:   make(map[int]wire.BlockKind),
		toolName:    make(map[int]string),
		toolArgsBuf: make(map[int]*strings.Builder),
	}

	events := []*wire.StreamEvent{
		{Kind: wire.EventMessageStart, Model: "gemini-2.0-flash"},
		{Kind: wire.EventContentBlockStart, Index: textBlockIndex, Block: wire.BlockText},
		{Kind: wire.EventContentBlockDelta, Index: textBlockIndex, DeltaKind: wire.DeltaText, DeltaText: "hi"},
		{Kind: wire.EventContentBlockStop, Index: textBlockIndex},
		{Kind: wire.EventMessageDelta, HasFinish: true, FinishReason: wire.FinishStop},
		{Kind: wire.EventMessageStop},
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode(%+v) error: %v", ev, err)
		}
	}

	out := buf.String()
	if !strings.Contains(out, `"text":"hi"`) {
		t.Errorf("output missing text delta: %s", out)
	}
	if !strings.Contains(out, `"finishReason":"STOP"`) {
		t.Errorf("output missing finishReason STOP: %s", out)
	}
}
