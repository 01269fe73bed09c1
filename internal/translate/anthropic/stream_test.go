package anthropic

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

// errReader yields a few SSE frames and then a non-EOF read error, to
// simulate an upstream connection that drops mid-stream rather than
// closing cleanly.
type errReader struct {
	body string
	read bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.body), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestStreamDecoderTracksBlockKindAcrossDeltaAndStop(t *testing.T) {
	raw := strings.Join([]string{
		`event: message_start` + "\n" + `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5"}}`,
		`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
		`event: content_block_stop` + "\n" + `data: {"type":"content_block_stop","index":0}`,
		`event: message_delta` + "\n" + `data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"input_tokens":1,"output_tokens":2}}`,
		`event: message_stop` + "\n" + `data: {"type":"message_stop"}`,
		"",
	}, "\n\n")

	dec := &streamDecoder{r: sse.NewReader(strings.NewReader(raw)), blockKind: make(map[int]wire.BlockKind)}

	var events []*wire.StreamEvent
	for {
		ev, err := dec.Next()
		if err != nil {
			break
		}
		events = append(events, ev)
	}

	if len(events) != 6 {
		t.Fatalf("len(events) = %d, want 6, got %+v", len(events), events)
	}
	if events[1].Block != wire.BlockText {
		t.Errorf("events[1].Block = %s, want text", events[1].Block)
	}
	if events[2].DeltaKind != wire.DeltaText || events[2].DeltaText != "hi" {
		t.Errorf("events[2] = %+v, want text delta 'hi'", events[2])
	}
	last := events[len(events)-2]
	if !last.HasFinish || last.FinishReason != wire.FinishStop {
		t.Errorf("message_delta event = %+v, want finish=stop", last)
	}
}

func TestStreamDecoderFlushesCloseOnAbruptDisconnect(t *testing.T) {
	raw := strings.Join([]string{
		`event: message_start` + "\n" + `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5"}}`,
		`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
		"",
	}, "\n\n")

	dec := &streamDecoder{r: sse.NewReader(&errReader{body: raw}), blockKind: make(map[int]wire.BlockKind)}

	var events []*wire.StreamEvent
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v, want synthesized close ending in io.EOF", err)
		}
		events = append(events, ev)
	}

	if len(events) != 6 {
		t.Fatalf("len(events) = %d, want 6 (message_start, block_start, delta, synthetic block_stop, synthetic message_delta, synthetic message_stop)", len(events))
	}
	if events[3].Kind != wire.EventContentBlockStop || events[3].Index != 0 {
		t.Errorf("events[3] = %+v, want synthetic content_block_stop at index 0", events[3])
	}
	delta := events[4]
	if delta.Kind != wire.EventMessageDelta || !delta.HasFinish || delta.FinishReason != wire.FinishOther {
		t.Errorf("events[4] = %+v, want synthetic message_delta with finish=other", delta)
	}
	if events[5].Kind != wire.EventMessageStop {
		t.Errorf("events[5] = %+v, want synthetic message_stop", events[5])
	}
}

func TestStreamDecoderSkipsPingAndErrorEvents(t *testing.T) {
	raw := strings.Join([]string{
		`event: ping` + "\n" + `data: {"type":"ping"}`,
		`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		"",
	}, "\n\n")

	dec := &streamDecoder{r: sse.NewReader(strings.NewReader(raw)), blockKind: make(map[int]wire.BlockKind)}
	ev, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if ev.Kind != wire.EventContentBlockStart {
		t.Errorf("Next() = %+v, want content_block_start (ping skipped)", ev)
	}
}

func TestStreamEncoderEmitsNamedEventsPerBlock(t *testing.T) {
	var buf bytes.Buffer
	enc := &streamEncoder{w: sse.NewWriter(&buf)}

	events := []*wire.StreamEvent{
		{Kind: wire.EventMessageStart, MessageID: "msg_1", Model: "claude-sonnet-4-5"},
		{Kind: wire.EventContentBlockStart, Index: 0, Block: wire.BlockToolCall, Name: "lookup", ToolCallID: "call_1"},
		{Kind: wire.EventContentBlockDelta, Index: 0, DeltaKind: wire.DeltaJSON, DeltaText: `{"q":1}`},
		{Kind: wire.EventContentBlockStop, Index: 0},
		{Kind: wire.EventMessageDelta, HasFinish: true, FinishReason: wire.FinishToolUse},
		{Kind: wire.EventMessageStop},
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode(%+v) error: %v", ev, err)
		}
	}

	out := buf.String()
	for _, name := range []string{"event: message_start", "event: content_block_start", "event: content_block_delta", "event: content_block_stop", "event: message_delta", "event: message_stop"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %q: %s", name, out)
		}
	}
	if !strings.Contains(out, `"stop_reason":"tool_use"`) {
		t.Errorf("output missing denormalized stop_reason: %s", out)
	}
}
