package ingress

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/channel"
	"chatproxy/internal/family"
	"chatproxy/internal/logger"
	"chatproxy/internal/wire"
)

// handleStreamingChat implements spec.md §4.5/§5's streaming data flow:
// dispatch, decode the upstream SSE into neutral events, re-encode into
// the client family's SSE, and on abrupt upstream disconnect emit
// matching ContentBlockStop for every open block followed by
// MessageDelta{finish_reason:other} and MessageStop before closing.
func (rt *Router) handleStreamingChat(c *gin.Context, ctx context.Context, clientFamily wire.Family, inboundCodec, outboundCodec family.Codec, ch *channel.Channel, model string, outboundBody []byte, log *logger.Logger) {
	result, err := rt.dispatcher.DispatchStream(ctx, ch, outboundCodec, model, outboundBody)
	if err != nil {
		rt.writeError(c, clientFamily, err)
		return
	}
	defer result.Body.Close()

	if result.Status >= 400 {
		body, _ := io.ReadAll(result.Body)
		rt.writeError(c, clientFamily, apperrors.NewUpstreamError(result.Status, string(body)))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	encoder := inboundCodec.NewStreamEncoder(c.Writer)
	decoder := outboundCodec.NewStreamDecoder(result.Body)

	tracker := newOpenBlockTracker()

	for {
		select {
		case <-ctx.Done():
			tracker.closeAbruptly(encoder)
			log.Debugf("client disconnected mid-stream for channel %s", ch.ID)
			return
		default:
		}

		ev, err := decoder.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			c.Writer.Write(writeStreamError(inboundCodec, err))
			log.ErrorErr("upstream stream decode failed", err)
			return
		}

		tracker.observe(ev)
		if err := encoder.Encode(ev); err != nil {
			log.Debugf("client write failed mid-stream: %v", err)
			return
		}
	}
}

// openBlockTracker records which content-block indexes are currently
// open so an abrupt disconnect can close them in the order spec.md §4.5
// requires.
type openBlockTracker struct {
	open []int
}

func newOpenBlockTracker() *openBlockTracker {
	return &openBlockTracker{}
}

func (t *openBlockTracker) observe(ev *wire.StreamEvent) {
	switch ev.Kind {
	case wire.EventContentBlockStart:
		t.open = append(t.open, ev.Index)
	case wire.EventContentBlockStop:
		for i, idx := range t.open {
			if idx == ev.Index {
				t.open = append(t.open[:i], t.open[i+1:]...)
				break
			}
		}
	}
}

func (t *openBlockTracker) closeAbruptly(encoder family.StreamEncoder) {
	for _, idx := range t.open {
		encoder.Encode(&wire.StreamEvent{Kind: wire.EventContentBlockStop, Index: idx})
	}
	t.open = nil
	encoder.Encode(&wire.StreamEvent{Kind: wire.EventMessageDelta, FinishReason: wire.FinishOther, HasFinish: true})
	encoder.Encode(&wire.StreamEvent{Kind: wire.EventMessageStop})
}
