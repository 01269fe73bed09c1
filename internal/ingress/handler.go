package ingress

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/channel"
	"chatproxy/internal/family"
	"chatproxy/internal/wire"
)

// handleChat implements the data flow of spec.md §2: classify -> resolve
// -> translate(in) -> model remap -> budget remap (inside EncodeRequest)
// -> dispatch -> translate(out), branching on unary vs streaming.
func (rt *Router) handleChat(c *gin.Context) {
	requestID := uuid.NewString()
	start := time.Now()

	cl, err := Classify(c.Request)
	if err != nil {
		rt.writeError(c, "", err)
		return
	}

	inboundCodec, ok := rt.registry.Get(cl.Family)
	if !ok {
		rt.writeError(c, cl.Family, apperrors.NewInternal(nil))
		return
	}

	if cl.CustomKey == "" {
		rt.writeError(c, cl.Family, apperrors.NewAuthMissing())
		return
	}

	ch, err := rt.store.FindByCustomKey(cl.CustomKey)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	log := rt.log.Request(requestID, string(cl.Family), string(OpChat))
	ctx := family.WithRequestID(c.Request.Context(), requestID)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		rt.writeError(c, cl.Family, apperrors.NewInvalidRequest("body", "failed to read request body"))
		return
	}

	req, err := inboundCodec.DecodeRequest(body)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}
	if cl.Family == "gemini" {
		req.Model = cl.GeminiModel
		req.Stream = cl.ForceStream
	}

	req.Model = channel.ApplyModelMapping(ch, req.Model)

	outboundCodec, ok := rt.registry.Get(ch.Family)
	if !ok {
		rt.writeError(c, cl.Family, apperrors.NewInternal(nil))
		return
	}

	outboundBody, err := outboundCodec.EncodeRequest(req)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	if req.Stream {
		rt.handleStreamingChat(c, ctx, cl.Family, inboundCodec, outboundCodec, ch, req.Model, outboundBody, log)
		return
	}

	result, err := rt.dispatcher.Dispatch(ctx, ch, outboundCodec, req.Model, outboundBody)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	neutralResp, err := outboundCodec.DecodeResponse(result.Body)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	if err := checkThinkingSupport(neutralResp, cl.Family); err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	out, err := inboundCodec.EncodeResponse(neutralResp)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	log.Infof("chat request completed in %s, status=%d", time.Since(start), http.StatusOK)
	c.Data(http.StatusOK, "application/json", out)
}

// checkThinkingSupport implements the Open Question decision of
// spec.md §9 / SPEC_FULL.md §3: F-O has no wire form for returning
// thinking content to a client. The request's own Thinking knob is
// always translatable into whatever the resolved channel speaks (see
// EncodeRequest in each translate/* package), so that alone is never a
// reason to reject — the only real gap is an F-O client on the receiving
// end of a response that actually carries a thinking block produced by
// an F-A/F-G channel. Gate on that, not on the inbound request.
func checkThinkingSupport(resp *wire.Response, clientFamily wire.Family) error {
	if clientFamily != wire.OpenAI {
		return nil
	}
	for _, p := range resp.Content {
		if p.Kind == wire.ContentThinking {
			return apperrors.NewTranslationUnsupported("thinking")
		}
	}
	return nil
}
