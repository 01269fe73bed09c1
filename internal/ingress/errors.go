package ingress

import (
	"strings"

	"github.com/gin-gonic/gin"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/family"
	"chatproxy/internal/sse"
	"chatproxy/internal/wire"
)

// writeError is the sole place that turns an error into a client-family
// envelope (spec.md §7). clientFamily is the family of the inbound
// request itself, not the resolved channel's family, since a failure
// to resolve the channel happens before the channel's family is known.
func (rt *Router) writeError(c *gin.Context, clientFamily wire.Family, err error) {
	pe, ok := apperrors.As(err)
	if !ok {
		pe = apperrors.NewInternal(err)
	}
	if pe.Kind == apperrors.Internal {
		rt.log.ErrorErr("internal error serving request", pe)
	}

	codec, ok := rt.registry.Get(clientFamily)
	if !ok {
		c.Data(pe.HTTPStatus(), "application/json", []byte(`{"error":"unknown client family"}`))
		return
	}
	body := codec.EncodeError(pe.HTTPStatus(), errorMessage(pe))
	c.Data(pe.HTTPStatus(), "application/json", body)
}

// writeStreamError builds the terminal SSE error frame for an error that
// occurs after the stream has already started (spec.md §7). F-A frames
// it as a named "error" event; F-O/F-G carry the error in a data-only
// frame, matching how each family's stream.go frames every other event.
func writeStreamError(codec family.Codec, err error) []byte {
	pe, ok := apperrors.As(err)
	if !ok {
		pe = apperrors.NewInternal(err)
	}
	body := codec.EncodeStreamError(errorMessage(pe))

	var b strings.Builder
	w := sse.NewWriter(&b)
	name := ""
	if codec.Family() == wire.Anthropic {
		name = "error"
	}
	w.WriteEvent(sse.Event{Name: name, Data: string(body)})
	return []byte(b.String())
}

func errorMessage(pe *apperrors.Error) string {
	if pe.Kind == apperrors.Internal {
		return "internal error"
	}
	if pe.Kind == apperrors.UpstreamError && pe.Body != "" {
		return pe.Message + ": " + truncate(pe.Body, 500)
	}
	return pe.Message
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
