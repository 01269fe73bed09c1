package ingress

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatproxy/internal/apperrors"
)

// handleModelList implements spec.md §4.7's model-list aggregator: given
// a list_models ingress, resolve the channel, fetch the upstream
// family's listing, then reshape into the ingress family's own list
// schema. It does not filter; it exposes whatever the upstream exposes.
func (rt *Router) handleModelList(c *gin.Context) {
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

	outboundCodec, ok := rt.registry.Get(ch.Family)
	if !ok {
		rt.writeError(c, cl.Family, apperrors.NewInternal(nil))
		return
	}

	body, err := rt.dispatcher.FetchModelList(c.Request.Context(), ch, outboundCodec)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	ids, err := outboundCodec.ParseModelList(body)
	if err != nil {
		rt.writeError(c, cl.Family, err)
		return
	}

	out := inboundCodec.ReshapeModelList(ids, string(ch.Family))
	c.Data(http.StatusOK, "application/json", out)
}
