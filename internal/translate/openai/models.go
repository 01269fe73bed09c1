package openai

import (
	"encoding/json"

	"chatproxy/internal/apperrors"
)

// ParseModelList extracts model ids from an upstream F-O /v1/models body.
func (c *Codec) ParseModelList(body []byte) ([]string, error) {
	var resp ModelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewUpstreamError(0, string(body))
	}
	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// ReshapeModelList implements spec.md §4.7 for an F-O client: every
// aggregated upstream model id becomes one ModelEntry.
func (c *Codec) ReshapeModelList(ids []string, ownedBy string) []byte {
	resp := ModelListResponse{Object: "list"}
	for _, id := range ids {
		resp.Data = append(resp.Data, ModelEntry{ID: id, Object: "model", OwnedBy: ownedBy})
	}
	b, _ := json.Marshal(resp)
	return b
}
