package anthropic

import (
	"encoding/json"

	"chatproxy/internal/apperrors"
)

// ParseModelList extracts model ids from an upstream F-A /v1/models body.
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

// ReshapeModelList implements spec.md §4.7's F-A output shape:
// {type:"model", id, display_name:id, created_at}. created_at is left
// as the zero-value timestamp string since the aggregator has no
// creation time for an upstream-listed model.
func (c *Codec) ReshapeModelList(ids []string, ownedBy string) []byte {
	resp := ModelListResponse{}
	for _, id := range ids {
		resp.Data = append(resp.Data, ModelEntry{ID: id, Type: "model", DisplayName: id})
	}
	b, _ := json.Marshal(resp)
	return b
}
