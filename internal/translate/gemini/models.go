package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"chatproxy/internal/apperrors"
)

// ParseModelList extracts bare model ids from an upstream F-G
// /v1beta/models body, stripping the "models/" resource-name prefix.
func (c *Codec) ParseModelList(body []byte) ([]string, error) {
	var resp ModelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewUpstreamError(0, string(body))
	}
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}

// ReshapeModelList implements spec.md §4.7's F-G output shape:
// {name:"models/"+id, supportedGenerationMethods:["generateContent"]}.
func (c *Codec) ReshapeModelList(ids []string, ownedBy string) []byte {
	resp := ModelListResponse{}
	for _, id := range ids {
		resp.Models = append(resp.Models, ModelEntry{
			Name:                       fmt.Sprintf("models/%s", id),
			SupportedGenerationMethods: []string{"generateContent"},
		})
	}
	b, _ := json.Marshal(resp)
	return b
}
