package anthropic

import (
	"strings"
	"testing"
)

func TestParseModelListExtractsIDs(t *testing.T) {
	body := []byte(`{"data":[{"id":"claude-sonnet-4-5","type":"model"},{"id":"claude-haiku-4-5","type":"model"}]}`)
	ids, err := testCodec().ParseModelList(body)
	if err != nil {
		t.Fatalf("ParseModelList() error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "claude-sonnet-4-5" || ids[1] != "claude-haiku-4-5" {
		t.Errorf("ParseModelList() = %v, want [claude-sonnet-4-5 claude-haiku-4-5]", ids)
	}
}

func TestReshapeModelListProducesModelEnvelope(t *testing.T) {
	out := testCodec().ReshapeModelList([]string{"gpt-4o"}, "openai")
	if !strings.Contains(string(out), `"id":"gpt-4o"`) || !strings.Contains(string(out), `"type":"model"`) {
		t.Errorf("ReshapeModelList() = %s, want id/type fields", out)
	}
}
