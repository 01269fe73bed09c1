// Package ingress classifies inbound HTTP requests (spec.md §4.1), wires
// resolver -> translator(in) -> mapper -> dispatcher -> translator(out),
// and is the sole boundary that serializes a typed apperrors.Error into
// the client family's error envelope (spec.md §7). Grounded on the
// teacher's internal/proxy/server.go, handler.go, streaming.go.
package ingress

import (
	"net/http"
	"strings"

	"chatproxy/internal/apperrors"
	"chatproxy/internal/wire"
)

// Operation is the ingress-classified request kind.
type Operation string

const (
	OpChat       Operation = "chat"
	OpListModels Operation = "list_models"
	OpOther      Operation = "other"
)

// Classification is the result of classifying one inbound request.
type Classification struct {
	Family    wire.Family
	Operation Operation
	CustomKey string

	// GeminiModel/ForceStream are set only when Operation == OpChat and
	// Family == wire.Gemini, since F-G carries the model and the
	// stream/non-stream distinction in the URL path rather than the body.
	GeminiModel string
	ForceStream bool
}

// Classify implements spec.md §4.1's rules verbatim.
func Classify(r *http.Request) (Classification, error) {
	path := r.URL.Path

	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/v1/messages"):
		key := bearerOrRaw(r.Header.Get("x-api-key"))
		return Classification{Family: wire.Anthropic, Operation: OpChat, CustomKey: key}, nil

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/v1/chat/completions"):
		key := extractBearer(r.Header.Get("Authorization"))
		return Classification{Family: wire.OpenAI, Operation: OpChat, CustomKey: key}, nil

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/v1beta/models/"):
		rest := strings.TrimPrefix(path, "/v1beta/models/")
		model, action, ok := splitModelAction(rest)
		if !ok {
			return Classification{}, apperrors.NewInvalidRequest("path", "expected /v1beta/models/{model}:generateContent")
		}
		key := geminiKey(r)
		return Classification{
			Family:      wire.Gemini,
			Operation:   OpChat,
			CustomKey:   key,
			GeminiModel: model,
			ForceStream: action == "streamGenerateContent",
		}, nil

	case r.Method == http.MethodGet && path == "/v1/models":
		if auth := r.Header.Get("Authorization"); auth != "" {
			return Classification{Family: wire.OpenAI, Operation: OpListModels, CustomKey: extractBearer(auth)}, nil
		}
		if key := r.Header.Get("x-api-key"); key != "" {
			return Classification{Family: wire.Anthropic, Operation: OpListModels, CustomKey: key}, nil
		}
		return Classification{}, apperrors.NewAuthMissing()

	case r.Method == http.MethodGet && path == "/v1beta/models":
		return Classification{Family: wire.Gemini, Operation: OpListModels, CustomKey: geminiKey(r)}, nil

	default:
		return Classification{Operation: OpOther}, nil
	}
}

func splitModelAction(rest string) (model, action string, ok bool) {
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return "", "", false
	}
	model, action = rest[:idx], rest[idx+1:]
	if action != "generateContent" && action != "streamGenerateContent" {
		return "", "", false
	}
	return model, action, true
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return header
}

func bearerOrRaw(header string) string {
	return header
}

func geminiKey(r *http.Request) string {
	if k := r.URL.Query().Get("key"); k != "" {
		return k
	}
	return r.Header.Get("x-goog-api-key")
}
