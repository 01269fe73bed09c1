package openai

import "encoding/json"

// EncodeError builds spec.md §7's F-O error envelope.
func (c *Codec) EncodeError(status int, message string) []byte {
	b, _ := json.Marshal(ErrorEnvelope{Error: ErrorBody{
		Message: message,
		Type:    errorType(status),
	}})
	return b
}

// EncodeStreamError builds the terminal SSE frame emitted when an error
// occurs mid-stream, after at least one byte has already reached the
// client and the response can no longer switch to a plain error body.
func (c *Codec) EncodeStreamError(message string) []byte {
	b, _ := json.Marshal(ErrorEnvelope{Error: ErrorBody{Message: message, Type: "server_error"}})
	return b
}

func errorType(status int) string {
	switch {
	case status == 401:
		return "authentication_error"
	case status == 403:
		return "permission_error"
	case status == 400 || status == 422:
		return "invalid_request_error"
	case status == 504:
		return "timeout_error"
	case status >= 500:
		return "server_error"
	default:
		return "api_error"
	}
}
