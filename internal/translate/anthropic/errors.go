package anthropic

import "encoding/json"

func (c *Codec) EncodeError(status int, message string) []byte {
	b, _ := json.Marshal(ErrorEnvelope{Type: "error", Error: ErrorBody{Type: errorType(status), Message: message}})
	return b
}

func (c *Codec) EncodeStreamError(message string) []byte {
	b, _ := json.Marshal(ErrorEnvelope{Type: "error", Error: ErrorBody{Type: "api_error", Message: message}})
	return b
}

func errorType(status int) string {
	switch {
	case status == 401:
		return "authentication_error"
	case status == 403:
		return "permission_error"
	case status == 400:
		return "invalid_request_error"
	case status == 404:
		return "not_found_error"
	case status == 422:
		return "invalid_request_error"
	case status == 429:
		return "rate_limit_error"
	case status == 504:
		return "timeout_error"
	case status >= 500:
		return "api_error"
	default:
		return "api_error"
	}
}
