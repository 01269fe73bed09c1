package gemini

import (
	"fmt"

	"chatproxy/internal/family"
	"chatproxy/internal/thinking"
	"chatproxy/internal/wire"
)

// Codec implements family.Codec for the F-G wire dialect.
type Codec struct {
	thinking *thinking.Mapper
}

func New(m *thinking.Mapper) *Codec {
	return &Codec{thinking: m}
}

func (c *Codec) Family() wire.Family { return wire.Gemini }

func (c *Codec) ChatPath(model string, stream bool) string {
	action := "generateContent"
	if stream {
		action = "streamGenerateContent"
	}
	return fmt.Sprintf("/v1beta/models/%s:%s", model, action)
}

func (c *Codec) ModelListPath() string {
	return "/v1beta/models"
}

func (c *Codec) InjectAuth(credential string) family.AuthPlacement {
	return family.AuthPlacement{
		Headers:     map[string]string{"x-goog-api-key": credential},
		QueryParams: map[string]string{"key": credential},
	}
}
