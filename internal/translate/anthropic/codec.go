package anthropic

import (
	"chatproxy/internal/family"
	"chatproxy/internal/thinking"
	"chatproxy/internal/wire"
)

// Codec implements family.Codec for the F-A wire dialect.
type Codec struct {
	thinking *thinking.Mapper
}

func New(m *thinking.Mapper) *Codec {
	return &Codec{thinking: m}
}

func (c *Codec) Family() wire.Family { return wire.Anthropic }

func (c *Codec) ChatPath(model string, stream bool) string {
	return "/v1/messages"
}

func (c *Codec) ModelListPath() string {
	return "/v1/models"
}

func (c *Codec) InjectAuth(credential string) family.AuthPlacement {
	return family.AuthPlacement{
		Headers: map[string]string{
			"x-api-key":         credential,
			"anthropic-version": "2023-06-01",
		},
	}
}
