package openai

import (
	"fmt"

	"chatproxy/internal/family"
	"chatproxy/internal/thinking"
	"chatproxy/internal/wire"
)

// Codec implements family.Codec for the F-O wire dialect. Its methods are
// split across request.go, response.go, stream.go, errors.go, models.go.
type Codec struct {
	thinking *thinking.Mapper
}

func New(m *thinking.Mapper) *Codec {
	return &Codec{thinking: m}
}

func (c *Codec) Family() wire.Family { return wire.OpenAI }

func (c *Codec) ChatPath(model string, stream bool) string {
	return "/v1/chat/completions"
}

func (c *Codec) ModelListPath() string {
	return "/v1/models"
}

func (c *Codec) InjectAuth(credential string) family.AuthPlacement {
	return family.AuthPlacement{
		Headers: map[string]string{"Authorization": fmt.Sprintf("Bearer %s", credential)},
	}
}
