// Package family defines the per-family capability set described in
// spec.md §9's design note: "Model them as tagged variants of a Family
// enum with a trait/interface capability set ... Do not share code via
// inheritance; share via a table of these capability sets keyed by
// Family." Concrete implementations live in internal/translate/*.
package family

import (
	"context"
	"io"

	"chatproxy/internal/wire"
)

// RequestCodec decodes an inbound HTTP body of this family into the
// neutral wire.Request and encodes a neutral wire.Request into this
// family's outbound body.
type RequestCodec interface {
	DecodeRequest(body []byte) (*wire.Request, error)
	EncodeRequest(req *wire.Request) ([]byte, error)
}

// ResponseCodec handles unary (non-streaming) responses.
type ResponseCodec interface {
	DecodeResponse(body []byte) (*wire.Response, error)
	EncodeResponse(resp *wire.Response) ([]byte, error)
}

// StreamDecoder turns this family's raw SSE byte stream into a pull-style
// sequence of neutral events. Next returns (nil, io.EOF) once the
// upstream stream is exhausted.
type StreamDecoder interface {
	Next() (*wire.StreamEvent, error)
}

// StreamEncoder turns neutral events into this family's SSE byte stream,
// writing directly to w. There is no Close method: terminal framing is
// written when the MessageStop event is encoded. The encoder does not
// track open blocks; the closing sequence for an abrupt upstream
// disconnect is synthesized by each family's StreamDecoder, and
// internal/ingress closes still-open blocks when the client's context
// ends.
type StreamEncoder interface {
	Encode(ev *wire.StreamEvent) error
}

// ErrorEncoder builds this family's client-visible error envelope
// (spec.md §7) and, for an in-progress stream, its terminal error event.
type ErrorEncoder interface {
	EncodeError(status int, message string) []byte
	EncodeStreamError(message string) []byte
}

// ModelListReshaper turns a flat list of upstream model ids into this
// family's model-list response shape (spec.md §4.7), and extracts that
// same flat list back out of a response in this family's own shape (used
// when this family is the *upstream* channel being listed).
type ModelListReshaper interface {
	ReshapeModelList(ids []string, ownedBy string) []byte
	ParseModelList(body []byte) ([]string, error)
}

// AuthInjector applies this family's upstream authentication scheme to
// an outbound *http.Request given a decrypted credential.
type AuthInjector interface {
	// Header/value pairs and/or query parameters are applied by the
	// dispatcher; InjectAuth returns what to apply rather than mutating
	// a concrete *http.Request so it stays testable without net/http.
	InjectAuth(credential string) AuthPlacement
}

// AuthPlacement describes where a family wants its credential placed.
type AuthPlacement struct {
	Headers     map[string]string
	QueryParams map[string]string
}

// Codec bundles every capability a family must provide. Exactly one
// Codec implementation exists per wire.Family; internal/translate's
// subpackages each provide one, and internal/family.Registry maps
// wire.Family to the right one.
type Codec interface {
	RequestCodec
	ResponseCodec
	ErrorEncoder
	ModelListReshaper
	AuthInjector

	Family() wire.Family

	// NewStreamDecoder/NewStreamEncoder are factories because decoding
	// and encoding both carry per-stream state (open blocks, ids).
	NewStreamDecoder(r io.Reader) StreamDecoder
	NewStreamEncoder(w io.Writer) StreamEncoder

	// ChatPath/ModelListPath return the family's upstream path for a
	// given model (chat) or the fixed model-list endpoint.
	ChatPath(model string, stream bool) string
	ModelListPath() string
}

// Registry maps wire.Family to its Codec. Population happens in
// cmd/server/main.go by registering each internal/translate/*
// implementation; nothing in this package depends on the concrete
// translator packages, which keeps the dependency graph acyclic.
type Registry struct {
	codecs map[wire.Family]Codec
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[wire.Family]Codec)}
}

func (r *Registry) Register(c Codec) {
	r.codecs[c.Family()] = c
}

func (r *Registry) Get(f wire.Family) (Codec, bool) {
	c, ok := r.codecs[f]
	return c, ok
}

// Context key used to carry internal/ingress's per-request id (the same
// one passed to logger.Logger.Request) through to internal/dispatch, so
// the outbound upstream call can be stamped with a correlating header.
type ctxKey struct{}

var requestIDKey = ctxKey{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
