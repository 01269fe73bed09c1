// Package wire defines the neutral, family-agnostic request/response/event
// shapes that every translator maps to and from. Nothing in this package
// knows about HTTP, SSE framing, or any particular upstream wire format.
package wire

// Family identifies one of the three supported chat-completion wire
// dialects. It is the single source of truth for "what families exist" —
// channel records, ingress classification, and the translator/codec
// registry all key off this type.
type Family string

const (
	OpenAI    Family = "openai"
	Anthropic Family = "anthropic"
	Gemini    Family = "gemini"
)

func (f Family) Valid() bool {
	switch f {
	case OpenAI, Anthropic, Gemini:
		return true
	}
	return false
}

// Role identifies the speaker of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind tags the variant held by a ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentImage      ContentKind = "image"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
	ContentThinking   ContentKind = "thinking"
)

// ImageSourceKind distinguishes how image bytes are referenced.
type ImageSourceKind string

const (
	ImageSourceURL    ImageSourceKind = "url"
	ImageSourceBase64 ImageSourceKind = "base64"
)

// Image carries either a fetchable URL or inline base64 bytes.
type Image struct {
	Source    ImageSourceKind
	URL       string
	Data      string // base64, only when Source == ImageSourceBase64
	MediaType string // e.g. "image/png"
}

// ToolCall is an assistant-issued invocation of a declared tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object text, possibly assembled from stream chunks
}

// ToolResult is the tool-role reply to an earlier ToolCall.
type ToolResult struct {
	CallID  string // must reference an earlier ToolCall.ID in the same conversation
	Content []ContentPart
	IsError bool
}

// ContentPart is a tagged union; exactly the fields matching Kind are set.
type ContentPart struct {
	Kind ContentKind

	Text string

	Image *Image

	ToolCall *ToolCall

	ToolResult *ToolResult

	// Thinking carries the neutral "thinking" block's text, for the family
	// pairs that can express it (F-A, F-G). See DESIGN.md for the Open
	// Question decision on cross-family thinking content.
	Thinking string
}

// Turn is a single message in the conversation.
type Turn struct {
	Role    Role
	Content []ContentPart
}

// ToolDecl is a callable tool the model may invoke.
type ToolDecl struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
}

// ToolChoiceKind selects how the model should pick tools.
type ToolChoiceKind string

const (
	ToolChoiceAuto     ToolChoiceKind = "auto"
	ToolChoiceNone     ToolChoiceKind = "none"
	ToolChoiceRequired ToolChoiceKind = "required"
	ToolChoiceNamed    ToolChoiceKind = "named"
)

// ToolChoice captures the client's tool-routing preference.
type ToolChoice struct {
	Kind ToolChoiceKind
	Name string // set only when Kind == ToolChoiceNamed
}

// ResponseFormatKind distinguishes structured-output requests.
type ResponseFormatKind string

const (
	ResponseFormatText   ResponseFormatKind = "text"
	ResponseFormatJSON   ResponseFormatKind = "json_object"
	ResponseFormatSchema ResponseFormatKind = "json_schema"
)

// ResponseFormat is the neutral form of response_format / responseSchema.
type ResponseFormat struct {
	Kind   ResponseFormatKind
	Schema map[string]any // set only when Kind == ResponseFormatSchema
}

// GenerationParams bundles the family-agnostic sampling/limits knobs.
type GenerationParams struct {
	MaxTokens      *int
	Temperature    *float64
	TopP           *float64
	Stop           []string
	ResponseFormat *ResponseFormat
}

// ThinkingKind tags the reasoning-effort request variant.
type ThinkingKind string

const (
	ThinkingNone   ThinkingKind = "none"
	ThinkingEffort ThinkingKind = "effort"
	ThinkingBudget ThinkingKind = "budget"
)

// Effort is the coarse reasoning-effort level used by F-O.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Thinking is the neutral "how hard should the model think" knob.
// SourceFamily records which family produced a Budget value, because
// the threshold table used to map a budget back to an Effort is keyed
// by the family that produced the budget (spec.md §4.3).
type Thinking struct {
	Kind         ThinkingKind
	Effort       Effort
	BudgetTokens int
	SourceFamily Family
}

// Request is the canonical, family-agnostic chat-completion request.
type Request struct {
	Model      string
	Messages   []Turn
	System     string
	Tools      []ToolDecl
	ToolChoice ToolChoice
	Generation GenerationParams
	Thinking   Thinking
	Stream     bool
}

// FinishReason normalizes every family's terminal-state vocabulary.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolUse       FinishReason = "tool_use"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

// Usage is best-effort; nil fields mean "upstream did not report this".
type Usage struct {
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// Response is the canonical unary chat-completion response.
type Response struct {
	ID           string
	Model        string
	CreatedAt    int64
	FinishReason FinishReason
	Content      []ContentPart
	Usage        Usage
}

// StreamEventKind tags the neutral stream-event union.
type StreamEventKind string

const (
	EventMessageStart      StreamEventKind = "message_start"
	EventContentBlockStart StreamEventKind = "content_block_start"
	EventContentBlockDelta StreamEventKind = "content_block_delta"
	EventContentBlockStop  StreamEventKind = "content_block_stop"
	EventMessageDelta      StreamEventKind = "message_delta"
	EventMessageStop       StreamEventKind = "message_stop"
)

// BlockKind tags an open content block within a stream.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockToolCall BlockKind = "tool_call"
	BlockThinking BlockKind = "thinking"
)

// DeltaPayloadKind tags the payload carried by a ContentBlockDelta.
type DeltaPayloadKind string

const (
	DeltaText     DeltaPayloadKind = "text"
	DeltaJSON     DeltaPayloadKind = "json"
	DeltaThinking DeltaPayloadKind = "thinking"
)

// StreamEvent is one element of the neutral event sequence produced by a
// family decoder and consumed by a family encoder.
type StreamEvent struct {
	Kind StreamEventKind

	// MessageStart
	MessageID string
	Model     string

	// ContentBlockStart / Delta / Stop share Index
	Index int
	Block BlockKind // set on ContentBlockStart
	Name  string     // tool name, set on ContentBlockStart for BlockToolCall
	ToolCallID string // set on ContentBlockStart for BlockToolCall

	DeltaKind DeltaPayloadKind
	DeltaText string // text-chunk, json-chunk (raw partial JSON text), or thinking-chunk

	// MessageDelta
	FinishReason FinishReason
	HasFinish    bool
	Usage        *Usage
}
