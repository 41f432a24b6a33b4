package content

import (
	"context"
	"errors"
	"fmt"
)

// Client is the provider-agnostic model client contract consumed by
// agent.Runner. Implementations translate Request/Response into a specific
// provider's wire format; see the providers package for concrete adapters.
type Client interface {
	// CreateMessage performs a single, non-streaming model invocation.
	CreateMessage(ctx context.Context, req Request) (Response, error)

	// CreateMessageStream performs a streaming model invocation, returning a
	// Streamer that yields StreamEvent values until the turn completes.
	CreateMessageStream(ctx context.Context, req Request) (Streamer, error)
}

// Streamer yields a lazy sequence of StreamEvent values for a single model
// turn. Callers must drain Next until it returns false, then inspect Err.
type Streamer interface {
	// Next advances to the next event, returning false when the stream is
	// exhausted (either normally or due to an error retrievable via Err).
	Next() bool
	// Event returns the event produced by the most recent successful Next
	// call.
	Event() StreamEvent
	// Err returns the terminal error, if any, after Next returns false.
	Err() error
	// Close releases resources held by the stream. Safe to call multiple
	// times.
	Close() error
}

// StreamEventKind tags the variant carried by a StreamEvent.
type StreamEventKind string

const (
	KindMessageStart      StreamEventKind = "message_start"
	KindContentBlockStart StreamEventKind = "content_block_start"
	KindContentBlockDelta StreamEventKind = "content_block_delta"
	KindInputJSONDelta    StreamEventKind = "input_json_delta"
	KindContentBlockStop  StreamEventKind = "content_block_stop"
	KindMessageDelta      StreamEventKind = "message_delta"
	KindMessageStop       StreamEventKind = "message_stop"
)

// StreamEvent is a single incremental event in a model's streaming response.
// Exactly the fields relevant to Kind are populated; the rest are zero.
type StreamEvent struct {
	Kind StreamEventKind

	// MessageStart fields.
	MessageID string
	Model     string

	// ContentBlockStart fields. Block is a TextBlock (with empty Text), a
	// ToolUseBlock (with ID/Name set and Input nil), or an empty
	// ThinkingBlock, marking the kind of block beginning at Index.
	Index int
	Block ContentBlock

	// ContentBlockDelta field: incremental text appended to the block at
	// Index.
	TextDelta string

	// InputJSONDelta field: an incremental JSON fragment appended to the
	// tool-use block's input buffer at Index. Not guaranteed to be valid
	// JSON on its own.
	PartialJSON string

	// MessageDelta fields.
	StopReason StopReason
	Usage      Usage
}

// LlmErrorKind enumerates the model-client error taxonomy (spec §7, "Llm").
type LlmErrorKind string

const (
	LlmErrorTransport      LlmErrorKind = "http"
	LlmErrorAPI            LlmErrorKind = "api"
	LlmErrorStreamClosed   LlmErrorKind = "stream_closed"
	LlmErrorDeserialize    LlmErrorKind = "deserialize"
	LlmErrorConfiguration  LlmErrorKind = "configuration"
)

// LlmError is the structured error type returned by Client implementations.
type LlmError struct {
	Kind    LlmErrorKind
	Status  int
	Message string
	Cause   error
}

func (e *LlmError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
}

func (e *LlmError) Unwrap() error { return e.Cause }

// ErrModelNotConfigured is returned (wrapped in an LlmError with kind
// LlmErrorConfiguration) when a Request.Model is empty. The spec requires
// this to be a hard error, never a silently applied default.
var ErrModelNotConfigured = errors.New("content: model is required")
