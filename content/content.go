// Package content defines the neutral representation of messages, content
// blocks, tool definitions, and token usage shared by every other package in
// this module. Provider adapters translate their wire formats into these
// types at the edges; nothing downstream of this package needs to know which
// provider produced a given Message.
package content

import "encoding/json"

// Role identifies the speaker of a Message.
type Role string

const (
	// RoleUser identifies a message authored by the user (including tool
	// results fed back to the model).
	RoleUser Role = "user"
	// RoleAssistant identifies a message authored by the model.
	RoleAssistant Role = "assistant"
)

// StopReason records why a model turn stopped generating.
type StopReason string

const (
	// StopReasonEndTurn indicates the model produced a final response with
	// no pending tool calls.
	StopReasonEndTurn StopReason = "end_turn"
	// StopReasonToolUse indicates the model's response contains one or more
	// ToolUseBlock values that must be executed before the conversation can
	// continue.
	StopReasonToolUse StopReason = "tool_use"
	// StopReasonMaxTokens indicates the model stopped because it reached its
	// configured output token budget.
	StopReasonMaxTokens StopReason = "max_tokens"
)

// ContentBlock is the tagged union of content fragments that make up a
// Message. Concrete implementations are TextBlock, ToolUseBlock,
// ToolResultBlock, ThinkingBlock, and ImageBlock.
type ContentBlock interface {
	isContentBlock()
}

type (
	// TextBlock carries plain, user-visible text.
	TextBlock struct {
		Text string
	}

	// ToolUseBlock declares a tool invocation requested by the assistant.
	// Input is the already-decoded JSON arguments object; callers needing
	// the canonical bytes should re-marshal it.
	ToolUseBlock struct {
		ID    string
		Name  string
		Input any
	}

	// ToolResultBlock carries the result of executing a prior ToolUseBlock,
	// correlated by ToolUseID. Every ToolUseBlock emitted by an assistant
	// message must be paired with exactly one ToolResultBlock sharing its ID
	// in the immediately following user message (spec invariant, enforced by
	// agent.Runner).
	ToolResultBlock struct {
		ToolUseID string
		Content   string
		IsError   bool
	}

	// ThinkingBlock carries provider reasoning content. Exactly one of Text
	// or Redacted is expected to be populated; it is excluded from the
	// ToolUse/ToolResult pairing invariant and from contextmgr's token
	// estimate.
	ThinkingBlock struct {
		Text      string
		Signature string
		Redacted  []byte
	}

	// ImageBlock carries image bytes attached to a message, typically as the
	// result of a tool that captures a screenshot or renders a chart.
	// Token estimation treats ImageBlock bytes as non-textual (see
	// contextmgr.EstimateMessageTokens).
	ImageBlock struct {
		MimeType string
		Bytes    []byte
	}
)

func (TextBlock) isContentBlock()       {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}
func (ThinkingBlock) isContentBlock()   {}
func (ImageBlock) isContentBlock()      {}

// Message is a single turn in a conversation: a role plus an ordered
// sequence of content blocks.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Text concatenates every TextBlock in the message, in order.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}

// ToolUses returns every ToolUseBlock in the message, in document order.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range m.Content {
		if t, ok := b.(ToolUseBlock); ok {
			out = append(out, t)
		}
	}
	return out
}

// ToolDefinition describes a tool exposed to the model. Name must be unique
// within the registry that surfaces it.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Usage tracks token accounting for a single model call or the cumulative
// total for a run. Cache fields are elided from JSON serialization when
// zero (see MarshalJSON).
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Add accumulates u2 into u, field by field. Used by agent.Runner to keep
// cumulative usage monotonically nondecreasing across iterations.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.CacheReadTokens += u2.CacheReadTokens
	u.CacheWriteTokens += u2.CacheWriteTokens
}

// usageJSON mirrors Usage but omits cache fields when zero-valued, per the
// spec's "zero-valued cache fields are elided in serialization" rule.
type usageJSON struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

// MarshalJSON implements json.Marshaler, eliding zero-valued cache fields.
func (u Usage) MarshalJSON() ([]byte, error) {
	return json.Marshal(usageJSON{
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Usage) UnmarshalJSON(data []byte) error {
	var j usageJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	u.InputTokens = j.InputTokens
	u.OutputTokens = j.OutputTokens
	u.CacheReadTokens = j.CacheReadTokens
	u.CacheWriteTokens = j.CacheWriteTokens
	return nil
}

// Request captures the inputs for a single model invocation.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	System      string
	MaxTokens   int
	Temperature float32
}

// Response is the result of a non-streaming model invocation.
type Response struct {
	ID         string
	Content    []ContentBlock
	StopReason StopReason
	Model      string
	Usage      Usage
}

// HasToolUse reports whether the response contains at least one
// ToolUseBlock.
func (r Response) HasToolUse() bool {
	return len(r.ToolUses()) > 0
}

// ToolUses returns every ToolUseBlock in the response, in document order.
func (r Response) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range r.Content {
		if t, ok := b.(ToolUseBlock); ok {
			out = append(out, t)
		}
	}
	return out
}

// Text concatenates every TextBlock in the response, in order.
func (r Response) Text() string {
	var out string
	for _, b := range r.Content {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}
