package mongo

import (
	"fmt"
	"time"

	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/transcript"
)

// transcriptDocument is the bson-persisted shape of a transcript.Record.
// ContentBlock is a tagged union in Go (an interface), which bson cannot
// round-trip on its own, so each block is flattened into a single
// discriminated document via blockDocument.
type transcriptDocument struct {
	AgentID   string            `bson:"agent_id"`
	Messages  []messageDocument `bson:"messages"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type messageDocument struct {
	Role    string          `bson:"role"`
	Content []blockDocument `bson:"content"`
}

// blockDocument discriminates on Kind to store any of the five
// content.ContentBlock variants in one collection schema.
type blockDocument struct {
	Kind string `bson:"kind"`

	// TextBlock / ThinkingBlock
	Text string `bson:"text,omitempty"`

	// ToolUseBlock
	ToolUseID string `bson:"tool_use_id,omitempty"`
	ToolName  string `bson:"tool_name,omitempty"`
	Input     any    `bson:"input,omitempty"`

	// ToolResultBlock
	ToolResultID string `bson:"tool_result_id,omitempty"`
	IsError      bool   `bson:"is_error,omitempty"`

	// ThinkingBlock
	Signature string `bson:"signature,omitempty"`
	Redacted  []byte `bson:"redacted,omitempty"`

	// ImageBlock
	MimeType string `bson:"mime_type,omitempty"`
	Bytes    []byte `bson:"bytes,omitempty"`
}

const (
	kindText       = "text"
	kindToolUse    = "tool_use"
	kindToolResult = "tool_result"
	kindThinking   = "thinking"
	kindImage      = "image"
)

func toDocument(agentID string, messages []content.Message, updatedAt time.Time) (transcriptDocument, error) {
	docs := make([]messageDocument, len(messages))
	for i, m := range messages {
		blocks, err := blocksToDocuments(m.Content)
		if err != nil {
			return transcriptDocument{}, err
		}
		docs[i] = messageDocument{Role: string(m.Role), Content: blocks}
	}
	return transcriptDocument{AgentID: agentID, Messages: docs, UpdatedAt: updatedAt.UTC()}, nil
}

func (d transcriptDocument) toRecord() (transcript.Record, error) {
	messages := make([]content.Message, len(d.Messages))
	for i, md := range d.Messages {
		blocks, err := documentsToBlocks(md.Content)
		if err != nil {
			return transcript.Record{}, err
		}
		messages[i] = content.Message{Role: content.Role(md.Role), Content: blocks}
	}
	return transcript.Record{AgentID: d.AgentID, Messages: messages, UpdatedAt: d.UpdatedAt}, nil
}

func blocksToDocuments(blocks []content.ContentBlock) ([]blockDocument, error) {
	out := make([]blockDocument, len(blocks))
	for i, b := range blocks {
		switch v := b.(type) {
		case content.TextBlock:
			out[i] = blockDocument{Kind: kindText, Text: v.Text}
		case content.ToolUseBlock:
			out[i] = blockDocument{Kind: kindToolUse, ToolUseID: v.ID, ToolName: v.Name, Input: v.Input}
		case content.ToolResultBlock:
			out[i] = blockDocument{Kind: kindToolResult, ToolResultID: v.ToolUseID, Text: v.Content, IsError: v.IsError}
		case content.ThinkingBlock:
			out[i] = blockDocument{Kind: kindThinking, Text: v.Text, Signature: v.Signature, Redacted: v.Redacted}
		case content.ImageBlock:
			out[i] = blockDocument{Kind: kindImage, MimeType: v.MimeType, Bytes: v.Bytes}
		default:
			return nil, fmt.Errorf("transcript/mongo: unknown content block type %T", b)
		}
	}
	return out, nil
}

func documentsToBlocks(docs []blockDocument) ([]content.ContentBlock, error) {
	out := make([]content.ContentBlock, len(docs))
	for i, d := range docs {
		switch d.Kind {
		case kindText:
			out[i] = content.TextBlock{Text: d.Text}
		case kindToolUse:
			out[i] = content.ToolUseBlock{ID: d.ToolUseID, Name: d.ToolName, Input: d.Input}
		case kindToolResult:
			out[i] = content.ToolResultBlock{ToolUseID: d.ToolResultID, Content: d.Text, IsError: d.IsError}
		case kindThinking:
			out[i] = content.ThinkingBlock{Text: d.Text, Signature: d.Signature, Redacted: d.Redacted}
		case kindImage:
			out[i] = content.ImageBlock{MimeType: d.MimeType, Bytes: d.Bytes}
		default:
			return nil, fmt.Errorf("transcript/mongo: unknown stored block kind %q", d.Kind)
		}
	}
	return out, nil
}
