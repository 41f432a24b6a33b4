// Package stream folds a lazy sequence of provider-agnostic streaming
// events into finalized content blocks, decoupling agent code from any
// particular provider's incremental-delivery dialect (spec §4.6).
package stream

import (
	"encoding/json"

	"github.com/loopstack/loopstack/content"
)

// Accumulator is a stepwise state machine that consumes content.StreamEvent
// values one at a time and yields finalized content.ContentBlock values.
// It is not safe for concurrent use; a single model turn owns one
// Accumulator.
type Accumulator struct {
	blocks []content.ContentBlock

	currentText string
	textOpen    bool

	toolID      string
	toolName    string
	toolInput   []byte
	toolOpen    bool

	stopReason content.StopReason
	usage      content.Usage
}

// New returns an empty Accumulator ready to fold a single stream.
func New() *Accumulator {
	return &Accumulator{}
}

// Feed applies a single event to the accumulator's state, finalizing blocks
// as ContentBlockStop events are observed. Feed never returns an error: a
// malformed InputJsonDelta buffer is tolerated and resolved to an empty
// object at ContentBlockStop time, per spec §4.6.
func (a *Accumulator) Feed(ev content.StreamEvent) {
	switch ev.Kind {
	case content.KindMessageStart:
		// No accumulation state; MessageID/Model are informational only.

	case content.KindContentBlockStart:
		switch b := ev.Block.(type) {
		case content.TextBlock:
			a.textOpen = true
			a.currentText = ""
		case content.ToolUseBlock:
			a.toolOpen = true
			a.toolID = b.ID
			a.toolName = b.Name
			a.toolInput = a.toolInput[:0]
		}

	case content.KindContentBlockDelta:
		a.currentText += ev.TextDelta

	case content.KindInputJSONDelta:
		a.toolInput = append(a.toolInput, ev.PartialJSON...)

	case content.KindContentBlockStop:
		a.finalizeBlock()

	case content.KindMessageDelta:
		if ev.StopReason != "" {
			a.stopReason = ev.StopReason
		}
		a.usage.Add(ev.Usage)

	case content.KindMessageStop:
		// Terminal marker; nothing further to accumulate.
	}
}

// finalizeBlock closes whichever of text/tool-use is currently open and
// appends the resulting block, per the ContentBlockStop transition in
// spec §4.6.
func (a *Accumulator) finalizeBlock() {
	switch {
	case a.toolOpen:
		var input any
		if len(a.toolInput) > 0 {
			if err := json.Unmarshal(a.toolInput, &input); err != nil {
				input = map[string]any{}
			}
		} else {
			input = map[string]any{}
		}
		a.blocks = append(a.blocks, content.ToolUseBlock{
			ID:    a.toolID,
			Name:  a.toolName,
			Input: input,
		})
		a.toolOpen = false
		a.toolID, a.toolName = "", ""
		a.toolInput = a.toolInput[:0]
	case a.textOpen:
		if a.currentText != "" {
			a.blocks = append(a.blocks, content.TextBlock{Text: a.currentText})
		}
		a.textOpen = false
		a.currentText = ""
	}
}

// Blocks returns the finalized content blocks accumulated so far. The
// returned slice is a defensive copy; callers may retain it freely.
func (a *Accumulator) Blocks() []content.ContentBlock {
	out := make([]content.ContentBlock, len(a.blocks))
	copy(out, a.blocks)
	return out
}

// StopReason returns the last stop reason observed in a MessageDelta event,
// or the empty string if none was seen.
func (a *Accumulator) StopReason() content.StopReason { return a.stopReason }

// Usage returns the cumulative usage observed across MessageDelta events.
func (a *Accumulator) Usage() content.Usage { return a.usage }

// Drain consumes every event from s, folding them through a fresh
// Accumulator, and returns the finalized response. It is a convenience for
// callers that want CreateMessage-like semantics from a streaming client.
func Drain(s content.Streamer) (content.Response, error) {
	acc := New()
	for s.Next() {
		acc.Feed(s.Event())
	}
	if err := s.Err(); err != nil {
		return content.Response{}, err
	}
	return content.Response{
		Content:    acc.Blocks(),
		StopReason: acc.StopReason(),
		Usage:      acc.Usage(),
	}, nil
}
