package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/loopstack/loopstack/content"
)

// streamer adapts an Anthropic SSE stream to content.Streamer, translating
// each event into the neutral content.StreamEvent shape described in spec §3.
type streamer struct {
	sdkStream *ssestream.Stream[sdk.MessageStreamEventUnion]
	current   content.StreamEvent
	err       error
}

func (s *streamer) Next() bool {
	if !s.sdkStream.Next() {
		s.err = s.sdkStream.Err()
		return false
	}
	event := s.sdkStream.Current()
	ev, ok := translateEvent(event)
	if !ok {
		return s.Next()
	}
	s.current = ev
	return true
}

func (s *streamer) Event() content.StreamEvent { return s.current }
func (s *streamer) Err() error                 { return s.err }
func (s *streamer) Close() error { return s.sdkStream.Close() }

func translateEvent(event sdk.MessageStreamEventUnion) (content.StreamEvent, bool) {
	switch event.Type {
	case "message_start":
		return content.StreamEvent{
			Kind:      content.KindMessageStart,
			MessageID: event.Message.ID,
			Model:     string(event.Message.Model),
		}, true
	case "content_block_start":
		block := event.ContentBlock
		var cb content.ContentBlock
		switch block.Type {
		case "text":
			cb = content.TextBlock{}
		case "tool_use":
			cb = content.ToolUseBlock{ID: block.ID, Name: block.Name}
		case "thinking":
			cb = content.ThinkingBlock{}
		default:
			return content.StreamEvent{}, false
		}
		return content.StreamEvent{
			Kind:  content.KindContentBlockStart,
			Index: int(event.Index),
			Block: cb,
		}, true
	case "content_block_delta":
		delta := event.Delta
		switch delta.Type {
		case "text_delta":
			return content.StreamEvent{Kind: content.KindContentBlockDelta, Index: int(event.Index), TextDelta: delta.Text}, true
		case "input_json_delta":
			return content.StreamEvent{Kind: content.KindInputJSONDelta, Index: int(event.Index), PartialJSON: delta.PartialJSON}, true
		default:
			return content.StreamEvent{}, false
		}
	case "content_block_stop":
		return content.StreamEvent{Kind: content.KindContentBlockStop, Index: int(event.Index)}, true
	case "message_delta":
		var stopReason content.StopReason
		switch event.Delta.StopReason {
		case "tool_use":
			stopReason = content.StopReasonToolUse
		case "max_tokens":
			stopReason = content.StopReasonMaxTokens
		default:
			stopReason = content.StopReasonEndTurn
		}
		return content.StreamEvent{
			Kind:       content.KindMessageDelta,
			StopReason: stopReason,
			Usage: content.Usage{
				OutputTokens:     int(event.Usage.OutputTokens),
				CacheReadTokens:  int(event.Usage.CacheReadInputTokens),
				CacheWriteTokens: int(event.Usage.CacheCreationInputTokens),
			},
		}, true
	case "message_stop":
		return content.StreamEvent{Kind: content.KindMessageStop}, true
	default:
		return content.StreamEvent{}, false
	}
}
