package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/content"
)

func TestAccumulatorTextAndToolUse(t *testing.T) {
	acc := New()
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStart, Index: 0, Block: content.TextBlock{}})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockDelta, Index: 0, TextDelta: "Hello"})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockDelta, Index: 0, TextDelta: " world"})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStop, Index: 0})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStart, Index: 1, Block: content.ToolUseBlock{ID: "T", Name: "f"}})
	acc.Feed(content.StreamEvent{Kind: content.KindInputJSONDelta, Index: 1, PartialJSON: `{"a":`})
	acc.Feed(content.StreamEvent{Kind: content.KindInputJSONDelta, Index: 1, PartialJSON: `1}`})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStop, Index: 1})

	blocks := acc.Blocks()
	require.Len(t, blocks, 2)

	text, ok := blocks[0].(content.TextBlock)
	require.True(t, ok)
	require.Equal(t, "Hello world", text.Text)

	tool, ok := blocks[1].(content.ToolUseBlock)
	require.True(t, ok)
	require.Equal(t, "T", tool.ID)
	require.Equal(t, "f", tool.Name)
	require.Equal(t, map[string]any{"a": float64(1)}, tool.Input)
}

func TestAccumulatorMalformedJSONBecomesEmptyObject(t *testing.T) {
	acc := New()
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStart, Block: content.ToolUseBlock{ID: "T", Name: "f"}})
	acc.Feed(content.StreamEvent{Kind: content.KindInputJSONDelta, PartialJSON: `{not json`})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStop})

	blocks := acc.Blocks()
	require.Len(t, blocks, 1)
	tool := blocks[0].(content.ToolUseBlock)
	require.Equal(t, map[string]any{}, tool.Input)
}

func TestAccumulatorEmptyTextBlockDropped(t *testing.T) {
	acc := New()
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStart, Block: content.TextBlock{}})
	acc.Feed(content.StreamEvent{Kind: content.KindContentBlockStop})
	require.Empty(t, acc.Blocks())
}

func TestAccumulatorUsageAndStopReason(t *testing.T) {
	acc := New()
	acc.Feed(content.StreamEvent{Kind: content.KindMessageDelta, StopReason: content.StopReasonToolUse, Usage: content.Usage{InputTokens: 10, OutputTokens: 5}})
	acc.Feed(content.StreamEvent{Kind: content.KindMessageDelta, Usage: content.Usage{InputTokens: 1, OutputTokens: 2}})
	require.Equal(t, content.StopReasonToolUse, acc.StopReason())
	require.Equal(t, content.Usage{InputTokens: 11, OutputTokens: 7}, acc.Usage())
}
