package contextmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/content"
)

func TestEstimateTokensRoundsUp(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("a"))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
}

func TestEffectiveLimitTruncatesNotRounds(t *testing.T) {
	cfg := ModelConfig{ContextLimit: 1000}
	require.Equal(t, 800, cfg.EffectiveLimit())
	cfg = ModelConfig{ContextLimit: 999}
	require.Equal(t, 799, cfg.EffectiveLimit())
}

func TestGetContextUsageNoLimit(t *testing.T) {
	msgs := []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}}}
	usage := GetContextUsage(msgs, ModelConfig{})
	require.Equal(t, 1, usage.MessageCount)
	require.Nil(t, usage.ContextLimit)
	require.Nil(t, usage.UsagePercent)
}

func TestGetContextUsageWithLimit(t *testing.T) {
	msgs := []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "abcdefgh"}}}}
	usage := GetContextUsage(msgs, ModelConfig{ContextLimit: 10})
	require.NotNil(t, usage.ContextLimit)
	require.Equal(t, 10, *usage.ContextLimit)
	require.NotNil(t, usage.UsagePercent)
}

func TestShouldWarn(t *testing.T) {
	pct := 85.0
	require.True(t, ShouldWarn(Usage{UsagePercent: &pct}, ModelConfig{}))
	low := 10.0
	require.False(t, ShouldWarn(Usage{UsagePercent: &low}, ModelConfig{}))
	require.False(t, ShouldWarn(Usage{}, ModelConfig{}))
}

func TestClearContextEmptiesMessages(t *testing.T) {
	msgs := []content.Message{{Role: content.RoleUser}}
	require.Empty(t, ClearContext(msgs))
}

func TestCompactContextUnboundedIsNoOp(t *testing.T) {
	msgs := []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}}}
	out, _, err := CompactContext(context.Background(), nil, msgs, ModelConfig{ContextLimit: 0})
	require.NoError(t, err)
	require.Equal(t, msgs, out)
}

func TestCompactContextTruncateOldestDropsOldMessages(t *testing.T) {
	big := make([]byte, 40)
	for i := range big {
		big[i] = 'x'
	}
	msgs := []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: string(big)}}},
		{Role: content.RoleAssistant, Content: []content.ContentBlock{content.TextBlock{Text: "ok"}}},
	}
	// small limit forces truncate mode; effective limit is tiny so only
	// the newest message (if it fits) survives.
	out, _, err := CompactContext(context.Background(), nil, msgs, ModelConfig{ContextLimit: 10})
	require.NoError(t, err)
	require.True(t, len(out) <= len(msgs))
}

func TestCompactContextTruncateDropsEverythingIfNewestTooBig(t *testing.T) {
	big := make([]byte, 400)
	for i := range big {
		big[i] = 'x'
	}
	msgs := []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: string(big)}}},
	}
	out, _, err := CompactContext(context.Background(), nil, msgs, ModelConfig{ContextLimit: 10})
	require.NoError(t, err)
	require.Empty(t, out)
}

type stubClient struct {
	response content.Response
}

func (s stubClient) CreateMessage(ctx context.Context, req content.Request) (content.Response, error) {
	return s.response, nil
}

func (s stubClient) CreateMessageStream(ctx context.Context, req content.Request) (content.Streamer, error) {
	panic("not used")
}

func TestCompactContextSummarizeReplacesHistory(t *testing.T) {
	var longHistory string
	for i := 0; i < 50; i++ {
		longHistory += "long conversational turn of substantial length. "
	}
	msgs := []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: longHistory}}},
		{Role: content.RoleAssistant, Content: []content.ContentBlock{content.TextBlock{Text: longHistory}}},
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "latest question"}}},
	}
	client := stubClient{response: content.Response{
		Content: []content.ContentBlock{content.TextBlock{Text: "short"}},
	}}
	cfg := ModelConfig{ContextLimit: 100000, CompactionMode: ModeSummarize, CompactionModel: "summarizer"}
	out, _, err := CompactContext(context.Background(), client, msgs, cfg)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, content.RoleAssistant, out[0].Role)
	require.Contains(t, out[0].Text(), "short")
	require.Equal(t, content.RoleUser, out[1].Role)
	require.Equal(t, "latest question", out[1].Text())
}

func TestCompactContextSummarizeAntiOscillationGuard(t *testing.T) {
	msgs := []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}},
	}
	client := stubClient{response: content.Response{
		Content: []content.ContentBlock{content.TextBlock{Text: "a much, much longer summary than the original tiny message was"}},
	}}
	cfg := ModelConfig{ContextLimit: 100000, CompactionMode: ModeSummarize, CompactionModel: "summarizer"}
	out, _, err := CompactContext(context.Background(), client, msgs, cfg)
	require.NoError(t, err)
	require.Equal(t, msgs, out)
}
