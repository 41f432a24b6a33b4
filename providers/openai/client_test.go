package openai

import (
	"context"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/content"
)

type stubChatClient struct{}

func (stubChatClient) New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error) {
	panic("not used")
}

func TestNew_RequiresChatClient(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
}

func TestCreateMessage_RequiresMessages(t *testing.T) {
	c, err := New(stubChatClient{}, Options{DefaultModel: "gpt-test"})
	require.NoError(t, err)

	_, err = c.CreateMessage(context.Background(), content.Request{})
	require.Error(t, err)
	var llmErr *content.LlmError
	require.ErrorAs(t, err, &llmErr)
	require.Equal(t, content.LlmErrorConfiguration, llmErr.Kind)
}

func TestCreateMessage_RequiresModel(t *testing.T) {
	c, err := New(stubChatClient{}, Options{})
	require.NoError(t, err)

	req := content.Request{Messages: []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}},
	}}
	_, err = c.CreateMessage(context.Background(), req)
	require.ErrorIs(t, err, content.ErrModelNotConfigured)
}

func TestCreateMessageStream_NotSupported(t *testing.T) {
	c, err := New(stubChatClient{}, Options{DefaultModel: "gpt-test"})
	require.NoError(t, err)
	_, err = c.CreateMessageStream(context.Background(), content.Request{})
	require.Error(t, err)
}

func TestEncodeMessage_UserTextOnly(t *testing.T) {
	out, err := encodeMessage(content.Message{
		Role:    content.RoleUser,
		Content: []content.ContentBlock{content.TextBlock{Text: "hello"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestEncodeMessage_ToolResultBecomesToolMessage(t *testing.T) {
	out, err := encodeMessage(content.Message{
		Role:    content.RoleUser,
		Content: []content.ContentBlock{content.ToolResultBlock{ToolUseID: "call_1", Content: "42"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
}
