package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/content"
)

type stubRuntimeClient struct{}

func (stubRuntimeClient) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	panic("not used")
}

func TestNew_RequiresRuntimeClient(t *testing.T) {
	_, err := New(nil, Options{})
	require.Error(t, err)
}

func TestCreateMessage_RequiresMessages(t *testing.T) {
	c, err := New(stubRuntimeClient{}, Options{DefaultModel: "anthropic.claude-test"})
	require.NoError(t, err)

	_, err = c.CreateMessage(context.Background(), content.Request{})
	require.Error(t, err)
	var llmErr *content.LlmError
	require.ErrorAs(t, err, &llmErr)
	require.Equal(t, content.LlmErrorConfiguration, llmErr.Kind)
}

func TestCreateMessage_RequiresModel(t *testing.T) {
	c, err := New(stubRuntimeClient{}, Options{})
	require.NoError(t, err)

	req := content.Request{Messages: []content.Message{
		{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}},
	}}
	_, err = c.CreateMessage(context.Background(), req)
	require.ErrorIs(t, err, content.ErrModelNotConfigured)
}

func TestCreateMessageStream_NotSupported(t *testing.T) {
	c, err := New(stubRuntimeClient{}, Options{DefaultModel: "anthropic.claude-test"})
	require.NoError(t, err)
	_, err = c.CreateMessageStream(context.Background(), content.Request{})
	require.Error(t, err)
}

func TestEncodeMessages_RejectsUnsupportedRole(t *testing.T) {
	_, err := encodeMessages([]content.Message{
		{Role: content.Role("system"), Content: []content.ContentBlock{content.TextBlock{Text: "x"}}},
	})
	require.Error(t, err)
}
