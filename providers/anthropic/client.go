// Package anthropic adapts content.Client to the Anthropic Claude Messages
// API via github.com/anthropics/anthropic-sdk-go. It is a concrete,
// out-of-core collaborator (spec §6.1): the agent loop runner only ever
// depends on content.Client, never on this package directly.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/loopstack/loopstack/content"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, satisfied by *sdk.MessageService so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures the Anthropic adapter.
type Options struct {
	// DefaultModel is used when a Request.Model is empty. The agent loop
	// itself requires Model to be set (spec §4.1), so this only backstops
	// callers that build requests directly against this package.
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements content.Client on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds an Anthropic-backed content.Client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	return &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP
// transport and the given apiKey, which takes precedence over any key the
// SDK's option defaults read from the environment.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// CreateMessage implements content.Client.
func (c *Client) CreateMessage(ctx context.Context, req content.Request) (content.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return content.Response{}, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: err.Error(), Cause: err}
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return content.Response{}, translateErr(err)
	}
	return translateResponse(msg), nil
}

// CreateMessageStream implements content.Client.
func (c *Client) CreateMessageStream(ctx context.Context, req content.Request) (content.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: err.Error(), Cause: err}
	}
	stream := c.msg.NewStreaming(ctx, *params)
	return &streamer{sdkStream: stream}, nil
}

func (c *Client) prepareRequest(req content.Request) (*sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	if modelID == "" {
		return nil, content.ErrModelNotConfigured
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}

	params := &sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(float64(temp))
	}
	return params, nil
}

func encodeMessages(msgs []content.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case content.TextBlock:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case content.ToolUseBlock:
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, v.Input, v.Name))
			case content.ToolResultBlock:
				blocks = append(blocks, sdk.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			case content.ThinkingBlock:
				// Thinking blocks are provider reasoning echoed back; Anthropic
				// requires the original signature to re-send them, which this
				// minimal adapter does not round-trip, so they are dropped.
			case content.ImageBlock:
				blocks = append(blocks, sdk.NewImageBlockBase64(v.MimeType, base64.StdEncoding.EncodeToString(v.Bytes)))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case content.RoleUser:
			out = append(out, sdk.NewUserMessage(blocks...))
		case content.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(defs []content.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		var schema map[string]any
		if len(d.InputSchema) > 0 {
			if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("anthropic: tool %q schema: %w", d.Name, err)
			}
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schema}, d.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(d.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func translateResponse(msg *sdk.Message) content.Response {
	resp := content.Response{
		ID:    msg.ID,
		Model: string(msg.Model),
		Usage: content.Usage{
			InputTokens:      int(msg.Usage.InputTokens),
			OutputTokens:     int(msg.Usage.OutputTokens),
			CacheReadTokens:  int(msg.Usage.CacheReadInputTokens),
			CacheWriteTokens: int(msg.Usage.CacheCreationInputTokens),
		},
	}
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			resp.Content = append(resp.Content, content.TextBlock{Text: b.Text})
		case "tool_use":
			var input any
			_ = json.Unmarshal(b.Input, &input)
			resp.Content = append(resp.Content, content.ToolUseBlock{ID: b.ID, Name: b.Name, Input: input})
		case "thinking":
			resp.Content = append(resp.Content, content.ThinkingBlock{Text: b.Thinking, Signature: b.Signature})
		}
	}
	switch msg.StopReason {
	case "tool_use":
		resp.StopReason = content.StopReasonToolUse
	case "max_tokens":
		resp.StopReason = content.StopReasonMaxTokens
	default:
		resp.StopReason = content.StopReasonEndTurn
	}
	return resp
}

func translateErr(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &content.LlmError{Kind: content.LlmErrorAPI, Status: apiErr.StatusCode, Message: apiErr.Error(), Cause: err}
	}
	return &content.LlmError{Kind: content.LlmErrorTransport, Message: err.Error(), Cause: err}
}

