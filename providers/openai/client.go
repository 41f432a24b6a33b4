// Package openai adapts content.Client to OpenAI's Chat Completions API via
// github.com/openai/openai-go. Like providers/anthropic, this is an
// out-of-core collaborator (spec §6.1) given a concrete, minimal home.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/loopstack/loopstack/content"
)

// ChatClient captures the subset of the OpenAI SDK used by the adapter.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements content.Client on top of OpenAI Chat Completions.
type Client struct {
	chat         ChatClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds an OpenAI-backed content.Client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	return &Client{chat: chat, defaultModel: opts.DefaultModel, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default OpenAI HTTP
// transport and the given apiKey, which takes precedence over any key the
// SDK's option defaults read from the environment.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// CreateMessage implements content.Client.
func (c *Client) CreateMessage(ctx context.Context, req content.Request) (content.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return content.Response{}, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: err.Error(), Cause: err}
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		return content.Response{}, &content.LlmError{Kind: content.LlmErrorTransport, Message: err.Error(), Cause: err}
	}
	return translateResponse(resp), nil
}

// CreateMessageStream implements content.Client. OpenAI Chat Completions
// streaming maps onto the same neutral StreamEvent shape, but this minimal
// adapter only exercises the non-streaming path in depth; streaming is not
// wired for the chat completions surface here.
func (c *Client) CreateMessageStream(ctx context.Context, req content.Request) (content.Streamer, error) {
	return nil, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: "openai: streaming not supported by this adapter"}
}

func (c *Client) prepareRequest(req content.Request) (*sdk.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	if modelID == "" {
		return nil, content.ErrModelNotConfigured
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		msgs, err := encodeMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msgs...)
	}

	params := &sdk.ChatCompletionNewParams{
		Model:    modelID,
		Messages: messages,
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(maxTokens))
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(float64(temp))
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	return params, nil
}

func encodeMessage(m content.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	var out []sdk.ChatCompletionMessageParamUnion
	var text string
	var toolCalls []sdk.ChatCompletionMessageToolCallUnionParam
	for _, b := range m.Content {
		switch v := b.(type) {
		case content.TextBlock:
			text += v.Text
		case content.ToolUseBlock:
			args, err := json.Marshal(v.Input)
			if err != nil {
				return nil, fmt.Errorf("openai: encode tool_use input: %w", err)
			}
			toolCalls = append(toolCalls, sdk.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &sdk.ChatCompletionMessageFunctionToolCallParam{
					ID: v.ID,
					Function: sdk.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      v.Name,
						Arguments: string(args),
					},
				},
			})
		case content.ToolResultBlock:
			out = append(out, sdk.ToolMessage(v.Content, v.ToolUseID))
		}
	}
	switch m.Role {
	case content.RoleUser:
		if text != "" {
			out = append(out, sdk.UserMessage(text))
		}
	case content.RoleAssistant:
		if len(toolCalls) > 0 {
			asst := sdk.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if text != "" {
				asst.Content.OfString = sdk.Opt(text)
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		} else if text != "" {
			out = append(out, sdk.AssistantMessage(text))
		}
	}
	return out, nil
}

func encodeTools(defs []content.ToolDefinition) []sdk.ChatCompletionToolUnionParam {
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		var params map[string]any
		if len(d.InputSchema) > 0 {
			_ = json.Unmarshal(d.InputSchema, &params)
		}
		out = append(out, sdk.ChatCompletionToolUnionParam{
			OfFunction: &sdk.ChatCompletionFunctionToolParam{
				Function: sdk.FunctionDefinitionParam{
					Name:        d.Name,
					Description: sdk.String(d.Description),
					Parameters:  params,
				},
			},
		})
	}
	return out
}

func translateResponse(resp *sdk.ChatCompletion) content.Response {
	out := content.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: content.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
	if len(resp.Choices) == 0 {
		out.StopReason = content.StopReasonEndTurn
		return out
	}
	choice := resp.Choices[0]
	if choice.Message.Content != "" {
		out.Content = append(out.Content, content.TextBlock{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		var input any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		out.Content = append(out.Content, content.ToolUseBlock{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	switch choice.FinishReason {
	case "tool_calls":
		out.StopReason = content.StopReasonToolUse
	case "length":
		out.StopReason = content.StopReasonMaxTokens
	default:
		out.StopReason = content.StopReasonEndTurn
	}
	return out
}
