// Package bedrock adapts content.Client to the AWS Bedrock Converse API via
// github.com/aws/aws-sdk-go-v2/service/bedrockruntime. Like its sibling
// provider adapters, this exists to give the aws-sdk-go-v2 stack a concrete,
// minimal home outside the engine core (spec §6.1).
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/loopstack/loopstack/content"
)

// RuntimeClient captures the subset of the Bedrock runtime client used by
// the adapter, satisfied by *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements content.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds a Bedrock-backed content.Client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	return &Client{runtime: runtime, defaultModel: opts.DefaultModel, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// CreateMessage implements content.Client.
func (c *Client) CreateMessage(ctx context.Context, req content.Request) (content.Response, error) {
	input, err := c.prepareRequest(req)
	if err != nil {
		return content.Response{}, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: err.Error(), Cause: err}
	}
	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return content.Response{}, &content.LlmError{Kind: content.LlmErrorTransport, Message: err.Error(), Cause: err}
	}
	return translateResponse(output)
}

// CreateMessageStream implements content.Client. Bedrock's ConverseStream
// event-stream reader is not wired by this minimal adapter; only the
// synchronous Converse path is exercised.
func (c *Client) CreateMessageStream(ctx context.Context, req content.Request) (content.Streamer, error) {
	return nil, &content.LlmError{Kind: content.LlmErrorConfiguration, Message: "bedrock: streaming not supported by this adapter"}
}

func (c *Client) prepareRequest(req content.Request) (*bedrockruntime.ConverseInput, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	if modelID == "" {
		return nil, content.ErrModelNotConfigured
	}

	messages, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if req.System != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.System}}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if maxTokens > 0 || temp > 0 {
		cfg := &brtypes.InferenceConfiguration{}
		if maxTokens > 0 {
			v := int32(maxTokens)
			cfg.MaxTokens = &v
		}
		if temp > 0 {
			cfg.Temperature = aws.Float32(temp)
		}
		input.InferenceConfig = cfg
	}
	if len(req.Tools) > 0 {
		tc, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		input.ToolConfig = tc
	}
	return input, nil
}

func encodeMessages(msgs []content.Message) ([]brtypes.Message, error) {
	out := make([]brtypes.Message, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]brtypes.ContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case content.TextBlock:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case content.ToolUseBlock:
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(v.ID),
						Name:      aws.String(v.Name),
						Input:     document.NewLazyDocument(v.Input),
					},
				})
			case content.ToolResultBlock:
				status := brtypes.ToolResultStatusSuccess
				if v.IsError {
					status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(v.ToolUseID),
						Status:    status,
						Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: v.Content}},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		var role brtypes.ConversationRole
		switch m.Role {
		case content.RoleUser:
			role = brtypes.ConversationRoleUser
		case content.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, fmt.Errorf("bedrock: unsupported role %q", m.Role)
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	if len(out) == 0 {
		return nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(defs []content.ToolDefinition) (*brtypes.ToolConfiguration, error) {
	specs := make([]brtypes.Tool, 0, len(defs))
	for _, d := range defs {
		var schema any
		if len(d.InputSchema) > 0 {
			if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("bedrock: tool %q schema: %w", d.Name, err)
			}
		}
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(d.Name),
				Description: aws.String(d.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: specs}, nil
}

func translateResponse(output *bedrockruntime.ConverseOutput) (content.Response, error) {
	resp := content.Response{}
	if output.Usage != nil {
		resp.Usage = content.Usage{
			InputTokens:  int(aws.ToInt32(output.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
		}
	}
	msgOut, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return resp, errors.New("bedrock: unsupported converse output")
	}
	for _, b := range msgOut.Value.Content {
		switch v := b.(type) {
		case *brtypes.ContentBlockMemberText:
			resp.Content = append(resp.Content, content.TextBlock{Text: v.Value})
		case *brtypes.ContentBlockMemberToolUse:
			var input any
			_ = v.Value.Input.UnmarshalSmithyDocument(&input)
			resp.Content = append(resp.Content, content.ToolUseBlock{
				ID:    aws.ToString(v.Value.ToolUseId),
				Name:  aws.ToString(v.Value.Name),
				Input: input,
			})
		}
	}
	switch output.StopReason {
	case brtypes.StopReasonToolUse:
		resp.StopReason = content.StopReasonToolUse
	case brtypes.StopReasonMaxTokens:
		resp.StopReason = content.StopReasonMaxTokens
	default:
		resp.StopReason = content.StopReasonEndTurn
	}
	return resp, nil
}
