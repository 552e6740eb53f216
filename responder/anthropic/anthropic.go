// Package anthropic adapts the Anthropic Messages API to the
// responder.Responder interface.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/agentflow-go/agentflow/responder"
)

// Options configures the Anthropic responder adapter. Model and MaxTokens
// act as defaults; per-request generation parameters take precedence when
// set.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Responder wraps the Anthropic Messages API behind responder.Responder.
type Responder struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic responder using the official client.
func New(optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Responder{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic responder from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

// Call implements responder.Responder with a single non-streaming message
// exchange. API errors are returned (not panicked) so the executor's retry
// loop can classify them as transient.
func (r *Responder) Call(ctx context.Context, req responder.Request) (*responder.Response, error) {
	maxTokens := r.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     r.opts.Model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Input)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	out := &responder.Response{
		Usage: map[string]int{
			"input":  int(resp.Usage.InputTokens),
			"output": int(resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := map[string]any{}
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					_ = json.Unmarshal(raw, &args)
				}
			}
			out.ToolCalls = append(out.ToolCalls, responder.ToolCall{
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

// buildTools converts tool schemas to the Anthropic tool format.
func buildTools(tools []responder.ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if tool.Parameters != nil {
			if properties, ok := tool.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}
			if required, ok := tool.Parameters["required"]; ok {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
	}
	return out
}
