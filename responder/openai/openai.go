// Package openai adapts the OpenAI Chat Completions API to the
// responder.Responder interface.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/agentflow-go/agentflow/responder"
)

// Options configures the OpenAI responder adapter. Fields act as defaults;
// per-request generation parameters take precedence when set.
type Options struct {
	Model               string
	MaxCompletionTokens int64
}

// Responder wraps the OpenAI Chat Completions API behind responder.Responder.
type Responder struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI responder using the official client (API key from
// the environment).
func New(optFns ...func(o *Options)) *Responder {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI responder from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Responder {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Responder{client: client, opts: opts}
}

// Call implements responder.Responder with a single non-streaming chat
// completion. API errors are returned (not panicked) so the executor's retry
// loop can classify them as transient.
func (r *Responder) Call(ctx context.Context, req responder.Request) (*responder.Response, error) {
	maxTokens := r.opts.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	messages = append(messages, openai.UserMessage(req.Input))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               r.opts.Model,
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  tool.Parameters,
				},
			}
		}
		params.Tools = tools
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", responder.ErrFailure)
	}

	choice := resp.Choices[0]
	out := &responder.Response{
		Text: choice.Message.Content,
		Usage: map[string]int{
			"input":  int(resp.Usage.PromptTokens),
			"output": int(resp.Usage.CompletionTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, responder.ToolCall{
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}
