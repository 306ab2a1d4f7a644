// Package openai provides a completer backed by the OpenAI Chat Completions
// API. It adapts SupportMesh's normalized Request/Response structures into
// the SDK's message format and back.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/supportmesh/llm"
)

// Options configure the OpenAI completer.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Completer wraps the OpenAI Chat Completions API behind the generic
// llm.Completer interface.
type Completer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI completer using the official client.
func New(optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: openai.ChatModelGPT4oMini,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Completer{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI completer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model: openai.ChatModelGPT4oMini,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Completer{client: client, opts: opts}
}

// Complete implements llm.Completer using the Chat Completions API.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai api returned no choices")
	}

	resp := &llm.Response{
		Text:  completion.Choices[0].Message.Content,
		Model: completion.Model,
	}

	if completion.Usage.TotalTokens > 0 {
		resp.Usage = &llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		}
	}

	return resp, nil
}

// Info returns metadata describing this OpenAI completer.
func (c *Completer) Info() llm.Info {
	return llm.Info{
		Name:     c.opts.Model,
		Provider: "openai",
	}
}

var _ llm.Completer = (*Completer)(nil)
