// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// ChatCompleter is the subset of the OpenAI client used here.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI generates answers through the chat completions API.
type OpenAI struct {
	completions ChatCompleter
	model       string
	temperature float64
}

// NewOpenAI builds a generator from cfg.
func NewOpenAI(cfg types.AnswerConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := openai.NewClient(opts...)
	return NewOpenAIWith(&c.Chat.Completions, cfg)
}

// NewOpenAIWith builds a generator around an existing completer.
func NewOpenAIWith(completions ChatCompleter, cfg types.AnswerConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{completions: completions, model: model, temperature: cfg.Temperature}
}

// Model returns the model identifier.
func (g *OpenAI) Model() string { return g.model }

// Generate implements Generator.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classify("openai", apiErr.StatusCode, err)
		}
		return "", classify("openai", 0, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", types.NewSourceError(component, types.EmptyResult, ErrNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}
