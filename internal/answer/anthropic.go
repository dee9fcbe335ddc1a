// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// defaultAnthropicMaxTokens applies when the config leaves max_tokens unset.
const defaultAnthropicMaxTokens = 1024

// AnthropicMessager is the subset of the Anthropic client used here.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates answers through the messages API.
type Anthropic struct {
	messages    AnthropicMessager
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropic builds a generator from cfg.
func NewAnthropic(cfg types.AnswerConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c := anthropic.NewClient(opts...)
	return NewAnthropicWith(&c.Messages, cfg)
}

// NewAnthropicWith builds a generator around an existing messager.
func NewAnthropicWith(messages AnthropicMessager, cfg types.AnswerConfig) *Anthropic {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &Anthropic{messages: messages, model: cfg.Model, temperature: cfg.Temperature, maxTokens: maxTokens}
}

// Model returns the model identifier.
func (g *Anthropic) Model() string { return g.model }

// Generate implements Generator. Text blocks of the reply are concatenated.
func (g *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(g.temperature),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify("anthropic", apiErr.StatusCode, err)
		}
		return "", classify("anthropic", 0, err)
	}

	var sb strings.Builder
	found := false
	for _, b := range resp.Content {
		if b.Type == "text" {
			found = true
			sb.WriteString(b.Text)
		}
	}
	if !found {
		return "", types.NewSourceError(component, types.EmptyResult, ErrNoChoices)
	}
	return sb.String(), nil
}
