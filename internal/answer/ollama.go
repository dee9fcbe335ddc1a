// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Ollama generates answers with a local model through langchaingo.
type Ollama struct {
	llm         llms.Model
	model       string
	temperature float64
}

// NewOllama builds a generator from cfg. BaseURL selects the server; empty
// uses the library default.
func NewOllama(cfg types.AnswerConfig) (*Ollama, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, types.NewSourceError(component, types.NotConfigured, fmt.Errorf("ollama: %w", err))
	}
	return NewOllamaWith(llm, cfg), nil
}

// NewOllamaWith builds a generator around an existing model.
func NewOllamaWith(llm llms.Model, cfg types.AnswerConfig) *Ollama {
	return &Ollama{llm: llm, model: cfg.Model, temperature: cfg.Temperature}
}

// Model returns the model identifier.
func (g *Ollama) Model() string { return g.model }

// Generate implements Generator.
func (g *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return "", classify("ollama", 0, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", types.NewSourceError(component, types.EmptyResult, ErrNoChoices)
	}
	return resp.Choices[0].Content, nil
}
