// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer turns a question and a context string into a single
// completion from a hosted language model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// component names the generator in SourceError values.
const component = "answer"

const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultOllamaModel    = "llama3.2"
	DefaultTemperature    = 0.2

	// FallbackNoResponse is shown when the model returns no choices.
	FallbackNoResponse = "No response generated."

	// FallbackError is shown when generation fails for any other reason.
	FallbackError = "An error occurred while generating the response."

	// ChatbotContext is the fixed context used by the standalone chat flow.
	ChatbotContext = "Provide context relevant to the user's query if needed."
)

// ErrNoChoices reports a completion response without any choice.
var ErrNoChoices = errors.New("no choices in response")

// ErrMissingAPIKey reports a hosted provider configured without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// Generator sends one prompt and returns the first choice's text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// BuildPrompt joins the question and context into the single user message.
func BuildPrompt(question, contextText string) string {
	return question + "\n\nContext: " + contextText
}

// Respond always yields display text. On failure the text is one of the
// fallback strings and the error says what went wrong.
func Respond(ctx context.Context, gen Generator, question, contextText string) (string, error) {
	if gen == nil {
		return FallbackError, types.NewSourceError(component, types.NotConfigured, errors.New("no answer provider configured"))
	}

	text, err := gen.Generate(ctx, BuildPrompt(question, contextText))
	if err != nil {
		if errors.Is(err, ErrNoChoices) {
			return FallbackNoResponse, err
		}
		return FallbackError, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackNoResponse, nil
	}
	return text, nil
}

// New returns the generator for cfg.Provider. Missing credentials yield a
// NotConfigured error.
func New(cfg types.AnswerConfig) (Generator, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, types.NewSourceError(component, types.NotConfigured, fmt.Errorf("openai: %w", ErrMissingAPIKey))
		}
		return NewOpenAI(cfg), nil
	case types.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, types.NewSourceError(component, types.NotConfigured, fmt.Errorf("anthropic: %w", ErrMissingAPIKey))
		}
		return NewAnthropic(cfg), nil
	case types.ProviderOllama:
		g, err := NewOllama(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, types.NewSourceError(component, types.NotConfigured, fmt.Errorf("unknown provider %q", cfg.Provider))
}

func defaultModel(p types.AnswerProvider) string {
	switch p {
	case types.ProviderAnthropic:
		return DefaultAnthropicModel
	case types.ProviderOllama:
		return DefaultOllamaModel
	}
	return DefaultModel
}

// classify wraps a provider error, using the HTTP status when one is known.
func classify(provider string, status int, err error) error {
	kind := types.TransportFailure
	if status != 0 {
		kind = httputil.KindForStatus(status)
	}
	return types.NewSourceError(component, kind, fmt.Errorf("%s: %w", provider, err))
}
