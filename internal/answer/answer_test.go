// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func (f *fakeGenerator) Model() string { return "fake" }

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "What is insulin?\n\nContext: insulin (Combined from all sources)",
		BuildPrompt("What is insulin?", "insulin (Combined from all sources)"))
	assert.Equal(t, "q\n\nContext: ", BuildPrompt("q", ""))
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name     string
		gen      *fakeGenerator
		want     string
		wantKind types.ErrorKind
		wantErr  bool
	}{
		{"first choice", &fakeGenerator{text: "  Insulin is a hormone.\n"}, "Insulin is a hormone.", 0, false},
		{"blank choice", &fakeGenerator{text: "   "}, FallbackNoResponse, 0, false},
		{"no choices", &fakeGenerator{err: types.NewSourceError(component, types.EmptyResult, ErrNoChoices)}, FallbackNoResponse, types.EmptyResult, true},
		{"transport failure", &fakeGenerator{err: types.NewSourceError(component, types.TransportFailure, errors.New("timeout"))}, FallbackError, types.TransportFailure, true},
		{"untyped failure", &fakeGenerator{err: errors.New("boom")}, FallbackError, types.KindUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Respond(context.Background(), tt.gen, "What is insulin?", "insulin")
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, []string{"What is insulin?\n\nContext: insulin"}, tt.gen.prompts)
		})
	}
}

func TestRespondNilGenerator(t *testing.T) {
	got, err := Respond(context.Background(), nil, "q", "c")
	assert.Equal(t, FallbackError, got)
	assert.Equal(t, types.NotConfigured, types.KindOf(err))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       types.AnswerConfig
		wantModel string
		wantKind  types.ErrorKind
	}{
		{"openai default model", types.AnswerConfig{Provider: types.ProviderOpenAI, APIKey: "sk"}, DefaultModel, 0},
		{"openai missing key", types.AnswerConfig{Provider: types.ProviderOpenAI}, "", types.NotConfigured},
		{"anthropic default model", types.AnswerConfig{Provider: types.ProviderAnthropic, APIKey: "ak"}, DefaultAnthropicModel, 0},
		{"anthropic missing key", types.AnswerConfig{Provider: types.ProviderAnthropic}, "", types.NotConfigured},
		{"ollama needs no key", types.AnswerConfig{Provider: types.ProviderOllama, Model: "mistral"}, "mistral", 0},
		{"unknown provider", types.AnswerConfig{Provider: "cohere"}, "", types.NotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(tt.cfg)
			if tt.wantKind != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, types.KindOf(err))
				assert.Nil(t, gen)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, gen.Model())
		})
	}
}

// recordingServer replies with status and body and keeps the decoded
// request body.
func recordingServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if got != nil {
			json.Unmarshal(raw, got)
			(*got)["_path"] = r.URL.Path
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestOpenAIGenerate(t *testing.T) {
	var req map[string]any
	ts := recordingServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-3.5-turbo",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Insulin is a hormone."}}]
	}`, &req)

	g := NewOpenAI(types.AnswerConfig{APIKey: "sk-test", BaseURL: ts.URL + "/", Model: DefaultModel, Temperature: DefaultTemperature})
	text, err := g.Generate(context.Background(), BuildPrompt("What is insulin?", "insulin"))
	require.NoError(t, err)

	assert.Equal(t, "Insulin is a hormone.", text)
	assert.Equal(t, "/chat/completions", req["_path"])
	assert.Equal(t, DefaultModel, req["model"])
	assert.InDelta(t, DefaultTemperature, req["temperature"], 1e-9)
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	ts := recordingServer(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`, nil)

	g := NewOpenAI(types.AnswerConfig{APIKey: "sk-test", BaseURL: ts.URL + "/"})
	_, err := g.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoChoices)

	text, _ := Respond(context.Background(), g, "q", "c")
	assert.Equal(t, FallbackNoResponse, text)
}

func TestOpenAIGenerateUnauthorized(t *testing.T) {
	ts := recordingServer(t, http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`, nil)

	g := NewOpenAI(types.AnswerConfig{APIKey: "sk-bad", BaseURL: ts.URL + "/"})
	_, err := g.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, types.NotConfigured, types.KindOf(err))

	text, _ := Respond(context.Background(), g, "q", "c")
	assert.Equal(t, FallbackError, text)
}

func TestAnthropicGenerate(t *testing.T) {
	var req map[string]any
	ts := recordingServer(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "Insulin "}, {"type": "text", "text": "is a hormone."}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 3, "output_tokens": 4}
	}`, &req)

	g := NewAnthropic(types.AnswerConfig{APIKey: "ak-test", BaseURL: ts.URL + "/", Model: DefaultAnthropicModel, Temperature: DefaultTemperature})
	text, err := g.Generate(context.Background(), "What is insulin?")
	require.NoError(t, err)

	assert.Equal(t, "Insulin is a hormone.", text)
	assert.Equal(t, "/v1/messages", req["_path"])
	assert.Equal(t, float64(defaultAnthropicMaxTokens), req["max_tokens"])
	assert.InDelta(t, DefaultTemperature, req["temperature"], 1e-9)
}

func TestAnthropicGenerateNoText(t *testing.T) {
	ts := recordingServer(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
		"content": [], "stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 0}
	}`, nil)

	g := NewAnthropic(types.AnswerConfig{APIKey: "ak-test", BaseURL: ts.URL + "/", Model: "m"})
	_, err := g.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoChoices)
}

type fakeModel struct {
	resp *llms.ContentResponse
	err  error
	opts llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestOllamaGenerate(t *testing.T) {
	m := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "local answer"}}}}
	g := NewOllamaWith(m, types.AnswerConfig{Model: "llama3.2", Temperature: DefaultTemperature})

	text, err := g.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "local answer", text)
	assert.InDelta(t, DefaultTemperature, m.opts.Temperature, 1e-9)
}

func TestOllamaGenerateFailures(t *testing.T) {
	g := NewOllamaWith(&fakeModel{resp: &llms.ContentResponse{}}, types.AnswerConfig{})
	_, err := g.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoChoices)

	g = NewOllamaWith(&fakeModel{err: errors.New("connection refused")}, types.AnswerConfig{})
	_, err = g.Generate(context.Background(), "q")
	assert.Equal(t, types.TransportFailure, types.KindOf(err))
}
