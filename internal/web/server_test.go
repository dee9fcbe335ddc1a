// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// fakeRunner renders a fixed result set and records submissions.
type fakeRunner struct {
	mu        sync.Mutex
	subs      []engine.Submission
	questions []string
	err       error

	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration
}

func (f *fakeRunner) Run(_ context.Context, sub engine.Submission, r engine.Renderer) (engine.Summary, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	if f.err != nil {
		return engine.Summary{}, f.err
	}
	if sub.Query.IsIdle() {
		return engine.Summary{Idle: true}, nil
	}
	r.Patent(1, types.ResultRecord{Title: "Insulin pump", Link: "https://patents.google.com/patent/US1", Snippet: "A pump"})
	r.Patent(2, types.ResultRecord{Title: "Glucose <sensor>", Snippet: "A sensor"})
	r.Notice(engine.LevelWarning, "scraping content from x: timeout")
	r.Encyclopedia(types.ResultRecord{Source: types.SourceEncyclopedia, Identifier: "11", Title: "Insulin", Snippet: "Insulin is a peptide hormone."})
	r.Literature(types.ResultRecord{Source: types.SourceLiterature, Identifier: "38000001", Snippet: "Analogues act faster."})
	if sub.Question != "" {
		r.Answer("**Insulin** lowers glucose.")
	}
	return engine.Summary{ID: sub.ID, StoreAttempts: 2, Stored: 2}, nil
}

func (f *fakeRunner) Ask(_ context.Context, question string, r engine.Renderer) (engine.Summary, error) {
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if strings.TrimSpace(question) == "" {
		return engine.Summary{Idle: true}, nil
	}
	r.Answer("Chat answer.")
	return engine.Summary{Answered: true}, nil
}

func setupServer(t *testing.T, runner *fakeRunner) http.Handler {
	t.Helper()
	s := newServer(runner, zerolog.Nop(), Options{DefaultLimit: 5, DefaultMode: types.ModeAll})
	s.newID = func() string { return "sub-1" }
	return s.routes()
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleRootGet(t *testing.T) {
	h := setupServer(t, &fakeRunner{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, label := range []string{"Google Patents", "Wikipedia", "PubMed", "All Combined"} {
		assert.Contains(t, body, label)
	}
	assert.Contains(t, body, `value="all" selected`)
	assert.Contains(t, body, `max="10"`)
}

func TestHandleRootNotFound(t *testing.T) {
	h := setupServer(t, &fakeRunner{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleSubmit(t *testing.T) {
	runner := &fakeRunner{}
	h := setupServer(t, runner)

	rr := postForm(h, "/", url.Values{
		"query":    {"insulin"},
		"count":    {"3"},
		"mode":     {"Google Patents"},
		"question": {"What is it?"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, runner.subs, 1)
	assert.Equal(t, engine.Submission{
		ID:       "sub-1",
		Query:    types.Query{Text: "insulin", Limit: 3, Mode: types.ModePatents},
		Question: "What is it?",
	}, runner.subs[0])

	body := rr.Body.String()
	assert.Contains(t, body, "1. Insulin pump")
	assert.Contains(t, body, "Link not available")
	assert.Contains(t, body, "Glucose &lt;sensor&gt;")
	assert.Contains(t, body, `class="warning"`)
	assert.Contains(t, body, "Wikipedia Summary: Insulin is a peptide hormone.")
	assert.Contains(t, body, "PubMed Article ID 38000001: Analogues act faster.")
	assert.Contains(t, body, "<strong>Insulin</strong> lowers glucose.")
	assert.Contains(t, body, `value="patents" selected`)
}

func TestHandleSubmitBadInput(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"bad count", url.Values{"query": {"insulin"}, "count": {"many"}}},
		{"bad mode", url.Values{"query": {"insulin"}, "mode": {"arxiv"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			rr := postForm(setupServer(t, runner), "/", tt.form)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, runner.subs)
			assert.Contains(t, rr.Body.String(), `class="error"`)
		})
	}
}

func TestHandleSubmitRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("result count 11 out of range 1-10")}
	rr := postForm(setupServer(t, runner), "/", url.Values{"query": {"insulin"}, "count": {"11"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "out of range")
}

func TestHandleChat(t *testing.T) {
	runner := &fakeRunner{}
	h := setupServer(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Chatbot")

	rr = postForm(h, "/chat", url.Values{"question": {"What is insulin?"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"What is insulin?"}, runner.questions)
	assert.Contains(t, rr.Body.String(), "Chat answer.")
}

func TestHandleAPISubmit(t *testing.T) {
	runner := &fakeRunner{}
	h := setupServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", strings.NewReader(`{"query":"insulin","limit":2,"mode":"pubmed"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Query struct {
			ID   string `json:"id"`
			Mode string `json:"mode"`
		} `json:"query"`
		Entries []map[string]any `json:"entries"`
		Summary struct {
			Stored int `json:"stored"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "sub-1", got.Query.ID)
	assert.Equal(t, "literature", got.Query.Mode)
	require.Len(t, got.Entries, 5)
	assert.Equal(t, "Insulin is a peptide hormone.", got.Entries[3]["text"])
	assert.Equal(t, "Analogues act faster.", got.Entries[4]["text"])
	assert.Equal(t, 2, got.Summary.Stored)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/submissions", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	setupServer(t, &fakeRunner{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestSubmissionsAreSerialized(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	h := setupServer(t, runner)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			postForm(h, "/", url.Values{"query": {"insulin"}, "count": {"1"}})
		}()
	}
	wg.Wait()

	assert.Len(t, runner.subs, 4)
	assert.Equal(t, int32(1), runner.maxActive.Load())
}
