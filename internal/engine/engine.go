// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs one submission end to end: fan out to the selected
// sources in fixed order, enrich and store patent results, answer an
// optional question, and hand everything to a Renderer as it happens.
// Every failure becomes a notice; a submission never aborts part way.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/knowledge-engine/internal/answer"
	"github.com/pdiddy/knowledge-engine/internal/scrape"
	"github.com/pdiddy/knowledge-engine/internal/search"
	"github.com/pdiddy/knowledge-engine/internal/warehouse"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// CombinedSuffix is appended to the answer context when every source was
// queried.
const CombinedSuffix = " (Combined from all sources)"

// ErrNotConfigured is wrapped in the notice for a missing component.
var ErrNotConfigured = errors.New("component not configured")

// ErrMissingTitle reports a patent record that cannot be stored.
var ErrMissingTitle = errors.New("record has no title")

// Level grades a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

// Renderer receives output in order. Implementations append; nothing is
// revised once rendered.
type Renderer interface {
	Patent(index int, rec types.ResultRecord)
	Encyclopedia(rec types.ResultRecord)
	Literature(rec types.ResultRecord)
	Answer(text string)
	Notice(level Level, msg string)
}

// Components holds the collaborators of an Engine. A nil field is reported
// as not configured when its step runs.
type Components struct {
	Patents      search.Adapter
	Encyclopedia search.Adapter
	Literature   search.Adapter
	Scraper      scrape.Scraper
	Sink         warehouse.Sink
	Generator    answer.Generator

	// Target names the warehouse table in success notices.
	Target string
}

// Submission is one user request.
type Submission struct {
	ID       string
	Query    types.Query
	Question string
}

// Summary reports what a submission did.
type Summary struct {
	ID   string
	Idle bool

	// Records counts records returned per source.
	Records map[types.Source]int

	StoreAttempts int
	Stored        int
	StoreFailures int
	StoreSkipped  int

	Answered bool
	Answer   string

	// Problems holds the text of every warning notice.
	Problems []string
}

// Engine runs submissions. It holds no per-submission state; callers
// serialize submissions.
type Engine struct {
	c      Components
	logger zerolog.Logger
}

// New returns an Engine over c.
func New(c Components, logger zerolog.Logger) *Engine {
	return &Engine{c: c, logger: logger.With().Str("component", "engine").Logger()}
}

// ContextFor returns the answer context for q: the query text, marked as
// combined when the mode is all.
func ContextFor(q types.Query) string {
	if m, err := types.ParseMode(string(q.Mode)); err == nil && m == types.ModeAll {
		return q.Text + CombinedSuffix
	}
	return q.Text
}

// Run executes sub and renders to r. An idle query returns immediately
// without touching any component. The error is non-nil only for an invalid
// query.
func (e *Engine) Run(ctx context.Context, sub Submission, r Renderer) (Summary, error) {
	sum := Summary{ID: sub.ID, Records: map[types.Source]int{}}
	q := sub.Query

	if q.IsIdle() {
		sum.Idle = true
		return sum, nil
	}
	if err := q.Validate(); err != nil {
		return sum, err
	}
	q.Mode, _ = types.ParseMode(string(q.Mode))

	log := e.logger.With().Str("submission", sub.ID).Logger()
	log.Info().Str("mode", string(q.Mode)).Int("limit", q.Limit).Msg("submission started")

	for _, src := range types.Sources {
		if !q.Mode.Includes(src) {
			continue
		}
		switch src {
		case types.SourcePatents:
			e.runPatents(ctx, q, r, &sum, log)
		case types.SourceEncyclopedia:
			e.runSource(ctx, src, e.c.Encyclopedia, q, r.Encyclopedia, r, &sum, log)
		case types.SourceLiterature:
			e.runSource(ctx, src, e.c.Literature, q, r.Literature, r, &sum, log)
		}
	}

	if strings.TrimSpace(sub.Question) != "" {
		e.answer(ctx, sub.Question, ContextFor(q), r, &sum, log)
	}

	log.Info().
		Int("stored", sum.Stored).
		Int("store_failures", sum.StoreFailures).
		Int("problems", len(sum.Problems)).
		Msg("submission finished")
	return sum, nil
}

// Ask answers question with the fixed chatbot context. A blank question
// does nothing.
func (e *Engine) Ask(ctx context.Context, question string, r Renderer) (Summary, error) {
	sum := Summary{Records: map[types.Source]int{}}
	if strings.TrimSpace(question) == "" {
		sum.Idle = true
		return sum, nil
	}
	e.answer(ctx, question, answer.ChatbotContext, r, &sum, e.logger)
	return sum, nil
}

func (e *Engine) runPatents(ctx context.Context, q types.Query, r Renderer, sum *Summary, log zerolog.Logger) {
	src := types.SourcePatents
	recs, ok := e.fetch(ctx, src, e.c.Patents, q, r, sum, log)
	if !ok {
		return
	}

	for i, rec := range recs {
		rec.Content = e.scrape(ctx, rec.Link, r, sum, log)
		r.Patent(i+1, rec)

		row := types.StoredRow{
			PaperID:     int64(i + 1),
			Title:       rec.Title,
			Link:        rec.Link,
			Snippet:     rec.Snippet,
			HTMLContent: rec.Content,
		}
		e.store(ctx, row, r, sum, log)
	}
}

func (e *Engine) runSource(ctx context.Context, src types.Source, a search.Adapter, q types.Query, emit func(types.ResultRecord), r Renderer, sum *Summary, log zerolog.Logger) {
	recs, ok := e.fetch(ctx, src, a, q, r, sum, log)
	if !ok {
		return
	}
	for _, rec := range recs {
		emit(rec)
	}
}

// fetch calls a and reports failures and empty results. ok is false when
// there is nothing to render.
func (e *Engine) fetch(ctx context.Context, src types.Source, a search.Adapter, q types.Query, r Renderer, sum *Summary, log zerolog.Logger) ([]types.ResultRecord, bool) {
	if a == nil {
		e.warn(r, sum, log, types.NewSourceError(string(src), types.NotConfigured, ErrNotConfigured))
		return nil, false
	}

	recs, err := a.Fetch(ctx, q.Text, q.Limit)
	if err != nil {
		e.warn(r, sum, log, fmt.Errorf("querying %s: %w", src.Label(), err))
		return nil, false
	}
	log.Debug().Str("source", string(src)).Int("records", len(recs)).Msg("source fetched")

	if len(recs) == 0 {
		r.Notice(LevelInfo, emptyNotice(src))
		return nil, false
	}
	sum.Records[src] = len(recs)
	return recs, true
}

func emptyNotice(src types.Source) string {
	switch src {
	case types.SourcePatents:
		return "No Google Patents results found for the query."
	case types.SourceEncyclopedia:
		return "No Wikipedia articles found for the query."
	case types.SourceLiterature:
		return "No PubMed articles found for the query."
	}
	return "No results found for the query."
}

// scrape returns the page text, or "" after reporting why there is none.
func (e *Engine) scrape(ctx context.Context, link string, r Renderer, sum *Summary, log zerolog.Logger) string {
	if e.c.Scraper == nil {
		e.warn(r, sum, log, types.NewSourceError("scraper", types.NotConfigured, ErrNotConfigured))
		return ""
	}
	content, err := e.c.Scraper.Scrape(ctx, link)
	if err != nil {
		shown := link
		if shown == "" {
			shown = "a result without a link"
		}
		e.warn(r, sum, log, fmt.Errorf("scraping content from %s: %w", shown, err))
		return ""
	}
	return content
}

func (e *Engine) store(ctx context.Context, row types.StoredRow, r Renderer, sum *Summary, log zerolog.Logger) {
	if strings.TrimSpace(row.Title) == "" {
		sum.StoreSkipped++
		e.warn(r, sum, log, fmt.Errorf("skipped storing result %d: %w", row.PaperID, ErrMissingTitle))
		return
	}

	sum.StoreAttempts++
	if e.c.Sink == nil {
		sum.StoreFailures++
		e.warn(r, sum, log, fmt.Errorf("storing %s: %w", row.Title,
			types.NewSourceError("warehouse", types.NotConfigured, ErrNotConfigured)))
		return
	}

	if err := e.c.Sink.Store(ctx, row); err != nil {
		sum.StoreFailures++
		e.warn(r, sum, log, fmt.Errorf("storing %s: %w", row.Title, err))
		return
	}

	sum.Stored++
	target := e.c.Target
	if target == "" {
		target = "the warehouse"
	}
	r.Notice(LevelInfo, fmt.Sprintf("Successfully inserted %s into %s", row.Title, target))
}

func (e *Engine) answer(ctx context.Context, question, contextText string, r Renderer, sum *Summary, log zerolog.Logger) {
	text, err := answer.Respond(ctx, e.c.Generator, question, contextText)
	if err != nil {
		e.warn(r, sum, log, fmt.Errorf("generating answer: %w", err))
	}
	r.Answer(text)
	sum.Answer = text
	sum.Answered = err == nil
}

func (e *Engine) warn(r Renderer, sum *Summary, log zerolog.Logger, err error) {
	msg := err.Error()
	log.Warn().Err(err).Str("kind", types.KindOf(err).String()).Msg("step failed")
	sum.Problems = append(sum.Problems, msg)
	r.Notice(LevelWarning, msg)
}
