// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the search form and the chatbot page. Submissions are
// handed to the engine one at a time.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/internal/render"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Runner executes submissions. *engine.Engine implements it.
type Runner interface {
	Run(ctx context.Context, sub engine.Submission, r engine.Renderer) (engine.Summary, error)
	Ask(ctx context.Context, question string, r engine.Renderer) (engine.Summary, error)
}

// Options holds form defaults.
type Options struct {
	DefaultLimit int
	DefaultMode  types.SourceMode
}

// Server handles the web surface.
type Server struct {
	runner Runner
	logger zerolog.Logger
	opts   Options
	md     goldmark.Markdown

	// mu serializes submissions.
	mu sync.Mutex

	// newID returns a submission ID.
	newID func() string
}

// NewServer returns the HTTP handler for the form and chat pages.
func NewServer(runner Runner, logger zerolog.Logger, opts Options) http.Handler {
	return newServer(runner, logger, opts).routes()
}

func newServer(runner Runner, logger zerolog.Logger, opts Options) *Server {
	if opts.DefaultLimit < types.MinLimit || opts.DefaultLimit > types.MaxLimit {
		opts.DefaultLimit = 5
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = types.ModeAll
	}
	return &Server{
		runner: runner,
		logger: logger.With().Str("component", "web").Logger(),
		opts:   opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		newID: uuid.NewString,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/submissions", s.handleAPISubmit)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

type modeOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Chat     bool
	Query    string
	Limit    int
	MinLimit int
	MaxLimit int
	Modes    []modeOption
	Question string

	Error      string
	Entries    []render.Entry
	Answered   bool
	AnswerHTML template.HTML
}

func (s *Server) page(mode types.SourceMode) pageData {
	d := pageData{Limit: s.opts.DefaultLimit, MinLimit: types.MinLimit, MaxLimit: types.MaxLimit}
	for _, m := range types.Modes {
		d.Modes = append(d.Modes, modeOption{Value: string(m), Label: m.Label(), Selected: m == mode})
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, http.StatusOK, s.page(s.opts.DefaultMode))
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	mode := s.opts.DefaultMode
	if v := r.PostForm.Get("mode"); v != "" {
		m, err := types.ParseMode(v)
		if err != nil {
			d := s.page(s.opts.DefaultMode)
			d.Error = err.Error()
			s.renderPage(w, http.StatusBadRequest, d)
			return
		}
		mode = m
	}

	d := s.page(mode)
	d.Query = strings.TrimSpace(r.PostForm.Get("query"))
	d.Question = strings.TrimSpace(r.PostForm.Get("question"))
	if v := r.PostForm.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			d.Error = "number of results must be a whole number"
			s.renderPage(w, http.StatusBadRequest, d)
			return
		}
		d.Limit = n
	}

	sub := engine.Submission{
		ID:       s.newID(),
		Query:    types.Query{Text: d.Query, Limit: d.Limit, Mode: mode},
		Question: d.Question,
	}
	tr, err := s.run(r.Context(), sub)
	if err != nil {
		d.Error = err.Error()
		s.renderPage(w, http.StatusBadRequest, d)
		return
	}
	s.fill(&d, tr)
	s.renderPage(w, http.StatusOK, d)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	d := s.page(s.opts.DefaultMode)
	d.Chat = true

	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, http.StatusOK, d)
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	d.Question = strings.TrimSpace(r.PostForm.Get("question"))

	tr := render.NewTranscript(engine.Submission{ID: s.newID(), Question: d.Question})
	s.mu.Lock()
	sum, err := s.runner.Ask(r.Context(), d.Question, tr)
	s.mu.Unlock()
	if err != nil {
		d.Error = err.Error()
		s.renderPage(w, http.StatusInternalServerError, d)
		return
	}
	tr.Finish(sum)
	s.fill(&d, tr)
	s.renderPage(w, http.StatusOK, d)
}

// submitRequest is the JSON body accepted by /api/submissions.
type submitRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	Mode     string `json:"mode"`
	Question string `json:"question"`
}

func (s *Server) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	mode := s.opts.DefaultMode
	if req.Mode != "" {
		m, err := types.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	sub := engine.Submission{
		ID:       s.newID(),
		Query:    types.Query{Text: req.Query, Limit: req.Limit, Mode: mode},
		Question: req.Question,
	}
	tr, err := s.run(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// run executes sub under the submission lock and returns its transcript.
func (s *Server) run(ctx context.Context, sub engine.Submission) (*render.Transcript, error) {
	tr := render.NewTranscript(sub)

	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.runner.Run(ctx, sub, tr)
	if err != nil {
		s.logger.Warn().Err(err).Str("submission", sub.ID).Msg("submission rejected")
		return nil, err
	}
	tr.Finish(sum)
	return tr, nil
}

// fill copies the transcript into the page, converting the answer from
// Markdown.
func (s *Server) fill(d *pageData, tr *render.Transcript) {
	for _, e := range tr.Entries {
		if e.Kind == render.KindAnswer {
			d.Answered = true
			d.AnswerHTML = s.markdown(e.Text)
			continue
		}
		d.Entries = append(d.Entries, e)
	}
}

func (s *Server) markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		s.logger.Warn().Err(err).Msg("answer markdown conversion failed")
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func (s *Server) renderPage(w http.ResponseWriter, status int, d pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, d); err != nil {
		s.logger.Error().Err(err).Msg("rendering page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
