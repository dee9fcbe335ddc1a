// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Entry is one rendered item, in the order it was rendered.
type Entry struct {
	Kind       string `yaml:"kind" json:"kind"`
	Index      int    `yaml:"index,omitempty" json:"index,omitempty"`
	Identifier string `yaml:"identifier,omitempty" json:"identifier,omitempty"`
	Title      string `yaml:"title,omitempty" json:"title,omitempty"`
	Link       string `yaml:"link,omitempty" json:"link,omitempty"`
	Snippet    string `yaml:"snippet,omitempty" json:"snippet,omitempty"`
	Text       string `yaml:"text,omitempty" json:"text,omitempty"`
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`
}

// Entry kinds.
const (
	KindPatent       = "patent"
	KindEncyclopedia = "encyclopedia"
	KindLiterature   = "literature"
	KindAnswer       = "answer"
	KindNotice       = "notice"
)

// TranscriptQuery records the submission that produced a transcript.
type TranscriptQuery struct {
	ID       string `yaml:"id,omitempty" json:"id,omitempty"`
	Text     string `yaml:"text" json:"text"`
	Limit    int    `yaml:"limit" json:"limit"`
	Mode     string `yaml:"mode" json:"mode"`
	Question string `yaml:"question,omitempty" json:"question,omitempty"`
}

// TranscriptSummary records counts for the submission.
type TranscriptSummary struct {
	Records       map[string]int `yaml:"records,omitempty" json:"records,omitempty"`
	StoreAttempts int            `yaml:"store_attempts" json:"store_attempts"`
	Stored        int            `yaml:"stored" json:"stored"`
	StoreFailures int            `yaml:"store_failures" json:"store_failures"`
	Problems      []string       `yaml:"problems,omitempty" json:"problems,omitempty"`
	Timestamp     time.Time      `yaml:"timestamp" json:"timestamp"`
}

// Transcript collects everything rendered for one submission. It
// implements engine.Renderer and can be written as JSON or YAML.
type Transcript struct {
	Query   TranscriptQuery   `yaml:"query" json:"query"`
	Entries []Entry           `yaml:"entries" json:"entries"`
	Summary TranscriptSummary `yaml:"summary" json:"summary"`
}

// NewTranscript returns an empty transcript for sub.
func NewTranscript(sub engine.Submission) *Transcript {
	return &Transcript{Query: TranscriptQuery{
		ID:       sub.ID,
		Text:     sub.Query.Text,
		Limit:    sub.Query.Limit,
		Mode:     string(sub.Query.Mode),
		Question: sub.Question,
	}}
}

// Patent implements engine.Renderer.
func (t *Transcript) Patent(index int, rec types.ResultRecord) {
	t.Entries = append(t.Entries, Entry{
		Kind:    KindPatent,
		Index:   index,
		Title:   rec.Title,
		Link:    rec.Link,
		Snippet: rec.Snippet,
	})
}

// Encyclopedia implements engine.Renderer.
func (t *Transcript) Encyclopedia(rec types.ResultRecord) {
	t.Entries = append(t.Entries, Entry{
		Kind:       KindEncyclopedia,
		Identifier: rec.Identifier,
		Title:      rec.Title,
		Link:       rec.Link,
		Text:       rec.Snippet,
	})
}

// Literature implements engine.Renderer.
func (t *Transcript) Literature(rec types.ResultRecord) {
	t.Entries = append(t.Entries, Entry{
		Kind:       KindLiterature,
		Identifier: rec.Identifier,
		Link:       rec.Link,
		Text:       rec.Snippet,
	})
}

// Answer implements engine.Renderer.
func (t *Transcript) Answer(text string) {
	t.Entries = append(t.Entries, Entry{Kind: KindAnswer, Text: text})
}

// Notice implements engine.Renderer.
func (t *Transcript) Notice(level engine.Level, msg string) {
	lv := "info"
	if level == engine.LevelWarning {
		lv = "warning"
	}
	t.Entries = append(t.Entries, Entry{Kind: KindNotice, Level: lv, Text: msg})
}

// Finish copies the counts from sum.
func (t *Transcript) Finish(sum engine.Summary) {
	t.Summary = TranscriptSummary{
		StoreAttempts: sum.StoreAttempts,
		Stored:        sum.Stored,
		StoreFailures: sum.StoreFailures,
		Problems:      sum.Problems,
		Timestamp:     time.Now().UTC(),
	}
	if len(sum.Records) > 0 {
		t.Summary.Records = make(map[string]int, len(sum.Records))
		for src, n := range sum.Records {
			t.Summary.Records[string(src)] = n
		}
	}
}

// WriteJSON writes the transcript as indented JSON.
func (t *Transcript) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteYAML writes the transcript as YAML.
func (t *Transcript) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes the transcript to a YAML file at path.
func (t *Transcript) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing transcript %s: %w", path, err)
	}
	return nil
}

// LoadTranscript reads a transcript written by Save.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript %s: %w", path, err)
	}
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing transcript %s: %w", path, err)
	}
	return &t, nil
}

// Replay renders the saved entries to r in the order they were recorded.
func (t *Transcript) Replay(r engine.Renderer) {
	for _, e := range t.Entries {
		switch e.Kind {
		case KindPatent:
			r.Patent(e.Index, types.ResultRecord{Source: types.SourcePatents, Identifier: e.Link, Title: e.Title, Link: e.Link, Snippet: e.Snippet})
		case KindEncyclopedia:
			r.Encyclopedia(types.ResultRecord{Source: types.SourceEncyclopedia, Identifier: e.Identifier, Title: e.Title, Link: e.Link, Snippet: e.Text})
		case KindLiterature:
			r.Literature(types.ResultRecord{Source: types.SourceLiterature, Identifier: e.Identifier, Link: e.Link, Snippet: e.Text})
		case KindAnswer:
			r.Answer(e.Text)
		case KindNotice:
			level := engine.LevelInfo
			if e.Level == "warning" {
				level = engine.LevelWarning
			}
			r.Notice(level, e.Text)
		}
	}
}

// Tee forwards every call to each renderer in order.
type Tee []engine.Renderer

func (t Tee) Patent(index int, rec types.ResultRecord) {
	for _, r := range t {
		r.Patent(index, rec)
	}
}

func (t Tee) Encyclopedia(rec types.ResultRecord) {
	for _, r := range t {
		r.Encyclopedia(rec)
	}
}

func (t Tee) Literature(rec types.ResultRecord) {
	for _, r := range t {
		r.Literature(rec)
	}
}

func (t Tee) Answer(text string) {
	for _, r := range t {
		r.Answer(text)
	}
}

func (t Tee) Notice(level engine.Level, msg string) {
	for _, r := range t {
		r.Notice(level, msg)
	}
}
