// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for knowledge-engine:
// the submitted Query, the normalized ResultRecord every source adapter
// produces, the StoredRow written to the warehouse, and the configuration
// and error types passed between components.
package types

import (
	"fmt"
	"strings"
)

// Result count bounds accepted by the search form and CLI.
const (
	MinLimit = 1
	MaxLimit = 10
)

// SourceMode selects which sources a submission fans out to.
type SourceMode string

const (
	ModePatents      SourceMode = "patents"
	ModeEncyclopedia SourceMode = "encyclopedia"
	ModeLiterature   SourceMode = "literature"
	ModeAll          SourceMode = "all"
)

// Source names one external data source.
type Source string

const (
	SourcePatents      Source = "patents"
	SourceEncyclopedia Source = "encyclopedia"
	SourceLiterature   Source = "literature"
)

// Sources lists every source in processing order.
var Sources = []Source{SourcePatents, SourceEncyclopedia, SourceLiterature}

// modeAliases maps mode names and the search form selector labels to modes.
var modeAliases = map[string]SourceMode{
	"patents":        ModePatents,
	"google patents": ModePatents,
	"encyclopedia":   ModeEncyclopedia,
	"wikipedia":      ModeEncyclopedia,
	"literature":     ModeLiterature,
	"pubmed":         ModeLiterature,
	"all":            ModeAll,
	"all combined":   ModeAll,
}

// ParseMode converts a mode name or selector label into a SourceMode.
func ParseMode(s string) (SourceMode, error) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown source mode %q: use patents, encyclopedia, literature, or all", s)
	}
	return m, nil
}

// Includes reports whether the mode fans out to src.
func (m SourceMode) Includes(src Source) bool {
	if m == ModeAll {
		return true
	}
	return string(m) == string(src)
}

// Modes lists every mode in selector order.
var Modes = []SourceMode{ModePatents, ModeEncyclopedia, ModeLiterature, ModeAll}

// Label returns the selector label for the mode.
func (m SourceMode) Label() string {
	if m == ModeAll {
		return "All Combined"
	}
	return Source(m).Label()
}

// Label returns the human-readable name shown next to results of src.
func (s Source) Label() string {
	switch s {
	case SourcePatents:
		return "Google Patents"
	case SourceEncyclopedia:
		return "Wikipedia"
	case SourceLiterature:
		return "PubMed"
	}
	return string(s)
}

// Query is one submitted search. It is not modified after submission.
type Query struct {
	Text  string     `json:"text" yaml:"text"`
	Limit int        `json:"limit" yaml:"limit"`
	Mode  SourceMode `json:"mode" yaml:"mode"`
}

// IsIdle reports whether the query carries no work: no text or no result
// count. An idle query is not an error.
func (q Query) IsIdle() bool {
	return strings.TrimSpace(q.Text) == "" || q.Limit == 0
}

// Validate checks the result count bounds and the mode.
func (q Query) Validate() error {
	if q.Limit < MinLimit || q.Limit > MaxLimit {
		return fmt.Errorf("result count %d out of range %d-%d", q.Limit, MinLimit, MaxLimit)
	}
	if _, err := ParseMode(string(q.Mode)); err != nil {
		return err
	}
	return nil
}

// ResultRecord is a normalized unit of retrieved information. Fields that a
// source does not provide stay empty.
type ResultRecord struct {
	// Source identifies the adapter that produced the record.
	Source Source `json:"source" yaml:"source"`

	// Identifier is the source-native ID (PubMed PMID, Wikipedia page ID, or
	// the result link for web search).
	Identifier string `json:"identifier" yaml:"identifier"`

	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Link  string `json:"link,omitempty" yaml:"link,omitempty"`

	// Snippet is the displayed text: the search snippet for patents, the
	// article extract for Wikipedia, the abstract for PubMed.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Content is the scraped page text. Only patent records are enriched.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// StoredRow is the exact field set persisted for a patent record. PaperID is
// the 1-based position within the submission's results, so it repeats
// across submissions.
type StoredRow struct {
	PaperID     int64  `json:"paper_id" yaml:"paper_id" db:"paper_id"`
	Title       string `json:"title" yaml:"title" db:"title"`
	Link        string `json:"link" yaml:"link" db:"link"`
	Snippet     string `json:"snippet" yaml:"snippet" db:"snippet"`
	HTMLContent string `json:"html_content" yaml:"html_content" db:"html_content"`
}

// AnswerRequest is a question plus the context string handed to the
// language model. It is never persisted.
type AnswerRequest struct {
	Question string `json:"question" yaml:"question"`
	Context  string `json:"context" yaml:"context"`
}
