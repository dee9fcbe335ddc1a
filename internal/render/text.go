// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns engine output into text for a terminal or into a
// transcript that can be saved and reloaded.
package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// LinkNotAvailable is shown in place of a missing patent link.
const LinkNotAvailable = "Link not available"

// Text writes each record as it arrives. Output is plain unless colorize is
// set.
type Text struct {
	w io.Writer

	heading *color.Color
	label   *color.Color
	warn    *color.Color
	info    *color.Color
}

// NewText returns a Text renderer writing to w.
func NewText(w io.Writer, colorize bool) *Text {
	t := &Text{
		w:       w,
		heading: color.New(color.Bold),
		label:   color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		info:    color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{t.heading, t.label, t.warn, t.info} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

// Patent implements engine.Renderer.
func (t *Text) Patent(index int, rec types.ResultRecord) {
	t.heading.Fprintf(t.w, "%d. %s\n", index, rec.Title)
	if rec.Link != "" {
		fmt.Fprintf(t.w, "%s %s\n", t.label.Sprint("Link:"), rec.Link)
	} else {
		fmt.Fprintln(t.w, LinkNotAvailable)
	}
	fmt.Fprintf(t.w, "%s %s\n\n", t.label.Sprint("Snippet:"), rec.Snippet)
}

// Encyclopedia implements engine.Renderer.
func (t *Text) Encyclopedia(rec types.ResultRecord) {
	if rec.Title != "" {
		t.heading.Fprintln(t.w, rec.Title)
	}
	fmt.Fprintf(t.w, "%s %s\n\n", t.label.Sprint("Wikipedia Summary:"), rec.Snippet)
}

// Literature implements engine.Renderer.
func (t *Text) Literature(rec types.ResultRecord) {
	fmt.Fprintf(t.w, "%s %s\n\n", t.label.Sprintf("PubMed Article ID %s:", rec.Identifier), rec.Snippet)
}

// Answer implements engine.Renderer.
func (t *Text) Answer(text string) {
	fmt.Fprintf(t.w, "%s %s\n", t.heading.Sprint("Answer:"), text)
}

// Notice implements engine.Renderer.
func (t *Text) Notice(level engine.Level, msg string) {
	if level == engine.LevelWarning {
		t.warn.Fprintf(t.w, "warning: %s\n", msg)
		return
	}
	t.info.Fprintln(t.w, msg)
}
