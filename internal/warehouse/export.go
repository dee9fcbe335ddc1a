// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// exportLimit caps the rows read for an export.
const exportLimit = 100000

// ExportEntry is one stored row in an export document. Content is dropped
// unless requested since pages are large.
type ExportEntry struct {
	PaperID     int64  `json:"paper_id" yaml:"paper_id"`
	Title       string `json:"title" yaml:"title"`
	Link        string `json:"link" yaml:"link"`
	Snippet     string `json:"snippet" yaml:"snippet"`
	HTMLContent string `json:"html_content,omitempty" yaml:"html_content,omitempty"`
}

// Export writes the rows from l to w as YAML or JSON.
func Export(ctx context.Context, l Lister, w io.Writer, format string, withContent bool) error {
	rows, err := l.List(ctx, exportLimit)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	return WriteRows(w, rows, format, withContent)
}

// WriteRows encodes rows to w.
func WriteRows(w io.Writer, rows []types.StoredRow, format string, withContent bool) error {
	entries := make([]ExportEntry, len(rows))
	for i, r := range rows {
		entries[i] = ExportEntry{
			PaperID: r.PaperID,
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
		}
		if withContent {
			entries[i].HTMLContent = r.HTMLContent
		}
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown export format %q: use yaml or json", format)
}
