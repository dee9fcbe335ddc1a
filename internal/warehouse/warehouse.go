// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package warehouse appends scraped patent rows to a table addressed by
// project, dataset and table. Each Store call is one independent write: no
// batching, no retry, no rollback.
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// component names the warehouse in SourceError values.
const component = "warehouse"

// Columns lists the fixed row schema in column order.
var Columns = []string{"paper_id", "title", "link", "snippet", "html_content"}

// Sink persists one row per call.
type Sink interface {
	Store(ctx context.Context, row types.StoredRow) error
	Close() error
}

// Lister reads stored rows back, most recent first where the backend keeps
// insertion order.
type Lister interface {
	List(ctx context.Context, limit int) ([]types.StoredRow, error)
}

// New returns the sink for cfg.Backend. The none backend returns a nil sink
// and no error; callers report it as not configured.
func New(ctx context.Context, cfg types.WarehouseConfig, logger zerolog.Logger) (Sink, error) {
	logger = logger.With().Str("component", component).Str("backend", string(cfg.Backend)).Logger()

	switch cfg.Backend {
	case types.WarehouseNone, "":
		return nil, nil
	case types.WarehouseBigQuery:
		return NewBigQuerySink(cfg, logger), nil
	case types.WarehouseSQLite:
		return NewSQLiteSink(cfg, logger), nil
	case types.WarehousePostgres:
		return NewPostgresSink(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown warehouse backend %q", cfg.Backend)
}

// checkTarget validates the target and returns a NotConfigured error when a
// part is missing.
func checkTarget(t types.WarehouseTarget) error {
	if err := t.Validate(); err != nil {
		return types.NewSourceError(component, types.NotConfigured, err)
	}
	return nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkIdents rejects dataset and table names that are not plain SQL
// identifiers.
func checkIdents(t types.WarehouseTarget) error {
	for _, name := range []string{t.Dataset, t.Table} {
		if !identPattern.MatchString(name) {
			return types.NewSourceError(component, types.NotConfigured, fmt.Errorf("invalid identifier %q: use letters, digits and underscores", name))
		}
	}
	return nil
}

// encodeRow renders row as one line of newline-delimited JSON.
func encodeRow(row types.StoredRow) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(row); err != nil {
		return nil, fmt.Errorf("encoding row: %w", err)
	}
	return buf.Bytes(), nil
}
