// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// ErrMissingCredentials reports an adapter built without its API key or
// engine ID.
var ErrMissingCredentials = errors.New("missing API key or search engine ID")

// PatentAdapter queries a programmable search engine that is scoped to
// patent pages.
type PatentAdapter struct {
	svc      *customsearch.Service
	engineID string
	timeout  time.Duration
}

// NewPatentAdapter builds the adapter. It returns a NotConfigured
// SourceError when the key or engine ID is empty.
func NewPatentAdapter(ctx context.Context, cfg types.PatentSearchConfig, httpCfg types.HTTPConfig) (*PatentAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.EngineID) == "" {
		return nil, types.NewSourceError(string(types.SourcePatents), types.NotConfigured, ErrMissingCredentials)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if httpCfg.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(httpCfg.UserAgent))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, types.NewSourceError(string(types.SourcePatents), types.NotConfigured, fmt.Errorf("creating search client: %w", err))
	}
	return &PatentAdapter{svc: svc, engineID: cfg.EngineID, timeout: httpCfg.Timeout}, nil
}

// Name returns the source identifier.
func (a *PatentAdapter) Name() string { return string(types.SourcePatents) }

// Fetch runs one search and returns up to limit records in API order. A
// response without items yields an empty slice.
func (a *PatentAdapter) Fetch(ctx context.Context, query string, limit int) ([]types.ResultRecord, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res, err := a.svc.Cse.List().
		Q(query).
		Cx(a.engineID).
		Num(int64(clampLimit(limit))).
		Context(ctx).
		Do()
	if err != nil {
		kind := types.TransportFailure
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			kind = httputil.KindForStatus(gerr.Code)
		}
		return nil, types.NewSourceError(a.Name(), kind, fmt.Errorf("search request: %w", err))
	}

	records := make([]types.ResultRecord, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil {
			continue
		}
		records = append(records, types.ResultRecord{
			Source:     types.SourcePatents,
			Identifier: item.Link,
			Title:      item.Title,
			Link:       item.Link,
			Snippet:    cleanSnippet(item.Snippet),
		})
	}
	return records, nil
}

// cleanSnippet removes the ellipses search engines insert into snippets.
func cleanSnippet(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "...", ""))
}
