// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search holds the source adapters. Each adapter issues one logical
// query against an external API and normalizes the response into
// types.ResultRecord values. Adapters never scrape, store or render; failures
// come back as *types.SourceError for the caller to report.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Adapter fetches records for a query from one source. Each source (web
// search, Wikipedia, PubMed) implements this interface.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) ([]types.ResultRecord, error)
}

// clampLimit forces limit into the accepted result count range.
func clampLimit(limit int) int {
	if limit < types.MinLimit {
		return types.MinLimit
	}
	if limit > types.MaxLimit {
		return types.MaxLimit
	}
	return limit
}

// truncate cuts s to at most n runes. Zero or negative n keeps s whole.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// get issues a GET with retry on 429 and returns the body of a 200
// response. Any other status becomes a SourceError classified by code.
func get(ctx context.Context, client *http.Client, src types.Source, reqURL, userAgent string, maxRetries int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewSourceError(string(src), types.MalformedResponse, fmt.Errorf("creating request: %w", err))
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, maxRetries)
	if err != nil {
		return nil, types.NewSourceError(string(src), types.TransportFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewSourceError(string(src), httputil.KindForStatus(resp.StatusCode),
			fmt.Errorf("%s returned HTTP %d", src.Label(), resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewSourceError(string(src), types.TransportFailure, fmt.Errorf("reading response: %w", err))
	}
	return body, nil
}
