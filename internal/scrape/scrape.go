// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape retrieves a web page and reduces it to plain text through
// the langchaingo HTML document loader.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// component names the scraper in SourceError values.
const component = "scraper"

// maxPageBytes bounds how much of a page is read.
const maxPageBytes = 10 << 20

// ErrEmptyLink reports a scrape request without a URL.
var ErrEmptyLink = errors.New("empty link")

// Scraper returns the visible text of the page at url. On any failure it
// returns "" and a *types.SourceError.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTMLScraper loads fetched HTML as documents and concatenates their text
// in loader order.
type HTMLScraper struct {
	Fetcher  Fetcher
	MaxChars int
}

// New returns a scraper for the configured mode.
func New(cfg types.ScraperConfig, httpCfg types.HTTPConfig, client *http.Client) *HTMLScraper {
	var f Fetcher
	switch cfg.Mode {
	case types.ScrapeBrowser:
		f = &BrowserFetcher{ChromePath: cfg.ChromePath, Timeout: httpCfg.Timeout}
	default:
		f = &HTTPFetcher{Client: client, UserAgent: httpCfg.UserAgent}
	}
	return &HTMLScraper{Fetcher: f, MaxChars: cfg.MaxChars}
}

// Scrape implements Scraper.
func (s *HTMLScraper) Scrape(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", types.NewSourceError(component, types.MalformedResponse, ErrEmptyLink)
	}

	page, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		var se *types.SourceError
		if errors.As(err, &se) {
			return "", err
		}
		return "", types.NewSourceError(component, types.TransportFailure, fmt.Errorf("fetching %s: %w", url, err))
	}

	docs, err := documentloaders.NewHTML(bytes.NewReader(page)).Load(ctx)
	if err != nil {
		return "", types.NewSourceError(component, types.MalformedResponse, fmt.Errorf("loading %s: %w", url, err))
	}

	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.PageContent)
	}
	return capRunes(b.String(), s.MaxChars), nil
}

func capRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// HTTPFetcher fetches pages with a plain GET.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewSourceError(component, types.MalformedResponse, fmt.Errorf("creating request: %w", err))
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewSourceError(component, httputil.KindForStatus(resp.StatusCode),
			fmt.Errorf("%s returned HTTP %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("reading %s: %w", url, err))
	}
	return body, nil
}
