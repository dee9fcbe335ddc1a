// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// wikipediaAPIFormat builds the MediaWiki API URL for a language edition.
const wikipediaAPIFormat = "https://%s.wikipedia.org/w/api.php"

// EncyclopediaAdapter searches Wikipedia and returns the plain-text intro of
// each matching page.
type EncyclopediaAdapter struct {
	Client    *http.Client
	Endpoint  string
	MaxChars  int
	UserAgent string
}

// NewEncyclopediaAdapter builds the adapter from config.
func NewEncyclopediaAdapter(cfg types.EncyclopediaConfig, httpCfg types.HTTPConfig, client *http.Client) *EncyclopediaAdapter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		lang := cfg.Language
		if lang == "" {
			lang = "en"
		}
		endpoint = fmt.Sprintf(wikipediaAPIFormat, lang)
	}
	return &EncyclopediaAdapter{
		Client:    client,
		Endpoint:  endpoint,
		MaxChars:  cfg.MaxChars,
		UserAgent: httpCfg.UserAgent,
	}
}

// Name returns the source identifier.
func (a *EncyclopediaAdapter) Name() string { return string(types.SourceEncyclopedia) }

// Fetch searches and loads page extracts in a single request. Pages come
// back in search rank order.
func (a *EncyclopediaAdapter) Fetch(ctx context.Context, query string, limit int) ([]types.ResultRecord, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"generator":     {"search"},
		"gsrsearch":     {query},
		"gsrlimit":      {strconv.Itoa(clampLimit(limit))},
		"prop":          {"extracts|info"},
		"inprop":        {"url"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
		"exlimit":       {"max"},
	}

	body, err := get(ctx, a.Client, types.SourceEncyclopedia, a.Endpoint+"?"+params.Encode(), a.UserAgent, -1)
	if err != nil {
		return nil, err
	}

	var wr wikiResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, types.NewSourceError(a.Name(), types.MalformedResponse, fmt.Errorf("parsing Wikipedia response: %w", err))
	}
	if wr.Error != nil {
		return nil, types.NewSourceError(a.Name(), types.TransportFailure, fmt.Errorf("Wikipedia API error %s: %s", wr.Error.Code, wr.Error.Info))
	}
	if wr.Query == nil {
		return []types.ResultRecord{}, nil
	}

	pages := wr.Query.Pages
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	records := make([]types.ResultRecord, 0, len(pages))
	for _, p := range pages {
		if p.Missing {
			continue
		}
		records = append(records, types.ResultRecord{
			Source:     types.SourceEncyclopedia,
			Identifier: strconv.FormatInt(p.PageID, 10),
			Title:      p.Title,
			Link:       p.FullURL,
			Snippet:    truncate(p.Extract, a.MaxChars),
		})
	}
	return records, nil
}

type wikiResponse struct {
	Query *struct {
		Pages []wikiPage `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type wikiPage struct {
	PageID  int64  `json:"pageid"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
	Extract string `json:"extract"`
	FullURL string `json:"fullurl"`
	Missing bool   `json:"missing"`
}
