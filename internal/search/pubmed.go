// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// eutilsBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// pubmedArticleBase is the public landing page prefix for a PMID.
const pubmedArticleBase = "https://pubmed.ncbi.nlm.nih.gov/"

// LiteratureAdapter searches PubMed for article IDs, then fetches all of
// their abstracts in one batched request.
type LiteratureAdapter struct {
	Client    *http.Client
	Config    types.LiteratureConfig
	UserAgent string
}

// NewLiteratureAdapter builds the adapter from config.
func NewLiteratureAdapter(cfg types.LiteratureConfig, httpCfg types.HTTPConfig, client *http.Client) *LiteratureAdapter {
	return &LiteratureAdapter{Client: client, Config: cfg, UserAgent: httpCfg.UserAgent}
}

// Name returns the source identifier.
func (a *LiteratureAdapter) Name() string { return string(types.SourceLiterature) }

// Fetch returns one record per article whose abstract could be paired with
// its ID. No matching IDs yields an empty slice and no error.
func (a *LiteratureAdapter) Fetch(ctx context.Context, query string, limit int) ([]types.ResultRecord, error) {
	ids, err := a.searchIDs(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []types.ResultRecord{}, nil
	}

	if a.Config.Pairing == types.PairPositional {
		return a.fetchPositional(ctx, ids)
	}
	return a.fetchXML(ctx, ids)
}

func (a *LiteratureAdapter) params() url.Values {
	v := url.Values{"db": {"pubmed"}}
	if a.Config.Tool != "" {
		v.Set("tool", a.Config.Tool)
	}
	if a.Config.Email != "" {
		v.Set("email", a.Config.Email)
	}
	if a.Config.APIKey != "" {
		v.Set("api_key", a.Config.APIKey)
	}
	return v
}

func (a *LiteratureAdapter) call(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	base := eutilsBase
	if a.Config.Endpoint != "" {
		base = strings.TrimSuffix(a.Config.Endpoint, "/") + "/"
	}
	return get(ctx, a.Client, types.SourceLiterature, base+endpoint+"?"+params.Encode(), a.UserAgent, a.Config.MaxRetries)
}

func (a *LiteratureAdapter) searchIDs(ctx context.Context, query string, limit int) ([]string, error) {
	params := a.params()
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")

	body, err := a.call(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var sr esearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, types.NewSourceError(a.Name(), types.MalformedResponse, fmt.Errorf("parsing esearch response: %w", err))
	}
	if sr.Result.Error != "" {
		return nil, types.NewSourceError(a.Name(), types.TransportFailure, fmt.Errorf("esearch: %s", sr.Result.Error))
	}
	if len(sr.Result.IDList) > limit {
		return sr.Result.IDList[:limit], nil
	}
	return sr.Result.IDList, nil
}

// fetchXML pairs each abstract with the PMID element of its own article.
// IDs missing from the response are dropped; order follows the search.
func (a *LiteratureAdapter) fetchXML(ctx context.Context, ids []string) ([]types.ResultRecord, error) {
	params := a.params()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	body, err := a.call(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, types.NewSourceError(a.Name(), types.MalformedResponse, fmt.Errorf("parsing efetch XML: %w", err))
	}

	byID := make(map[string]pubmedArticle, len(set.Articles))
	for _, art := range set.Articles {
		byID[strings.TrimSpace(art.PMID)] = art
	}

	records := make([]types.ResultRecord, 0, len(ids))
	for _, id := range ids {
		art, ok := byID[id]
		if !ok {
			continue
		}
		records = append(records, types.ResultRecord{
			Source:     types.SourceLiterature,
			Identifier: id,
			Title:      cleanMarkup(art.Title.Inner),
			Link:       pubmedArticleBase + id + "/",
			Snippet:    art.abstract(),
		})
	}
	return records, nil
}

// fetchPositional requests plain-text abstracts, splits the text on blank
// lines and pairs segments with IDs by position.
func (a *LiteratureAdapter) fetchPositional(ctx context.Context, ids []string) ([]types.ResultRecord, error) {
	params := a.params()
	params.Set("id", strings.Join(ids, ","))
	params.Set("rettype", "abstract")
	params.Set("retmode", "text")

	body, err := a.call(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	return pairPositional(ids, splitAbstracts(string(body))), nil
}

// splitAbstracts splits a plain-text efetch body on blank lines.
func splitAbstracts(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, "\n\n")
}

// pairPositional zips ids and segments, stopping at the shorter list.
func pairPositional(ids, segments []string) []types.ResultRecord {
	n := min(len(ids), len(segments))
	records := make([]types.ResultRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, types.ResultRecord{
			Source:     types.SourceLiterature,
			Identifier: ids[i],
			Link:       pubmedArticleBase + ids[i] + "/",
			Snippet:    strings.TrimSpace(segments[i]),
		})
	}
	return records
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanMarkup strips inline tags (italics, sub/superscripts) and decodes
// entities.
func cleanMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Title    markup         `xml:"MedlineCitation>Article>ArticleTitle"`
	Sections []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
}

type markup struct {
	Inner string `xml:",innerxml"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

// abstract joins structured abstract sections, prefixing labelled ones.
func (a pubmedArticle) abstract() string {
	parts := make([]string, 0, len(a.Sections))
	for _, s := range a.Sections {
		text := cleanMarkup(s.Inner)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}
