// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const efetchXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">222</PMID>
      <Article>
        <ArticleTitle>Closed-loop <i>insulin</i> delivery</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Pumps &amp; sensors.</AbstractText>
          <AbstractText Label="RESULTS">HbA<sub>1c</sub> fell.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">111</PMID>
      <Article>
        <ArticleTitle>Insulin analogues</ArticleTitle>
        <Abstract><AbstractText>Analogues act faster.</AbstractText></Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

// eutilsServer serves esearch with ids and efetch with fetchBody.
func eutilsServer(t *testing.T, ids []string, fetchBody string, fetches *[]string) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			quoted := make([]string, len(ids))
			for i, id := range ids {
				quoted[i] = `"` + id + `"`
			}
			w.Write([]byte(`{"esearchresult": {"count": "` + "99" + `", "idlist": [` + strings.Join(quoted, ",") + `]}}`))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			if fetches != nil {
				*fetches = append(*fetches, r.URL.RawQuery)
			}
			w.Write([]byte(fetchBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	old := eutilsBase
	eutilsBase = ts.URL + "/"
	t.Cleanup(func() { eutilsBase = old })
}

func newLiteratureAdapter(pairing types.PairingMode) *LiteratureAdapter {
	return NewLiteratureAdapter(
		types.LiteratureConfig{Email: "me@example.org", Tool: "knowledge-engine", Pairing: pairing, MaxRetries: 2},
		types.HTTPConfig{UserAgent: "knowledge-engine/test"},
		http.DefaultClient)
}

func TestLiteratureAdapterPairsByPMID(t *testing.T) {
	var fetches []string
	eutilsServer(t, []string{"111", "222", "333"}, efetchXML, &fetches)

	records, err := newLiteratureAdapter(types.PairByPMID).Fetch(context.Background(), "insulin", 3)
	require.NoError(t, err)

	// One batched fetch for all ids.
	require.Len(t, fetches, 1)
	assert.Contains(t, fetches[0], "id=111%2C222%2C333")
	assert.Contains(t, fetches[0], "retmode=xml")

	// Order follows the search; 333 is absent from the fetch and dropped.
	require.Len(t, records, 2)
	assert.Equal(t, types.ResultRecord{
		Source:     types.SourceLiterature,
		Identifier: "111",
		Title:      "Insulin analogues",
		Link:       "https://pubmed.ncbi.nlm.nih.gov/111/",
		Snippet:    "Analogues act faster.",
	}, records[0])
	assert.Equal(t, "222", records[1].Identifier)
	assert.Equal(t, "Closed-loop insulin delivery", records[1].Title)
	assert.Equal(t, "BACKGROUND: Pumps & sensors.\nRESULTS: HbA1c fell.", records[1].Snippet)
}

func TestLiteratureAdapterPositionalShorterText(t *testing.T) {
	// Three ids, two segments: two articles paired with the first two ids.
	eutilsServer(t, []string{"1", "2", "3"}, "first abstract\n\nsecond abstract", nil)

	records, err := newLiteratureAdapter(types.PairPositional).Fetch(context.Background(), "insulin", 3)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].Identifier)
	assert.Equal(t, "first abstract", records[0].Snippet)
	assert.Equal(t, "2", records[1].Identifier)
	assert.Equal(t, "second abstract", records[1].Snippet)
}

func TestLiteratureAdapterNoIDs(t *testing.T) {
	var fetches []string
	eutilsServer(t, nil, "", &fetches)

	records, err := newLiteratureAdapter(types.PairByPMID).Fetch(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, fetches, "efetch must not be called without ids")
}

func TestLiteratureAdapterRetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/esearch.fcgi") && atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	}))
	defer ts.Close()
	old := eutilsBase
	eutilsBase = ts.URL + "/"
	defer func() { eutilsBase = old }()

	records, err := newLiteratureAdapter(types.PairByPMID).Fetch(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLiteratureAdapterErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    types.ErrorKind
	}{
		{
			name:    "esearch down",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    types.TransportFailure,
		},
		{
			name:    "esearch malformed",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("not json")) },
			want:    types.MalformedResponse,
		},
		{
			name: "efetch malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
					w.Write([]byte(`{"esearchresult": {"idlist": ["1"]}}`))
					return
				}
				w.Write([]byte("<PubmedArticleSet><PubmedArticle>"))
			},
			want: types.MalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			old := eutilsBase
			eutilsBase = ts.URL + "/"
			defer func() { eutilsBase = old }()

			_, err := newLiteratureAdapter(types.PairByPMID).Fetch(context.Background(), "q", 3)
			require.Error(t, err)
			assert.Equal(t, tt.want, types.KindOf(err))
		})
	}
}

func TestPairPositional(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		segments []string
		want     int
	}{
		{"equal", []string{"1", "2"}, []string{"a", "b"}, 2},
		{"fewer segments", []string{"1", "2", "3", "4"}, []string{"a"}, 1},
		{"more segments", []string{"1"}, []string{"a", "b", "c"}, 1},
		{"no segments", []string{"1"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pairPositional(tt.ids, tt.segments)
			require.Len(t, got, tt.want)
			for i, r := range got {
				assert.Equal(t, tt.ids[i], r.Identifier)
				assert.Equal(t, tt.segments[i], r.Snippet)
			}
		})
	}
}

func TestSplitAbstracts(t *testing.T) {
	assert.Equal(t, []string{"a", "b\nc"}, splitAbstracts("a\r\n\r\nb\nc"))
	assert.Nil(t, splitAbstracts("  \n"))
}

func TestLiteratureAdapterEndpointOverride(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eutils/esearch.fcgi", r.URL.Path)
		w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	}))
	defer ts.Close()

	a := NewLiteratureAdapter(types.LiteratureConfig{Endpoint: ts.URL + "/eutils", MaxRetries: -1}, types.HTTPConfig{}, ts.Client())
	records, err := a.Fetch(context.Background(), "insulin", 2)
	require.NoError(t, err)
	assert.Empty(t, records)
}
