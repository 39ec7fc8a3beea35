package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/skimmer/internal/source"
)

const efetchResponse = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">24845963</PMID>
      <Article PubModel="Print">
        <ArticleTitle>A trial.</ArticleTitle>
        <Abstract>
          <AbstractText Label="OBJECTIVE" NlmCategory="OBJECTIVE">To assess
            drug A.</AbstractText>
          <AbstractText Label="METHODS" NlmCategory="METHODS">We randomised 40 adults.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">111</PMID>
      <Article><ArticleTitle>No abstract.</ArticleTitle></Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newServer(t *testing.T, calls *atomic.Int32, queries *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != efetchPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		*queries = append(*queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(efetchResponse))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuery(t *testing.T) {
	var calls atomic.Int32
	var queries []string
	srv := newServer(t, &calls, &queries)

	s := &Source{}
	got, err := s.Query(context.Background(), source.Config{Endpoint: srv.URL, APIKey: "k"},
		source.QueryParams{IDs: []string{"24845963", "111"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "24845963", got[0].ID)
	assert.Equal(t, "pubmed", got[0].Source)
	assert.Equal(t, "To assess drug A. We randomised 40 adults.", got[0].Text)

	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "db=pubmed")
	assert.Contains(t, queries[0], "id=24845963%2C111")
	assert.Contains(t, queries[0], "api_key=k")
}

func TestQuery_Batches(t *testing.T) {
	var calls atomic.Int32
	var queries []string
	srv := newServer(t, &calls, &queries)

	list := make([]string, maxIDsPerRequest+5)
	for i := range list {
		list[i] = "1"
	}
	_, err := (&Source{}).Query(context.Background(), source.Config{Endpoint: srv.URL, IDs: list}, source.QueryParams{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.NotContains(t, queries[0], "api_key")
}

func TestQuery_Limit(t *testing.T) {
	got, err := ids(source.Config{IDs: []string{"1", "2", "3"}}, source.QueryParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got)

	_, err = ids(source.Config{}, source.QueryParams{})
	assert.Error(t, err)
}

func TestQuery_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := (&Source{}).Query(context.Background(), source.Config{Endpoint: srv.URL, IDs: []string{"1"}}, source.QueryParams{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "HTTP 429"))
}

func TestStream(t *testing.T) {
	var calls atomic.Int32
	var queries []string
	srv := newServer(t, &calls, &queries)

	ch, err := (&Source{}).Stream(context.Background(), source.Config{Endpoint: srv.URL, IDs: []string{"24845963"}})
	require.NoError(t, err)
	var got []string
	for a := range ch {
		got = append(got, a.ID)
	}
	assert.Equal(t, []string{"24845963"}, got)
}

func TestRegistered(t *testing.T) {
	ctor, err := source.Get("pubmed")
	require.NoError(t, err)
	assert.IsType(t, &Source{}, ctor())
}
