// Package pubmed fetches abstracts by PMID from the NCBI E-utilities
// efetch endpoint.
package pubmed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/crimson-sun/skimmer/internal/model"
	"github.com/crimson-sun/skimmer/internal/source"
	"github.com/crimson-sun/skimmer/internal/source/httpclient"
)

const (
	providerName    = "pubmed"
	defaultEndpoint = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	efetchPath      = "/efetch.fcgi"
	// maxIDsPerRequest keeps the efetch URL well under server limits.
	maxIDsPerRequest = 200
)

func init() {
	source.Register(providerName, func() source.Source {
		return &Source{}
	})
}

// Source implements source.Source for PubMed.
type Source struct{}

// Response types (unexported).

type articleSet struct {
	Articles []article `xml:"PubmedArticle"`
}

type article struct {
	PMID      string         `xml:"MedlineCitation>PMID"`
	Abstracts []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

// toAbstract joins the sections of a structured abstract into one text.
// Section labels are dropped: recovering them is the classifier's job.
func toAbstract(a article) model.Abstract {
	parts := make([]string, 0, len(a.Abstracts))
	for _, t := range a.Abstracts {
		if s := strings.Join(strings.Fields(t.Text), " "); s != "" {
			parts = append(parts, s)
		}
	}
	return model.Abstract{
		ID:     strings.TrimSpace(a.PMID),
		Source: providerName,
		Text:   strings.Join(parts, " "),
	}
}

func newClient(cfg source.Config) *httpclient.Client {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultEndpoint
	}
	return httpclient.New(baseURL, "", httpclient.WithUserAgent("skimmer"))
}

func ids(cfg source.Config, params source.QueryParams) ([]string, error) {
	list := params.IDs
	if len(list) == 0 {
		list = cfg.IDs
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("pubmed source: no PMIDs given")
	}
	if params.Limit > 0 && len(list) > params.Limit {
		list = list[:params.Limit]
	}
	return list, nil
}

func fetch(ctx context.Context, client *httpclient.Client, apiKey string, batch []string) ([]model.Abstract, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	q.Set("id", strings.Join(batch, ","))
	if apiKey != "" {
		q.Set("api_key", apiKey)
	}

	var resp articleSet
	if err := client.GetXML(ctx, efetchPath, q, &resp); err != nil {
		return nil, fmt.Errorf("pubmed source: %w", err)
	}
	out := make([]model.Abstract, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		abs := toAbstract(a)
		if abs.Text == "" {
			slog.Warn("pubmed article has no abstract", "pmid", abs.ID)
			continue
		}
		out = append(out, abs)
	}
	return out, nil
}

// Query fetches the requested PMIDs in batches.
func (s *Source) Query(ctx context.Context, cfg source.Config, params source.QueryParams) ([]model.Abstract, error) {
	list, err := ids(cfg, params)
	if err != nil {
		return nil, err
	}
	client := newClient(cfg)

	var results []model.Abstract
	for start := 0; start < len(list); start += maxIDsPerRequest {
		batch := list[start:min(start+maxIDsPerRequest, len(list))]
		abs, err := fetch(ctx, client, cfg.APIKey, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, abs...)
	}
	return results, nil
}

// Stream fetches batch by batch and sends abstracts as each batch arrives.
// A failed batch is logged and skipped.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.Abstract, error) {
	list, err := ids(cfg, source.QueryParams{})
	if err != nil {
		return nil, err
	}
	client := newClient(cfg)

	ch := make(chan model.Abstract, 64)
	go func() {
		defer close(ch)
		for start := 0; start < len(list); start += maxIDsPerRequest {
			batch := list[start:min(start+maxIDsPerRequest, len(list))]
			abs, err := fetch(ctx, client, cfg.APIKey, batch)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("pubmed fetch failed", "error", err, "batch_start", start)
				continue
			}
			for _, a := range abs {
				select {
				case ch <- a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
