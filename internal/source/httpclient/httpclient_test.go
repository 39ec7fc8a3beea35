package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"skimmer","version":1}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var dest struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
	}
	err := c.GetJSON(context.Background(), "/info", nil, &dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Name != "skimmer" || dest.Version != 1 {
		t.Fatalf("unexpected result: %+v", dest)
	}
}

func TestGetJSON_BearerAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token-123")
	if err := c.GetJSON(context.Background(), "/", nil, &struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token-123" {
		t.Fatalf("expected 'Bearer secret-token-123', got %q", gotAuth)
	}
}

func TestGet_NoAuthWithoutToken(t *testing.T) {
	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithUserAgent("skimmer/test"))
	if err := c.GetJSON(context.Background(), "/", nil, &struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
	if gotUA != "skimmer/test" {
		t.Fatalf("expected user agent 'skimmer/test', got %q", gotUA)
	}
}

func TestGetJSON_QueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	q := make(map[string][]string)
	q["id"] = []string{"100,200"}
	q["db"] = []string{"pubmed"}
	if err := c.GetJSON(context.Background(), "/efetch.fcgi", q, &struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// url.Values.Encode sorts keys alphabetically
	if gotQuery != "db=pubmed&id=100%2C200" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
}

func TestGetJSON_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	err := c.GetJSON(context.Background(), "/bad", nil, &struct{}{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 400 {
		t.Fatalf("expected status 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Body != `{"error":"bad request"}` {
		t.Fatalf("unexpected body: %q", apiErr.Body)
	}
}

func TestGet_BodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	err := New(srv.URL, "").GetJSON(context.Background(), "/", nil, &struct{}{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if len(apiErr.Body) != 512 {
		t.Fatalf("expected 512-byte body, got %d", len(apiErr.Body))
	}
}

func TestGet_NoRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(503)
		w.Write([]byte(`service unavailable`))
	}))
	defer srv.Close()

	err := New(srv.URL, "tok").GetJSON(context.Background(), "/", nil, &struct{}{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(srv.URL, "tok").GetJSON(ctx, "/", nil, &struct{}{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<?xml version="1.0"?><root><item id="1">one</item><item id="2">two</item></root>`))
	}))
	defer srv.Close()

	var dest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Text string `xml:",chardata"`
		} `xml:"item"`
	}
	if err := New(srv.URL, "").GetXML(context.Background(), "/", nil, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dest.Items) != 2 || dest.Items[1].ID != "2" || dest.Items[1].Text != "two" {
		t.Fatalf("unexpected result: %+v", dest)
	}
}
