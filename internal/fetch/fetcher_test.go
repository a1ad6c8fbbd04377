package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Central bank raises interest rates again</title>
      <link>http://example.com/article1</link>
      <description><![CDATA[<p>The <b>central bank</b> moved.</p><script>x()</script>]]></description>
      <category>Business</category>
      <author>desk@example.com (Jane Desk)</author>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>   </title>
      <link>http://example.com/blank</link>
    </item>
    <item>
      <title>Undated story</title>
      <link>http://example.com/article2</link>
      <description>Plain   text body</description>
    </item>
  </channel>
</rss>`

func newTestFetcher() *Fetcher {
	opts := DefaultOptions()
	opts.Timeout = 5 * time.Second
	opts.Backoffs = []time.Duration{time.Millisecond, time.Millisecond}
	return NewFetcher(opts, nil)
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := feedServer(t, testRSS)
	src := &model.NewsSource{Name: "Wire", URL: srv.URL, Category: model.CategoryGeneral, ReliabilityScore: 0.8, IsActive: true}

	f := newTestFetcher()
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	articles, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (blank title skipped), got %d", len(articles))
	}

	a := articles[0]
	if a.Source != src {
		t.Error("article should share the source pointer")
	}
	if a.ID != model.ArticleID("http://example.com/article1", a.Title, "Wire") {
		t.Errorf("unexpected id %s", a.ID)
	}
	if a.Description != "The central bank moved." {
		t.Errorf("html not cleaned: %q", a.Description)
	}
	if a.Category != model.CategoryBusiness {
		t.Errorf("category = %q, want business", a.Category)
	}
	if a.ReliabilityScore != 0.8 {
		t.Errorf("reliability = %v, want source score", a.ReliabilityScore)
	}
	if a.ReadingTime != 1 {
		t.Errorf("reading time = %d, want minimum 1", a.ReadingTime)
	}
	if !a.PublishedAt.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("published = %v", a.PublishedAt)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("fetched article should validate: %v", err)
	}

	undated := articles[1]
	if !undated.PublishedAt.Equal(now) {
		t.Errorf("undated article should use fetch time, got %v", undated.PublishedAt)
	}
	if undated.Category != model.CategoryGeneral {
		t.Errorf("expected source category, got %q", undated.Category)
	}
	if undated.Content != "Plain text body" {
		t.Errorf("content = %q", undated.Content)
	}
	if src.LastUpdated == nil || !src.LastUpdated.Equal(now) {
		t.Error("source LastUpdated not set")
	}
}

func TestFetchRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	articles, err := newTestFetcher().Fetch(context.Background(), &model.NewsSource{Name: "Flaky", URL: srv.URL})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if len(articles) != 2 || calls.Load() != 3 {
		t.Errorf("articles=%d calls=%d", len(articles), calls.Load())
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"not found is not retried", http.StatusNotFound, "", 1},
		{"server error exhausts retries", http.StatusInternalServerError, "", 3},
		{"unparseable feed", http.StatusOK, "this is not a feed", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestFetcher().Fetch(context.Background(), &model.NewsSource{Name: "Bad", URL: srv.URL})
			if err == nil {
				t.Fatal("expected error")
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Fetch(ctx, &model.NewsSource{Name: "x", URL: "http://127.0.0.1:1"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetchAll(t *testing.T) {
	good := feedServer(t, testRSS)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	sources := []*model.NewsSource{
		{Name: "One", URL: good.URL, IsActive: true},
		{Name: "Broken", URL: bad.URL, IsActive: true},
		{Name: "Off", URL: good.URL, IsActive: false},
		{Name: "Two", URL: good.URL, IsActive: true},
	}

	articles, err := newTestFetcher().FetchAll(context.Background(), sources)
	if err != nil {
		t.Fatalf("one failing source should not fail the batch: %v", err)
	}
	if len(articles) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(articles))
	}
	if articles[0].SourceName() != "One" || articles[3].SourceName() != "Two" {
		t.Error("articles should follow source order")
	}
	if sources[2].LastUpdated != nil {
		t.Error("inactive source should not be fetched")
	}
}

func TestFetchAllEveryFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	_, err := newTestFetcher().FetchAll(context.Background(), []*model.NewsSource{
		{Name: "A", URL: bad.URL, IsActive: true},
		{Name: "B", URL: bad.URL, IsActive: true},
	})
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestFetchAllNoSources(t *testing.T) {
	articles, err := newTestFetcher().FetchAll(context.Background(), nil)
	if err != nil || articles == nil || len(articles) != 0 {
		t.Errorf("expected empty non-nil slice, got %v, %v", articles, err)
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain  text\n here", "plain text here"},
		{"<div><p>Hello</p> <p>world</p></div>", "Hello world"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<style>p{}</style>Body", "Body"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanHTML(tt.in); got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemKeywords(t *testing.T) {
	srv := feedServer(t, testRSS)
	articles, err := newTestFetcher().Fetch(context.Background(), &model.NewsSource{Name: "Wire", URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	kw := articles[0].Keywords
	want := []string{"business", "central", "bank", "raises", "rates"}
	if len(kw) != len(want) {
		t.Fatalf("keywords = %v, want %v", kw, want)
	}
	for i := range want {
		if kw[i] != want[i] {
			t.Errorf("keywords[%d] = %q, want %q", i, kw[i], want[i])
		}
	}
}
