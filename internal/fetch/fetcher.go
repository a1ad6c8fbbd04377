// Package fetch retrieves RSS and Atom feeds and converts their entries into
// articles owned by the configured news source.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/otel"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

const (
	titleKeywordLimit = 5
	wordsPerMinute    = 200
)

var (
	// ErrAllSourcesFailed is returned by FetchAll when no source succeeded.
	ErrAllSourcesFailed = errors.New("fetch: all sources failed")

	errParse = errors.New("failed to parse feed")
)

// Options configures a Fetcher.
type Options struct {
	Timeout     time.Duration // per request
	UserAgent   string
	Concurrency int             // sources fetched at once
	Backoffs    []time.Duration // waits between attempts; len+1 attempts total
}

// DefaultOptions returns 30s requests, five concurrent sources and three
// attempts per feed.
func DefaultOptions() Options {
	return Options{
		Timeout:     30 * time.Second,
		UserAgent:   DefaultUserAgent,
		Concurrency: 5,
		Backoffs:    []time.Duration{4 * time.Second, 8 * time.Second},
	}
}

// Fetcher retrieves articles from feed sources.
type Fetcher struct {
	client *http.Client
	opts   Options
	events *otel.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher. A nil events logger is allowed.
func NewFetcher(opts Options, events *otel.Logger) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		events: events,
		now:    time.Now,
	}
}

// statusError is a non-200 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, http.StatusText(e.code))
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	if errors.Is(err, errParse) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Fetch retrieves one feed. Transport errors, 429 and 5xx responses are
// retried after each configured backoff. Entries without a title are
// skipped.
func (f *Fetcher) Fetch(ctx context.Context, src *model.NewsSource) ([]*model.Article, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var feed *gofeed.Feed
	var err error
	for attempt := 0; ; attempt++ {
		feed, err = f.get(ctx, src.URL)
		if err == nil || attempt >= len(f.opts.Backoffs) || !retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.opts.Backoffs[attempt]):
		}
	}
	if err != nil {
		return nil, err
	}

	now := f.now()
	articles := make([]*model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if a := convertItem(item, src, now); a != nil {
			articles = append(articles, a)
		}
	}
	updated := now
	src.LastUpdated = &updated
	return articles, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errParse, err)
	}
	return feed, nil
}

// FetchAll fetches every active source concurrently. Articles come back in
// source order. A failing source is logged and skipped; the error is
// non-nil only when every source failed.
func (f *Fetcher) FetchAll(ctx context.Context, sources []*model.NewsSource) ([]*model.Article, error) {
	var active []*model.NewsSource
	for _, s := range sources {
		if s != nil && s.IsActive {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return []*model.Article{}, nil
	}

	results := make([][]*model.Article, len(active))
	errs := make([]error, len(active))

	var g errgroup.Group
	g.SetLimit(f.opts.Concurrency)
	for i, src := range active {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			f.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindFetchStart, Comp: "fetch", Source: src.Name})
			articles, err := f.Fetch(ctx, src)
			if err != nil {
				errs[i] = err
				f.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFetchError, Comp: "fetch", Source: src.Name, Dur: time.Since(start), Err: err.Error()})
				return nil
			}
			results[i] = articles
			f.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchComplete, Comp: "fetch", Source: src.Name, Dur: time.Since(start), Count: len(articles)})
			return nil
		})
	}
	_ = g.Wait()

	var all []*model.Article
	failed := 0
	for i := range active {
		if errs[i] != nil {
			failed++
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(active) {
		return nil, fmt.Errorf("%w: %d sources, first: %v", ErrAllSourcesFailed, failed, errs[0])
	}
	if all == nil {
		all = []*model.Article{}
	}
	return all, nil
}

// convertItem maps a feed entry to an Article. Returns nil for entries
// without a title.
func convertItem(item *gofeed.Item, src *model.NewsSource, now time.Time) *model.Article {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	content = CleanHTML(content)
	words := len(strings.Fields(content))

	processed := now
	return &model.Article{
		ID:               model.ArticleID(item.Link, title, src.Name),
		Title:            title,
		Description:      CleanHTML(item.Description),
		Content:          content,
		URL:              item.Link,
		Source:           src,
		Category:         itemCategory(item, src),
		PublishedAt:      published,
		Author:           itemAuthor(item),
		Language:         src.Lang(),
		WordCount:        words,
		ReadingTime:      max(1, words/wordsPerMinute),
		Keywords:         itemKeywords(item, title),
		ReliabilityScore: src.ReliabilityScore,
		ProcessedAt:      &processed,
	}
}

// CleanHTML extracts the visible text of an HTML fragment and collapses
// whitespace. Plain text passes through unchanged apart from spacing.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return textutil.CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return textutil.CollapseSpace(s)
	}
	doc.Find("script, style").Remove()
	return textutil.CollapseSpace(doc.Text())
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	return ""
}

// itemCategory uses the first entry category that names a known section,
// otherwise the source's.
func itemCategory(item *gofeed.Item, src *model.NewsSource) model.Category {
	for _, c := range item.Categories {
		if cat, ok := model.MatchCategory(c); ok {
			return cat
		}
	}
	if src.Category == "" {
		return model.CategoryGeneral
	}
	return src.Category
}

// itemKeywords collects entry tags plus up to five title words longer than
// three letters. Duplicates are dropped, first occurrence wins.
func itemKeywords(item *gofeed.Item, title string) []string {
	seen := make(map[string]bool)
	keywords := []string{}
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keywords = append(keywords, k)
	}

	for _, c := range item.Categories {
		add(c)
	}
	n := 0
	for _, w := range textutil.Words(title) {
		if n == titleKeywordLimit {
			break
		}
		if len(w) > 3 && !textutil.IsEnglishStopWord(w) {
			add(w)
			n++
		}
	}
	return keywords
}
