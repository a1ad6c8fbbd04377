// Package trend turns article clusters into ranked Trend records.
package trend

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

// Errors returned by Builder.Build.
var (
	ErrEmptyCluster     = errors.New("trend: empty cluster")
	ErrTooFewArticles   = errors.New("trend: cluster below minimum article count")
	ErrMissingTimestamp = errors.New("trend: article without published time")
)

const (
	titleWords       = 3
	titleFallbackLen = 50
	descriptionLen   = 200
	idKeywords       = 5
)

// Builder derives a Trend from one cluster of articles.
type Builder struct {
	MinArticles int
	MaxKeywords int
}

// NewBuilder creates a Builder.
func NewBuilder(minArticles, maxKeywords int) *Builder {
	return &Builder{MinArticles: minArticles, MaxKeywords: maxKeywords}
}

// Build names, describes and dates the cluster. Scores are left at zero.
func (b *Builder) Build(articles []*model.Article) (*model.Trend, error) {
	if len(articles) == 0 {
		return nil, ErrEmptyCluster
	}
	if len(articles) < b.MinArticles {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewArticles, len(articles), b.MinArticles)
	}

	first, last, err := bounds(articles)
	if err != nil {
		return nil, err
	}

	title := Title(articles)
	keywords := Keywords(articles, b.MaxKeywords)

	t := &model.Trend{
		ID:            ID(keywords, articles[0]),
		Title:         title,
		Description:   Description(articles, title),
		Keywords:      keywords,
		Articles:      articles,
		Category:      Category(articles),
		ArticleCount:  len(articles),
		SourceCount:   model.DistinctSources(articles),
		FirstSeen:     first,
		LastUpdated:   last,
		DurationHours: last.Sub(first).Hours(),
	}
	return t, nil
}

func bounds(articles []*model.Article) (first, last time.Time, err error) {
	for i, a := range articles {
		if a.PublishedAt.IsZero() {
			return first, last, fmt.Errorf("%w: %q", ErrMissingTimestamp, a.Title)
		}
		p := a.PublishedAt.UTC()
		if i == 0 || p.Before(first) {
			first = p
		}
		if i == 0 || p.After(last) {
			last = p
		}
	}
	return first, last, nil
}

// counter tallies strings, remembering first-seen order for ties.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(s string) {
	if _, ok := c.counts[s]; !ok {
		c.order = append(c.order, s)
	}
	c.counts[s]++
}

// top returns up to n entries by descending count. n <= 0 means all.
func (c *counter) top(n int) []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	sort.SliceStable(out, func(i, j int) bool {
		return c.counts[out[i]] > c.counts[out[j]]
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Title names the trend after the three most frequent title words longer
// than three characters. When no word qualifies the first title is used,
// clipped to 50 characters.
func Title(articles []*model.Article) string {
	c := newCounter()
	for _, a := range articles {
		for _, w := range textutil.Words(a.Title) {
			if utf8.RuneCountInString(w) <= 3 || textutil.IsTitleStopWord(w) {
				continue
			}
			c.add(w)
		}
	}

	words := c.top(titleWords)
	if len(words) == 0 {
		return textutil.Clip(articles[0].Title, titleFallbackLen)
	}
	return textutil.TitleCase(strings.Join(words, " "))
}

// Description is the most recent article's description, clipped to 200
// characters, or a synthesized line when that article has none.
func Description(articles []*model.Article, title string) string {
	latest := articles[0]
	for _, a := range articles[1:] {
		if a.PublishedAt.After(latest.PublishedAt) {
			latest = a
		}
	}
	desc := strings.TrimSpace(latest.Description)
	if desc == "" {
		return "Trending story: " + title
	}
	return textutil.Clip(desc, descriptionLen)
}

// Keywords ranks the union of article keywords by frequency.
func Keywords(articles []*model.Article, max int) []string {
	c := newCounter()
	for _, a := range articles {
		for _, k := range a.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				c.add(k)
			}
		}
	}
	return c.top(max)
}

// Category is the majority article category. Uncategorized articles vote
// for general.
func Category(articles []*model.Article) model.Category {
	c := newCounter()
	for _, a := range articles {
		cat := a.Category
		if cat == "" {
			cat = model.CategoryGeneral
		}
		c.add(string(cat))
	}
	return model.Category(c.top(1)[0])
}

// ID hashes the five leading keywords, sorted, with the first article's id.
// An article without an id contributes its title.
func ID(keywords []string, first *model.Article) string {
	top := keywords
	if len(top) > idKeywords {
		top = top[:idKeywords]
	}
	sorted := append([]string(nil), top...)
	sort.Strings(sorted)

	anchor := first.ID
	if anchor == "" {
		anchor = first.Title
	}
	sum := md5.Sum([]byte(strings.Join(sorted, "_") + "_" + anchor))
	return hex.EncodeToString(sum[:])
}

// SourceLinks lists the distinct article URLs in article order.
func SourceLinks(articles []*model.Article) []string {
	seen := make(map[string]bool, len(articles))
	var links []string
	for _, a := range articles {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		links = append(links, a.URL)
	}
	return links
}
