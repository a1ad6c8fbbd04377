// Package filter provides pure filter functions for articles and trends.
// All functions are simple: slice in, slice out. No side effects, and the
// input order is preserved.
package filter

import (
	"strings"
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
)

// commonPrefixes are prefixes commonly used in news titles that should be
// ignored when comparing titles for deduplication.
var commonPrefixes = []string{
	"breaking:",
	"update:",
	"updated:",
	"exclusive:",
	"just in:",
	"developing:",
	"watch:",
	"live:",
	"opinion:",
	"analysis:",
}

// ByAge keeps articles published within window of now. An article exactly
// at the cutoff is kept.
func ByAge(articles []*model.Article, window time.Duration, now time.Time) []*model.Article {
	if len(articles) == 0 {
		return []*model.Article{}
	}

	cutoff := now.Add(-window)
	result := make([]*model.Article, 0, len(articles))
	for _, a := range articles {
		if !a.PublishedAt.Before(cutoff) {
			result = append(result, a)
		}
	}
	return result
}

// ByReliability keeps articles whose reliability score is at least min.
func ByReliability(articles []*model.Article, min float64) []*model.Article {
	result := make([]*model.Article, 0, len(articles))
	for _, a := range articles {
		if a.ReliabilityScore >= min {
			result = append(result, a)
		}
	}
	return result
}

// Rejected pairs a malformed article with the reason it was dropped.
type Rejected struct {
	Article *model.Article
	Err     error
}

// Sanitize splits articles into well-formed records and rejects. A bad
// record never affects the others. Nil entries are skipped silently.
func Sanitize(articles []*model.Article) ([]*model.Article, []Rejected) {
	kept := make([]*model.Article, 0, len(articles))
	var rejected []Rejected
	for _, a := range articles {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			rejected = append(rejected, Rejected{Article: a, Err: err})
			continue
		}
		kept = append(kept, a)
	}
	return kept, rejected
}

// normalizeTitle lower-cases a title and strips one common news prefix.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimSpace(strings.TrimPrefix(normalized, prefix))
			break
		}
	}
	return normalized
}

// Dedup removes articles with a repeated URL or a repeated normalized
// title. First occurrence wins.
//
// Syndicated copies of one wire story would otherwise inflate article
// counts without adding a source.
func Dedup(articles []*model.Article) []*model.Article {
	if len(articles) == 0 {
		return []*model.Article{}
	}

	seenURLs := make(map[string]bool)
	seenTitles := make(map[string]bool)
	result := make([]*model.Article, 0, len(articles))

	for _, a := range articles {
		if a.URL != "" && seenURLs[a.URL] {
			continue
		}
		title := normalizeTitle(a.Title)
		if title != "" && seenTitles[title] {
			continue
		}

		if a.URL != "" {
			seenURLs[a.URL] = true
		}
		if title != "" {
			seenTitles[title] = true
		}
		result = append(result, a)
	}
	return result
}

// ByTopics keeps trends whose category is one of topics. An empty topic
// list keeps everything.
func ByTopics(trends []*model.Trend, topics []string) []*model.Trend {
	if len(topics) == 0 {
		return trends
	}
	allowed := make(map[model.Category]bool, len(topics))
	for _, t := range topics {
		allowed[model.ParseCategory(t)] = true
	}

	result := make([]*model.Trend, 0, len(trends))
	for _, t := range trends {
		if allowed[t.Category] {
			result = append(result, t)
		}
	}
	return result
}
