// Package model defines the records that flow through trend detection:
// articles and their sources, trends, and validation results.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"
)

// Errors returned by Article.Validate for malformed records.
var (
	ErrMissingTitle           = errors.New("article: title is required")
	ErrMissingURL             = errors.New("article: url is required")
	ErrMissingPublished       = errors.New("article: published_at is required")
	ErrMissingSource          = errors.New("article: source with a name is required")
	ErrReliabilityRange       = errors.New("article: reliability_score must be within [0,1]")
	ErrSourceReliabilityRange = errors.New("article: source reliability_score must be within [0,1]")
)

// Article is a single news item. Fields other than ReliabilityScore are
// not modified after ingestion.
type Article struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Content     string      `json:"content,omitempty"`
	URL         string      `json:"url"`
	Source      *NewsSource `json:"source"`
	Category    Category    `json:"category"`
	PublishedAt time.Time   `json:"published_at"`
	Author      string      `json:"author,omitempty"`
	Language    string      `json:"language,omitempty"`

	WordCount   int      `json:"word_count,omitempty"`
	ReadingTime int      `json:"reading_time,omitempty"` // minutes
	Keywords    []string `json:"keywords"`

	ReliabilityScore    float64  `json:"reliability_score"`
	FactCheckScore      *float64 `json:"fact_check_score,omitempty"`
	CrossReferenceCount int      `json:"cross_reference_count,omitempty"`

	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
}

// Validate checks the fields every downstream stage depends on.
func (a *Article) Validate() error {
	switch {
	case a.Title == "":
		return ErrMissingTitle
	case a.URL == "":
		return ErrMissingURL
	case a.PublishedAt.IsZero():
		return ErrMissingPublished
	case a.Source == nil || a.Source.Name == "":
		return ErrMissingSource
	case a.ReliabilityScore < 0 || a.ReliabilityScore > 1:
		return ErrReliabilityRange
	case a.Source.ReliabilityScore < 0 || a.Source.ReliabilityScore > 1:
		return ErrSourceReliabilityRange
	}
	return nil
}

// SourceName returns the owning source's name, or "" when unset.
func (a *Article) SourceName() string {
	if a.Source == nil {
		return ""
	}
	return a.Source.Name
}

// ArticleID derives a stable id from the article link. Without a link the
// title and source name are hashed instead.
func ArticleID(link, title, sourceName string) string {
	key := link
	if key == "" {
		key = title + "_" + sourceName
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// DistinctSources counts distinct source names across articles.
func DistinctSources(articles []*Article) int {
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		seen[a.SourceName()] = struct{}{}
	}
	return len(seen)
}
