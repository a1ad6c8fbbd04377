package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
)

var (
	wire  = &model.NewsSource{Name: "Wire", ReliabilityScore: 0.9, IsActive: true}
	local = &model.NewsSource{Name: "Local", ReliabilityScore: 0.5, IsActive: true}
)

func art(id, title, url string, src *model.NewsSource, published time.Time) *model.Article {
	return &model.Article{
		ID:               id,
		Title:            title,
		URL:              url,
		Source:           src,
		PublishedAt:      published,
		ReliabilityScore: src.ReliabilityScore,
	}
}

func TestByAge(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	articles := []*model.Article{
		art("1", "Recent", "https://a/1", wire, now.Add(-1*time.Hour)),
		art("2", "Old", "https://a/2", wire, now.Add(-48*time.Hour)),
		art("3", "At cutoff", "https://a/3", wire, now.Add(-24*time.Hour)),
		art("4", "Just past", "https://a/4", wire, now.Add(-24*time.Hour-time.Second)),
	}

	result := ByAge(articles, 24*time.Hour, now)

	if len(result) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result))
	}
	if result[0].ID != "1" || result[1].ID != "3" {
		t.Errorf("expected [1 3], got [%s %s]", result[0].ID, result[1].ID)
	}
}

func TestByAgeEmpty(t *testing.T) {
	result := ByAge(nil, time.Hour, time.Now())
	if result == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(result) != 0 {
		t.Errorf("expected 0 articles, got %d", len(result))
	}
}

func TestByReliability(t *testing.T) {
	now := time.Now()
	articles := []*model.Article{
		art("1", "A", "https://a/1", wire, now),
		art("2", "B", "https://a/2", local, now),
	}

	result := ByReliability(articles, 0.5)
	if len(result) != 2 {
		t.Errorf("threshold is inclusive: expected 2, got %d", len(result))
	}

	result = ByReliability(articles, 0.6)
	if len(result) != 1 || result[0].ID != "1" {
		t.Errorf("expected only article 1, got %d articles", len(result))
	}
}

func TestSanitize(t *testing.T) {
	now := time.Now()
	good := art("1", "Good", "https://a/1", wire, now)
	noTitle := art("2", "", "https://a/2", wire, now)
	noSource := art("3", "No source", "https://a/3", wire, now)
	noSource.Source = nil
	badSource := art("4", "Bad source", "https://a/4", &model.NewsSource{Name: "Odd", ReliabilityScore: 1.5}, now)
	badSource.ReliabilityScore = 0.9

	kept, rejected := Sanitize([]*model.Article{good, nil, noTitle, noSource, badSource})

	if len(kept) != 1 || kept[0] != good {
		t.Fatalf("expected only the good article kept, got %d", len(kept))
	}
	if len(rejected) != 3 {
		t.Fatalf("expected 3 rejected, got %d", len(rejected))
	}
	if !errors.Is(rejected[0].Err, model.ErrMissingTitle) {
		t.Errorf("rejected[0].Err = %v, want ErrMissingTitle", rejected[0].Err)
	}
	if !errors.Is(rejected[1].Err, model.ErrMissingSource) {
		t.Errorf("rejected[1].Err = %v, want ErrMissingSource", rejected[1].Err)
	}
	if !errors.Is(rejected[2].Err, model.ErrSourceReliabilityRange) {
		t.Errorf("rejected[2].Err = %v, want ErrSourceReliabilityRange", rejected[2].Err)
	}
}

func TestDedup(t *testing.T) {
	now := time.Now()
	articles := []*model.Article{
		art("1", "First Article", "https://example.com/article1", wire, now),
		art("2", "Second Article", "https://example.com/article2", wire, now),
		art("3", "Duplicate URL", "https://example.com/article1", local, now),
		art("4", "Third Article", "https://example.com/article3", wire, now),
	}

	result := Dedup(articles)

	if len(result) != 3 {
		t.Errorf("expected 3 articles, got %d", len(result))
	}

	ids := make(map[string]bool)
	for _, a := range result {
		ids[a.ID] = true
	}
	if !ids["1"] {
		t.Error("expected article 1 (first occurrence) to be kept")
	}
	if ids["3"] {
		t.Error("expected article 3 (duplicate URL) to be filtered out")
	}
}

func TestDedupSimilarTitles(t *testing.T) {
	now := time.Now()
	articles := []*model.Article{
		art("1", "Major Event Happens Today", "https://site1.com/event", wire, now),
		art("2", "Breaking: Major Event Happens Today", "https://site2.com/event", wire, now),
		art("3", "UPDATE: Major Event Happens Today", "https://site3.com/event", local, now),
		art("4", "Different Story", "https://site4.com/other", wire, now),
		art("5", "major event happens today", "https://site5.com/event2", local, now),
	}

	result := Dedup(articles)

	if len(result) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result))
	}
	if result[0].ID != "1" || result[1].ID != "4" {
		t.Errorf("expected [1 4], got [%s %s]", result[0].ID, result[1].ID)
	}
}

func TestDedupEmpty(t *testing.T) {
	result := Dedup(nil)
	if result == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"BREAKING: Major News", "major news"},
		{"Update: Story Develops", "story develops"},
		{"  Whitespace  ", "whitespace"},
		{"EXCLUSIVE: Big Story", "big story"},
		{"", ""},
	}

	for _, tc := range tests {
		result := normalizeTitle(tc.input)
		if result != tc.expected {
			t.Errorf("normalizeTitle(%q) = %q, expected %q", tc.input, result, tc.expected)
		}
	}
}

func TestByTopics(t *testing.T) {
	trends := []*model.Trend{
		{ID: "a", Category: model.CategoryTechnology},
		{ID: "b", Category: model.CategorySports},
		{ID: "c", Category: model.CategoryGeneral},
	}

	if got := ByTopics(trends, nil); len(got) != 3 {
		t.Errorf("empty topics should keep all, got %d", len(got))
	}

	got := ByTopics(trends, []string{"Technology", "sports"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("unexpected trends: %d", len(got))
	}
}
