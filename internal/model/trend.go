package model

import "time"

// Trend is a cluster of articles judged to report the same story.
type Trend struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Keywords    []string   `json:"keywords"`
	Articles    []*Article `json:"articles"`
	Category    Category   `json:"category"`

	ArticleCount    int     `json:"article_count"`
	SourceCount     int     `json:"source_count"`
	TrendScore      float64 `json:"trend_score"`
	ConfidenceScore float64 `json:"confidence_score"`

	// Unweighted components of TrendScore, keyed by scorer name.
	Signals map[string]float64 `json:"signals,omitempty"`

	FirstSeen     time.Time `json:"first_seen"`
	LastUpdated   time.Time `json:"last_updated"`
	DurationHours float64   `json:"duration_hours"`

	// Filled by the summarization collaborator.
	Summary     string   `json:"summary,omitempty"`
	KeyFacts    []string `json:"key_facts,omitempty"`
	SourceLinks []string `json:"source_links,omitempty"`
}

// SourceNames returns the distinct source names in first-seen order.
func (t *Trend) SourceNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range t.Articles {
		n := a.SourceName()
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
