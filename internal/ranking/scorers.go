package ranking

import (
	"math"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

// VolumeScorer saturates at Saturation articles.
type VolumeScorer struct {
	Saturation float64
}

func NewVolumeScorer() *VolumeScorer { return &VolumeScorer{Saturation: 10} }

func (s *VolumeScorer) Name() string { return "volume" }

func (s *VolumeScorer) Score(t *model.Trend, _ *Context) float64 {
	return saturate(float64(len(t.Articles)), s.Saturation)
}

// SpreadScorer saturates at Saturation distinct sources.
type SpreadScorer struct {
	Saturation float64
}

// NewSpreadScorer returns a source-diversity scorer. Significance saturates
// at 5 sources, confidence at 3.
func NewSpreadScorer(saturation float64) *SpreadScorer {
	return &SpreadScorer{Saturation: saturation}
}

func (s *SpreadScorer) Name() string { return "spread" }

func (s *SpreadScorer) Score(t *model.Trend, _ *Context) float64 {
	return saturate(float64(model.DistinctSources(t.Articles)), s.Saturation)
}

// ReliabilityScorer is the mean article reliability score.
type ReliabilityScorer struct{}

func NewReliabilityScorer() *ReliabilityScorer { return &ReliabilityScorer{} }

func (s *ReliabilityScorer) Name() string { return "reliability" }

func (s *ReliabilityScorer) Score(t *model.Trend, _ *Context) float64 {
	return AvgReliability(t.Articles)
}

// RecencyScorer decays linearly from 1 at publication to 0 at the end of
// the window, averaged over articles.
type RecencyScorer struct{}

func NewRecencyScorer() *RecencyScorer { return &RecencyScorer{} }

func (s *RecencyScorer) Name() string { return "recency" }

func (s *RecencyScorer) Score(t *model.Trend, ctx *Context) float64 {
	if len(t.Articles) == 0 || ctx.WindowHours <= 0 {
		return 0
	}
	var sum float64
	for _, a := range t.Articles {
		hours := ctx.Now.Sub(a.PublishedAt).Hours()
		if hours < 0 {
			hours = 0 // future-dated items treated as brand new
		}
		sum += math.Max(0, 1-hours/ctx.WindowHours)
	}
	return sum / float64(len(t.Articles))
}

// SimilarityScorer is the mean pairwise Jaccard similarity of lower-cased
// title word sets. A single article is perfectly similar to itself.
type SimilarityScorer struct{}

func NewSimilarityScorer() *SimilarityScorer { return &SimilarityScorer{} }

func (s *SimilarityScorer) Name() string { return "title_similarity" }

func (s *SimilarityScorer) Score(t *model.Trend, _ *Context) float64 {
	n := len(t.Articles)
	if n < 2 {
		return 1
	}
	sets := make([]map[string]struct{}, n)
	for i, a := range t.Articles {
		sets[i] = textutil.FieldSet(a.Title)
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += textutil.Jaccard(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// AvgReliability is the mean reliability score, 0 for no articles.
func AvgReliability(articles []*model.Article) float64 {
	if len(articles) == 0 {
		return 0
	}
	var sum float64
	for _, a := range articles {
		sum += a.ReliabilityScore
	}
	return sum / float64(len(articles))
}

func saturate(v, at float64) float64 {
	if at <= 0 {
		return 0
	}
	return math.Min(1, v/at)
}
