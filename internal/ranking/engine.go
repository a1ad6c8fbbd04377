package ranking

import (
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
)

// TrendScorer is the significance composite: volume, source spread,
// reliability and recency.
func TrendScorer() *Composite {
	return NewComposite("trend").
		Add(NewVolumeScorer(), 0.3).
		Add(NewSpreadScorer(5), 0.3).
		Add(NewReliabilityScorer(), 0.2).
		Add(NewRecencyScorer(), 0.2)
}

// ConfidenceScorer is the pre-validation trust composite: reliability,
// title agreement and source spread.
func ConfidenceScorer() *Composite {
	return NewComposite("confidence").
		Add(NewReliabilityScorer(), 0.4).
		Add(NewSimilarityScorer(), 0.3).
		Add(NewSpreadScorer(3), 0.3)
}

// Engine assigns both scores to built trends.
type Engine struct {
	windowHours float64
	trend       *Composite
	confidence  *Composite
}

// NewEngine creates an Engine with the default composites.
func NewEngine(windowHours float64) *Engine {
	return &Engine{
		windowHours: windowHours,
		trend:       TrendScorer(),
		confidence:  ConfidenceScorer(),
	}
}

// Apply scores t as of now. It writes the two scores and the trend
// score's per-signal breakdown.
func (e *Engine) Apply(t *model.Trend, now time.Time) {
	ctx := NewContext(now, e.windowHours)
	t.TrendScore = e.trend.Score(t, ctx)
	t.ConfidenceScore = e.confidence.Score(t, ctx)
	t.Signals = e.trend.Breakdown(t, ctx)
}
