package ranking

import "github.com/abelbrown/trendwatch/internal/model"

// Composite combines scorers as a weighted sum, clamped to [0,1].
// Weights are absolute, not normalized: 0.3 + 0.3 + 0.2 + 0.2 reads as
// written.
type Composite struct {
	name    string
	scorers []Scorer
	weights []float64
}

// NewComposite creates an empty composite scorer.
func NewComposite(name string) *Composite {
	return &Composite{name: name}
}

// Add adds a scorer with a weight.
func (c *Composite) Add(s Scorer, weight float64) *Composite {
	c.scorers = append(c.scorers, s)
	c.weights = append(c.weights, weight)
	return c
}

func (c *Composite) Name() string { return c.name }

func (c *Composite) Score(t *model.Trend, ctx *Context) float64 {
	var sum float64
	for i, s := range c.scorers {
		sum += clamp(s.Score(t, ctx)) * c.weights[i]
	}
	return clamp(sum)
}

// Breakdown returns each component score by name, before weighting.
func (c *Composite) Breakdown(t *model.Trend, ctx *Context) map[string]float64 {
	out := make(map[string]float64, len(c.scorers))
	for _, s := range c.scorers {
		out[s.Name()] = clamp(s.Score(t, ctx))
	}
	return out
}
