// Package ranking scores trends and orders them for output.
//
// Scorers are stateless functions: (trend, context) -> score in [0,1].
// A Composite combines them with fixed weights. Engine wires the two
// composites used by trend detection: significance and pre-validation
// confidence.
package ranking

import (
	"sort"
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
)

// Scorer scores a trend from its articles.
// Implementations should be stateless and thread-safe.
type Scorer interface {
	// Name returns a unique identifier for this scorer
	Name() string

	// Score returns a value in [0, 1]
	Score(t *model.Trend, ctx *Context) float64
}

// Context provides data scorers may need.
type Context struct {
	Now         time.Time // reference time for recency decay
	WindowHours float64   // recency horizon
}

// NewContext creates a context anchored at now.
func NewContext(now time.Time, windowHours float64) *Context {
	return &Context{Now: now, WindowHours: windowHours}
}

// Rank orders trends by descending trend score. Equal scores keep their
// input order.
func Rank(trends []*model.Trend) {
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].TrendScore > trends[j].TrendScore
	})
}

// TopN returns at most n trends from an already ranked list.
func TopN(trends []*model.Trend, n int) []*model.Trend {
	if n <= 0 || len(trends) <= n {
		return trends
	}
	return trends[:n]
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
