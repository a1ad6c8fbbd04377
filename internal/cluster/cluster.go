// Package cluster groups articles that report the same story.
//
// The primary strategy vectorizes each article (TF-IDF over title,
// description and keywords) and runs DBSCAN on cosine distance. When the
// batch cannot be vectorized, typically because no term occurs in two
// documents, articles are grouped by shared title words or keywords instead.
package cluster

import (
	"strings"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/vectorize"
)

// Strategy names the path that produced a Result.
type Strategy string

const (
	StrategyDensity      Strategy = "density"
	StrategyTokenOverlap Strategy = "token_overlap"
	StrategyTrivial      Strategy = "trivial" // fewer than two articles
)

// Options configures a Clusterer.
type Options struct {
	Eps            float64
	MinSamples     int
	MinClusterSize int
	Fallback       FallbackMode
	Vectorize      vectorize.Options
}

// DefaultOptions matches the default configuration.
func DefaultOptions() Options {
	return Options{
		Eps:            0.3,
		MinSamples:     2,
		MinClusterSize: 3,
		Fallback:       FallbackGreedy,
		Vectorize:      vectorize.DefaultOptions(),
	}
}

// Result is the outcome of one clustering pass.
type Result struct {
	Groups   [][]*model.Article
	Strategy Strategy
	Noise    int   // articles DBSCAN left unassigned
	Dropped  int   // groups discarded for being too small
	Err      error // vectorization error that forced the fallback
}

// Clusterer is stateless between calls and safe for concurrent use.
type Clusterer struct {
	opts Options
}

// New creates a Clusterer.
func New(opts Options) *Clusterer {
	if !opts.Fallback.Valid() {
		opts.Fallback = FallbackGreedy
	}
	if opts.MinSamples < 1 {
		opts.MinSamples = 1
	}
	return &Clusterer{opts: opts}
}

// Document is the text an article contributes to its vector.
func Document(a *model.Article) string {
	return a.Title + " " + a.Description + " " + strings.Join(a.Keywords, " ")
}

// Cluster groups articles. Groups smaller than MinClusterSize are dropped.
// The same input in the same order always yields the same groups.
func (c *Clusterer) Cluster(articles []*model.Article) Result {
	if len(articles) < 2 {
		return c.keep(Result{Strategy: StrategyTrivial}, [][]*model.Article{articles})
	}

	docs := make([]string, len(articles))
	for i, a := range articles {
		docs[i] = Document(a)
	}

	x, err := vectorize.New(c.opts.Vectorize).FitTransform(docs)
	if err != nil {
		res := Result{Strategy: StrategyTokenOverlap, Err: err}
		res.Groups = TokenOverlap(articles, c.opts.MinClusterSize, c.opts.Fallback)
		return res
	}

	labels := DBSCAN(CosineDistances(x), c.opts.Eps, c.opts.MinSamples)

	res := Result{Strategy: StrategyDensity}
	index := make(map[int]int)
	var groups [][]*model.Article
	for i, label := range labels {
		if label == Noise {
			res.Noise++
			continue
		}
		g, ok := index[label]
		if !ok {
			g = len(groups)
			index[label] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], articles[i])
	}
	return c.keep(res, groups)
}

func (c *Clusterer) keep(res Result, groups [][]*model.Article) Result {
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		if len(g) < c.opts.MinClusterSize {
			res.Dropped++
			continue
		}
		res.Groups = append(res.Groups, g)
	}
	return res
}
