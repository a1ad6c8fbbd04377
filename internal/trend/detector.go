package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/trendwatch/internal/cluster"
	"github.com/abelbrown/trendwatch/internal/filter"
	"github.com/abelbrown/trendwatch/internal/logging"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/otel"
	"github.com/abelbrown/trendwatch/internal/ranking"
)

// Options configures a Detector.
type Options struct {
	MinArticles int
	WindowHours int
	MaxKeywords int
	Cluster     cluster.Options
}

// DefaultOptions matches the default configuration.
func DefaultOptions() Options {
	return Options{
		MinArticles: 3,
		WindowHours: 24,
		MaxKeywords: 10,
		Cluster:     cluster.DefaultOptions(),
	}
}

// Detection is the outcome of one Detect call.
type Detection struct {
	Trends   []*model.Trend
	Input    int // articles offered
	Rejected int // malformed articles dropped
	Recent   int // articles inside the window
	Strategy cluster.Strategy
	Skipped  int // clusters whose trend could not be built
}

// Detector runs recency filtering, clustering, trend building and scoring.
// It holds no per-batch state and is safe for concurrent use.
type Detector struct {
	opts      Options
	clusterer *cluster.Clusterer
	builder   *Builder
	scorer    *ranking.Engine
	events    *otel.Logger
	now       func() time.Time
}

// NewDetector creates a Detector. events may be nil.
func NewDetector(opts Options, events *otel.Logger) *Detector {
	opts.Cluster.MinClusterSize = opts.MinArticles
	return &Detector{
		opts:      opts,
		clusterer: cluster.New(opts.Cluster),
		builder:   NewBuilder(opts.MinArticles, opts.MaxKeywords),
		scorer:    ranking.NewEngine(float64(opts.WindowHours)),
		events:    events,
		now:       time.Now,
	}
}

// SetClock overrides the reference time used for the window and recency.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// Detect returns trends ranked by descending trend score. Too few recent
// articles yields no trends and no error. Only cancellation is an error;
// it is checked between clusters.
func (d *Detector) Detect(ctx context.Context, articles []*model.Article) (Detection, error) {
	now := d.now()
	res := Detection{Input: len(articles), Trends: []*model.Trend{}}

	kept, rejected := filter.Sanitize(articles)
	res.Rejected = len(rejected)
	for _, r := range rejected {
		logging.Debug("article rejected", "title", r.Article.Title, "err", r.Err)
		d.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindArticleReject, Comp: "detect",
			Source: r.Article.SourceName(), Err: r.Err.Error()})
	}

	recent := filter.ByAge(kept, time.Duration(d.opts.WindowHours)*time.Hour, now)
	res.Recent = len(recent)
	if len(recent) < d.opts.MinArticles {
		logging.Info("not enough recent articles", "recent", len(recent), "min", d.opts.MinArticles)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	start := time.Now()
	cr := d.clusterer.Cluster(recent)
	res.Strategy = cr.Strategy
	d.emitCluster(cr, time.Since(start))

	for _, group := range cr.Groups {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		t, err := d.build(group)
		if err != nil {
			res.Skipped++
			logging.Warn("trend build failed", "articles", len(group), "err", err)
			d.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindTrendSkipped, Comp: "detect",
				Count: len(group), Err: err.Error()})
			continue
		}

		d.scorer.Apply(t, now)
		res.Trends = append(res.Trends, t)
		d.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindTrendBuilt, Comp: "detect",
			TrendID: t.ID, Count: t.ArticleCount, Score: t.TrendScore, Msg: t.Title})
	}

	ranking.Rank(res.Trends)
	logging.Info("trends detected", "trends", len(res.Trends), "strategy", cr.Strategy,
		"noise", cr.Noise, "skipped", res.Skipped)
	return res, nil
}

// build shields the batch from a panic inside one cluster's extraction.
func (d *Detector) build(group []*model.Article) (t *model.Trend, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("trend: build panic: %v", r)
		}
	}()
	return d.builder.Build(group)
}

func (d *Detector) emitCluster(cr cluster.Result, dur time.Duration) {
	ev := otel.Event{Level: otel.LevelInfo, Kind: otel.KindClusterPrimary, Comp: "detect",
		Dur: dur, Count: len(cr.Groups),
		Extra: map[string]any{"noise": cr.Noise, "dropped": cr.Dropped, "strategy": string(cr.Strategy)}}
	if cr.Strategy == cluster.StrategyTokenOverlap {
		ev.Kind = otel.KindClusterFallback
		if cr.Err != nil {
			ev.Err = cr.Err.Error()
		}
		logging.Debug("clustering fell back to token overlap", "err", cr.Err)
	}
	d.events.Emit(ev)
}
