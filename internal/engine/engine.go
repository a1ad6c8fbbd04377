// Package engine runs detection cycles: fetch, filter, detect, validate and
// persist. A background loop repeats cycles on an interval.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/trendwatch/internal/cluster"
	"github.com/abelbrown/trendwatch/internal/filter"
	"github.com/abelbrown/trendwatch/internal/logging"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/otel"
	"github.com/abelbrown/trendwatch/internal/trend"
	"github.com/abelbrown/trendwatch/internal/validate"
)

// articleSource interface for dependency injection (testing).
type articleSource interface {
	FetchAll(ctx context.Context, sources []*model.NewsSource) ([]*model.Article, error)
}

// trendStore persists validated trends. Optional.
type trendStore interface {
	SaveTrend(ctx context.Context, cycleID string, t *model.Trend, r *model.ValidationResult) error
}

// Options selects what a cycle ingests and reports.
type Options struct {
	Sources        []*model.NewsSource
	MinReliability float64
	MaxAge         time.Duration // 0 keeps every age; the detector window still applies
	Topics         []string      // empty keeps every category
}

// CycleReport summarizes one cycle. Trends and Results are index-aligned.
type CycleReport struct {
	ID               string
	Started          time.Time
	Duration         time.Duration
	Fetched          int
	ArticlesRejected int // malformed, duplicate, unreliable, stale or failed validation
	ArticlesKept     int
	Strategy         cluster.Strategy
	Trends           []*model.Trend
	Results          []*model.ValidationResult
	Accepted         int
	StoreErrors      int
}

// Engine wires the pipeline stages together. Cycles are serialized.
type Engine struct {
	fetcher  articleSource
	detector *trend.Detector
	pipeline *validate.Pipeline
	store    trendStore
	events   *otel.Logger
	opts     Options
	now      func() time.Time
	onStart  func(cycleID string)

	cycleMu sync.Mutex
	wg      sync.WaitGroup
}

// New creates an Engine. store and events may be nil.
func New(f articleSource, d *trend.Detector, p *validate.Pipeline, s trendStore, opts Options, events *otel.Logger) *Engine {
	sources := make([]*model.NewsSource, len(opts.Sources))
	copy(sources, opts.Sources)
	opts.Sources = sources

	return &Engine{
		fetcher:  f,
		detector: d,
		pipeline: p,
		store:    s,
		events:   events,
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock overrides the time used for age filtering.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// SetCycleHook registers fn to be called as each fetching cycle begins.
func (e *Engine) SetCycleHook(fn func(cycleID string)) { e.onStart = fn }

// RunCycle fetches every configured source and processes the batch. An
// error is returned only when fetching failed entirely or ctx ended.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	cycleID := uuid.NewString()
	started := time.Now()
	if e.onStart != nil {
		e.onStart(cycleID)
	}
	e.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleStart, Comp: "engine", CycleID: cycleID, Count: len(e.opts.Sources)})

	articles, err := e.fetcher.FetchAll(ctx, e.opts.Sources)
	if err != nil {
		e.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindCycleComplete, Comp: "engine", CycleID: cycleID, Dur: time.Since(started), Err: err.Error()})
		return &CycleReport{ID: cycleID, Started: started, Duration: time.Since(started)}, fmt.Errorf("fetch: %w", err)
	}

	return e.process(ctx, cycleID, started, articles)
}

// Process runs the cycle stages after fetching over a caller-supplied
// batch.
func (e *Engine) Process(ctx context.Context, articles []*model.Article) (*CycleReport, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	return e.process(ctx, uuid.NewString(), time.Now(), articles)
}

func (e *Engine) process(ctx context.Context, cycleID string, started time.Time, articles []*model.Article) (*CycleReport, error) {
	rep := &CycleReport{
		ID:      cycleID,
		Started: started,
		Fetched: len(articles),
		Trends:  []*model.Trend{},
		Results: []*model.ValidationResult{},
	}
	finish := func(err error) (*CycleReport, error) {
		rep.Duration = time.Since(started)
		ev := otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleComplete, Comp: "engine", CycleID: cycleID, Dur: rep.Duration, Count: len(rep.Trends),
			Extra: map[string]any{"accepted": rep.Accepted, "kept": rep.ArticlesKept, "fetched": rep.Fetched}}
		if err != nil {
			ev.Level = otel.LevelError
			ev.Err = err.Error()
		}
		e.events.Emit(ev)
		return rep, err
	}

	kept := e.prepare(ctx, articles)
	rep.ArticlesKept = len(kept)
	rep.ArticlesRejected = len(articles) - len(kept)

	det, err := e.detector.Detect(ctx, kept)
	if err != nil {
		return finish(err)
	}
	rep.Strategy = det.Strategy

	trends := filter.ByTopics(det.Trends, e.opts.Topics)
	for _, t := range trends {
		t.SourceLinks = trend.SourceLinks(t.Articles)
	}

	results := e.pipeline.ValidateAll(ctx, trends)
	for i, t := range trends {
		if results[i].IsValid {
			rep.Accepted++
		}
		if e.store == nil {
			continue
		}
		if err := e.store.SaveTrend(ctx, cycleID, t, results[i]); err != nil {
			rep.StoreErrors++
			logging.Warn("save trend failed", "trend", t.ID, "err", err)
			e.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Comp: "engine", CycleID: cycleID, TrendID: t.ID, Err: err.Error()})
		}
	}
	rep.Trends = trends
	rep.Results = results

	logging.Info("cycle complete", "cycle", cycleID, "fetched", rep.Fetched, "kept", rep.ArticlesKept, "trends", len(trends), "accepted", rep.Accepted)
	return finish(ctx.Err())
}

// prepare drops malformed, duplicate, unreliable, stale and invalid
// articles, in that order. Article validation rewrites each kept
// article's reliability score.
func (e *Engine) prepare(ctx context.Context, articles []*model.Article) []*model.Article {
	kept, rejected := filter.Sanitize(articles)
	for _, r := range rejected {
		e.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindArticleReject, Comp: "engine", Source: r.Article.SourceName(), Err: r.Err.Error()})
	}
	kept = filter.Dedup(kept)
	kept = filter.ByReliability(kept, e.opts.MinReliability)
	if e.opts.MaxAge > 0 {
		kept = filter.ByAge(kept, e.opts.MaxAge, e.now())
	}

	valid := make([]*model.Article, 0, len(kept))
	for _, a := range kept {
		if e.pipeline.ValidateArticle(ctx, a).IsValid {
			valid = append(valid, a)
		}
	}
	return valid
}

// Start runs a cycle immediately, then every interval until ctx is
// cancelled. onCycle, if non-nil, receives each outcome on the loop
// goroutine.
func (e *Engine) Start(ctx context.Context, interval time.Duration, onCycle func(*CycleReport, error)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		run := func() {
			rep, err := e.RunCycle(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logging.Error("cycle failed", "err", err)
			}
			if onCycle != nil {
				onCycle(rep, err)
			}
		}

		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (e *Engine) Wait() {
	e.wg.Wait()
}
