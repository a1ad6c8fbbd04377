// Package validate decides whether a detected trend is trustworthy enough
// to publish.
//
// A trend passes through four stages in a fixed order: cross-reference,
// fact-check, duplicate detection and content filter. Each stage reports a
// score and issues; a stage that errors or panics is recorded as failed
// with score 0 and the remaining stages still run. The verdict always
// comes back as a ValidationResult.
package validate

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/trendwatch/internal/logging"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/otel"
)

// Config holds the validation settings.
type Config struct {
	CrossReferenceThreshold int
	FactCheckEnabled        bool
	DuplicateDetection      bool
	BlockedKeywords         []string
	SensitiveTopics         []string
	Concurrency             int
	Timeout                 time.Duration
}

// DefaultConfig matches the default configuration.
func DefaultConfig() Config {
	return Config{
		CrossReferenceThreshold: 2,
		FactCheckEnabled:        true,
		DuplicateDetection:      true,
		Concurrency:             4,
		Timeout:                 10 * time.Second,
	}
}

const (
	minTrendConfidence   = 0.5
	minArticleConfidence = 0.4
	minCrossReference    = 0.3
)

// Pipeline validates trends and articles. The checker and fingerprint
// store are the only state shared between concurrent validations.
type Pipeline struct {
	cfg     Config
	checker FactChecker
	prints  FingerprintStore
	events  *otel.Logger
	now     func() time.Time
}

// New creates a Pipeline using the offline Heuristic checker and no
// fingerprint store.
func New(cfg Config) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{cfg: cfg, checker: Heuristic{}, now: time.Now}
}

// SetChecker replaces the fact checker.
func (p *Pipeline) SetChecker(c FactChecker) { p.checker = c }

// SetFingerprints enables cross-run duplicate detection.
func (p *Pipeline) SetFingerprints(s FingerprintStore) { p.prints = s }

// SetEvents attaches an event log.
func (p *Pipeline) SetEvents(l *otel.Logger) { p.events = l }

// SetClock overrides the validation timestamp source.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// ValidateTrend runs the four stages in order and aggregates them. The
// trend's ConfidenceScore is replaced with the validated confidence.
// Accepted trends have their fingerprint remembered.
func (p *Pipeline) ValidateTrend(ctx context.Context, t *model.Trend) *model.ValidationResult {
	start := time.Now()
	fp := Fingerprint(t)

	stages := []StageResult{
		run(ctx, StageCrossReference, func() (StageResult, error) {
			return crossReference(t, p.cfg.CrossReferenceThreshold)
		}),
		run(ctx, StageFactCheck, func() (StageResult, error) {
			return factCheck(ctx, t, p.checker, p.cfg.FactCheckEnabled)
		}),
		run(ctx, StageDuplicate, func() (StageResult, error) {
			return duplicate(ctx, t, fp, p.prints, p.cfg.DuplicateDetection)
		}),
		run(ctx, StageContentFilter, func() (StageResult, error) {
			return contentFilter(trendText(t), p.cfg.BlockedKeywords, p.cfg.SensitiveTopics)
		}),
	}

	res := &model.ValidationResult{
		TrendID:     t.ID,
		Fingerprint: fp,
		Issues:      []string{},
		ValidatedAt: p.now().UTC(),
	}
	xref, fact, dup, filter := stages[0], stages[1], stages[2], stages[3]
	res.CrossReferenceScore = xref.Score
	res.FactCheckScore = fact.Score
	res.DuplicateCheck = dup.Flag
	res.ContentFilter = filter.Flag && filter.Status != model.StageFailed

	for _, s := range stages {
		res.Issues = append(res.Issues, s.Issues...)
		res.Stages = append(res.Stages, s.Report())
		if s.Status == model.StageFailed {
			logging.Warn("validation stage failed", "trend", t.ID, "stage", s.Stage, "err", s.Err)
			p.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStageFailed, Comp: "validate",
				TrendID: t.ID, Msg: s.Stage, Err: s.Err.Error()})
		}
	}

	res.ConfidenceScore = trendConfidence(res)
	res.IsValid = res.ContentFilter &&
		res.ConfidenceScore >= minTrendConfidence &&
		!res.DuplicateCheck &&
		res.CrossReferenceScore >= minCrossReference

	t.ConfidenceScore = res.ConfidenceScore

	if res.IsValid && p.prints != nil {
		if err := p.prints.Remember(ctx, fp, t.ID); err != nil {
			logging.Warn("failed to remember fingerprint", "trend", t.ID, "err", err)
		}
	}

	logging.Debug("trend validated", "trend", t.ID, "valid", res.IsValid,
		"confidence", res.ConfidenceScore, "issues", len(res.Issues))
	p.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindValidateComplete, Comp: "validate",
		TrendID: t.ID, Dur: time.Since(start), Score: res.ConfidenceScore, Count: len(res.Issues),
		Extra: map[string]any{"valid": res.IsValid}})
	return res
}

// trendConfidence weights cross-reference and fact-check, applies the
// filter and duplicate penalties, then subtracts 0.05 per issue up to 0.2.
func trendConfidence(r *model.ValidationResult) float64 {
	score := r.CrossReferenceScore * 0.4
	if r.FactCheckScore > 0 {
		score += r.FactCheckScore * 0.3
	}
	if !r.ContentFilter {
		score *= 0.5
	}
	if r.DuplicateCheck {
		score *= 0.3
	}
	return clamp(score - issuePenalty(len(r.Issues)))
}

func issuePenalty(n int) float64 {
	return math.Min(0.2, float64(n)*0.05)
}

// ValidateArticle scores one article from its source and the content
// filter. The article's ReliabilityScore is replaced with the resulting
// confidence.
func (p *Pipeline) ValidateArticle(ctx context.Context, a *model.Article) *model.ArticleValidation {
	res := &model.ArticleValidation{
		ArticleID:   a.ID,
		Issues:      []string{},
		ValidatedAt: p.now().UTC(),
	}

	score := sourceReliability(a)
	if score < 0.5 {
		res.Issues = append(res.Issues, "Low source reliability score")
	}
	if a.Source != nil && !a.Source.IsActive {
		res.Issues = append(res.Issues, "Source is marked as inactive")
		score *= 0.5
	}
	res.SourceReliability = score

	filter := run(ctx, StageContentFilter, func() (StageResult, error) {
		return contentFilter(articleText(a), p.cfg.BlockedKeywords, p.cfg.SensitiveTopics)
	})
	res.ContentFilter = filter.Flag && filter.Status != model.StageFailed
	res.Issues = append(res.Issues, filter.Issues...)

	conf := score * 0.7
	if !res.ContentFilter {
		conf *= 0.5
	}
	res.ConfidenceScore = clamp(conf - issuePenalty(len(res.Issues)))
	res.IsValid = res.ContentFilter && res.ConfidenceScore >= minArticleConfidence

	a.ReliabilityScore = res.ConfidenceScore
	return res
}

// ValidateAll validates trends concurrently, each under its own timeout.
// Results are returned in input order.
func (p *Pipeline) ValidateAll(ctx context.Context, trends []*model.Trend) []*model.ValidationResult {
	results := make([]*model.ValidationResult, len(trends))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, t := range trends {
		i, t := i, t
		g.Go(func() error {
			tctx := ctx
			if p.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
				defer cancel()
			}
			results[i] = p.ValidateTrend(tctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
