package validate

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

const (
	insufficientSourcesScore = 0.3
	factCheckSample          = 3
	neutralScore             = 0.5
)

// crossReference rewards corroboration by independent, reliable sources.
func crossReference(t *model.Trend, threshold int) (StageResult, error) {
	if t.SourceCount < threshold {
		return completed(StageCrossReference, insufficientSourcesScore,
			fmt.Sprintf("Insufficient sources: %d < %d", t.SourceCount, threshold)), nil
	}
	if len(t.Articles) == 0 {
		return StageResult{}, fmt.Errorf("trend has no articles")
	}

	agreement := math.Min(1, float64(model.DistinctSources(t.Articles))/5)
	var rel float64
	for _, a := range t.Articles {
		rel += sourceReliability(a)
	}
	rel /= float64(len(t.Articles))

	res := completed(StageCrossReference, clamp(agreement*0.6+rel*0.4))
	if res.Score < 0.5 {
		res.Issues = append(res.Issues, "Low cross-reference confidence")
	}
	return res, nil
}

// factCheck averages the checker's verdicts over the first few articles.
// An unreachable checker yields a neutral score for that article.
func factCheck(ctx context.Context, t *model.Trend, checker FactChecker, enabled bool) (StageResult, error) {
	if !enabled || checker == nil {
		return skipped(StageFactCheck, neutralScore, "Fact-check disabled"), nil
	}

	sample := t.Articles
	if len(sample) > factCheckSample {
		sample = sample[:factCheckSample]
	}
	if len(sample) == 0 {
		return completed(StageFactCheck, neutralScore, "No fact-check results available"), nil
	}

	var res StageResult
	var sum float64
	for _, a := range sample {
		v, err := checker.Check(ctx, a)
		if err != nil {
			v = Verdict{Score: neutralScore, Issues: []string{"Fact-check unavailable: " + err.Error()}}
		}
		sum += clamp(v.Score)
		res.Issues = append(res.Issues, v.Issues...)
	}

	res.Status = model.StageCompleted
	res.Score = sum / float64(len(sample))
	if res.Score < 0.7 {
		res.Issues = append(res.Issues, "Low fact-check confidence")
	}
	return res, nil
}

// duplicate estimates how likely the trend repeats existing content. Score
// is the estimated similarity; Flag is set above 0.8.
func duplicate(ctx context.Context, t *model.Trend, fp string, store FingerprintStore, enabled bool) (StageResult, error) {
	if !enabled {
		return skipped(StageDuplicate, 0), nil
	}

	res := completed(StageDuplicate, 0)
	if len(textutil.FieldSet(t.Title)) < 3 {
		res.Issues = append(res.Issues, "Very short title - potential duplicate")
		res.Score = 0.8
	}
	if uniqueCount(t.Keywords) < 2 {
		res.Issues = append(res.Issues, "Very few unique keywords")
		res.Score = 0.7
	}

	if store != nil {
		seen, err := store.Seen(ctx, fp)
		if err != nil {
			return StageResult{}, fmt.Errorf("fingerprint lookup: %w", err)
		}
		if seen {
			res.Issues = append(res.Issues, "Fingerprint seen in a previous run")
			res.Score = 1
		}
	}

	if res.Score > 0.8 {
		res.Flag = true
		res.Issues = append(res.Issues, "High similarity to existing content")
	}
	return res, nil
}

// contentFilter fails on any blocked keyword and flags sensitive topics.
// Score is 1 when the filter passes.
func contentFilter(text string, blocked, sensitive []string) (StageResult, error) {
	res := completed(StageContentFilter, 1)
	res.Flag = true

	if found := textutil.ContainsAny(text, blocked); len(found) > 0 {
		res.Flag = false
		res.Score = 0
		res.Issues = append(res.Issues, "Blocked keywords found: "+strings.Join(found, ", "))
	}
	if found := textutil.ContainsAny(text, sensitive); len(found) > 0 {
		res.Issues = append(res.Issues, "Sensitive topics detected: "+strings.Join(found, ", "))
	}
	return res, nil
}

func trendText(t *model.Trend) string {
	return strings.ToLower(t.Title + " " + t.Description + " " + strings.Join(t.Keywords, " "))
}

func articleText(a *model.Article) string {
	return strings.ToLower(a.Title + " " + a.Description + " " + a.Content)
}

func uniqueCount(ss []string) int {
	seen := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		seen[s] = struct{}{}
	}
	return len(seen)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
