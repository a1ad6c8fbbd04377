package validate

import (
	"context"
	"fmt"

	"github.com/abelbrown/trendwatch/internal/model"
)

// Stage names, also used as the prefix of a failed stage's issue.
const (
	StageCrossReference = "Cross-reference"
	StageFactCheck      = "Fact-check"
	StageDuplicate      = "Duplicate detection"
	StageContentFilter  = "Content filter"
)

// StageResult is what one stage contributes to a verdict. Flag carries the
// stage's boolean outcome: duplicate for duplicate detection, passed for
// the content filter.
type StageResult struct {
	Stage  string
	Status model.StageStatus
	Score  float64
	Flag   bool
	Issues []string
	Err    error
}

func completed(stage string, score float64, issues ...string) StageResult {
	return StageResult{Stage: stage, Status: model.StageCompleted, Score: score, Issues: issues}
}

func skipped(stage string, score float64, issues ...string) StageResult {
	return StageResult{Stage: stage, Status: model.StageSkipped, Score: score, Issues: issues}
}

func failed(stage string, err error) StageResult {
	return StageResult{
		Stage:  stage,
		Status: model.StageFailed,
		Issues: []string{fmt.Sprintf("%s error: %v", stage, err)},
		Err:    err,
	}
}

// run executes one stage. An error or a panic becomes a failed result with
// score 0; it never escapes the pipeline. Once ctx is done the stage is
// not started and reports the context error.
func run(ctx context.Context, stage string, fn func() (StageResult, error)) (res StageResult) {
	if err := ctx.Err(); err != nil {
		return failed(stage, err)
	}
	defer func() {
		if r := recover(); r != nil {
			res = failed(stage, fmt.Errorf("panic: %v", r))
		}
	}()
	res, err := fn()
	if err != nil {
		return failed(stage, err)
	}
	res.Stage = stage
	return res
}

// Report converts the result for storage on a ValidationResult.
func (r StageResult) Report() model.StageReport {
	rep := model.StageReport{Stage: r.Stage, Status: r.Status, Score: r.Score}
	if r.Err != nil {
		rep.Err = r.Err.Error()
	}
	return rep
}
