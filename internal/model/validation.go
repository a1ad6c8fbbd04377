package model

import "time"

// StageStatus distinguishes a stage that ran from one that was turned off
// or broke.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

// StageReport records the outcome of one validation stage.
type StageReport struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Score  float64     `json:"score"`
	Err    string      `json:"err,omitempty"`
}

// ValidationResult is the verdict for one trend. A fresh value is produced
// for every validation call.
type ValidationResult struct {
	TrendID             string        `json:"trend_id"`
	IsValid             bool          `json:"is_valid"`
	ConfidenceScore     float64       `json:"confidence_score"`
	CrossReferenceScore float64       `json:"cross_reference_score"`
	FactCheckScore      float64       `json:"fact_check_score"`
	DuplicateCheck      bool          `json:"duplicate_check"`
	ContentFilter       bool          `json:"content_filter"`
	Fingerprint         string        `json:"fingerprint,omitempty"`
	Issues              []string      `json:"issues"`
	Stages              []StageReport `json:"stages,omitempty"`
	ValidatedAt         time.Time     `json:"validated_at"`
}

// ArticleValidation is the verdict for a single article.
type ArticleValidation struct {
	ArticleID         string    `json:"article_id"`
	IsValid           bool      `json:"is_valid"`
	ConfidenceScore   float64   `json:"confidence_score"`
	SourceReliability float64   `json:"source_reliability"`
	ContentFilter     bool      `json:"content_filter"`
	Issues            []string  `json:"issues"`
	ValidatedAt       time.Time `json:"validated_at"`
}
