package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/store"
)

func fixtures() ([]*model.Trend, []*model.ValidationResult) {
	trends := []*model.Trend{
		{ID: "a", Title: "Hurricane Milton Makes Landfall", ArticleCount: 5, SourceCount: 4, TrendScore: 0.81, ConfidenceScore: 0.61,
			Signals: map[string]float64{"volume": 0.5, "spread": 0.8, "reliability": 0.9, "recency": 0.97}},
		{ID: "b", Title: "Celebrity Rumor", ArticleCount: 3, SourceCount: 1, TrendScore: 0.4, ConfidenceScore: 0.1},
	}
	results := []*model.ValidationResult{
		{TrendID: "a", IsValid: true, ConfidenceScore: 0.61, Issues: []string{}},
		{TrendID: "b", IsValid: false, ConfidenceScore: 0.1, Issues: []string{"Insufficient sources: 1 < 2"}},
	}
	return trends, results
}

func TestRender(t *testing.T) {
	trends, results := fixtures()
	var buf bytes.Buffer
	if err := Render(&buf, trends, results); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"TREND", "Hurricane Milton Makes Landfall", "0.81", "accepted", "rejected", "Insufficient sources: 1 < 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "RECENT") || !strings.Contains(out, "0.97") {
		t.Errorf("signal columns missing:\n%s", out)
	}
	if strings.Index(out, "Hurricane") > strings.Index(out, "Celebrity") {
		t.Error("rows should keep rank order")
	}
}

func TestSignal(t *testing.T) {
	tr := &model.Trend{Signals: map[string]float64{"volume": 0.25}}
	if got := signal(tr, "volume"); got != "0.25" {
		t.Errorf("signal(volume) = %q", got)
	}
	if got := signal(tr, "recency"); got != "-" {
		t.Errorf("missing signal = %q, want -", got)
	}
	if got := signal(&model.Trend{}, "volume"); got != "-" {
		t.Errorf("nil signals = %q, want -", got)
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, nil, nil)
	if !strings.Contains(buf.String(), "No trends detected.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		r    *model.ValidationResult
		want string
	}{
		{nil, "unchecked"},
		{&model.ValidationResult{IsValid: true}, "accepted"},
		{&model.ValidationResult{DuplicateCheck: true}, "duplicate"},
		{&model.ValidationResult{}, "rejected"},
	}
	for _, tt := range tests {
		if got := Verdict(tt.r); got != tt.want {
			t.Errorf("Verdict(%+v) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	trends, results := fixtures()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, trends, results[:1]); err != nil {
		t.Fatal(err)
	}

	var got []struct {
		Rank       int              `json:"rank"`
		Trend      map[string]any   `json:"trend"`
		Validation *json.RawMessage `json:"validation"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 2 || got[0].Rank != 1 || got[1].Rank != 2 {
		t.Fatalf("entries = %+v", got)
	}
	if got[0].Trend["id"] != "a" || got[0].Validation == nil {
		t.Error("first entry should carry its validation")
	}
	if got[1].Validation != nil {
		t.Error("missing result should be omitted")
	}
}

func TestRenderHistory(t *testing.T) {
	recs := []store.TrendRecord{{
		Trend:       model.Trend{Title: "Stored Trend", Category: model.CategoryScience, ArticleCount: 4},
		IsValid:     true,
		Confidence:  0.7,
		Issues:      []string{"Low fact-check confidence"},
		ValidatedAt: time.Now(),
	}}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, recs); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Stored Trend", "science", "accepted", "Low fact-check confidence"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("history missing %q", want)
		}
	}

	buf.Reset()
	RenderHistory(&buf, nil)
	if !strings.Contains(buf.String(), "No stored trends.") {
		t.Errorf("got %q", buf.String())
	}
}
