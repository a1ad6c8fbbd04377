package vectorize

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestFitTransformVocabulary(t *testing.T) {
	v := New(DefaultOptions())
	x, err := v.FitTransform([]string{
		"Storm hits coast",
		"storm hits coast again",
		"Election results",
	})
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	want := []string{"coast", "hits", "hits coast", "storm", "storm hits"}
	if !reflect.DeepEqual(v.Terms(), want) {
		t.Errorf("Terms = %v, want %v", v.Terms(), want)
	}

	r, c := x.Dims()
	if r != 3 || c != len(want) {
		t.Fatalf("dims = %dx%d, want 3x%d", r, c, len(want))
	}

	// Identical surviving terms produce identical unit rows.
	if !mat.EqualApprox(x.RowView(0), x.RowView(1), 1e-12) {
		t.Error("rows 0 and 1 should match")
	}
	if n := mat.Norm(x.RowView(0), 2); math.Abs(n-1) > 1e-12 {
		t.Errorf("row 0 norm = %v, want 1", n)
	}
	if n := mat.Norm(x.RowView(2), 2); n != 0 {
		t.Errorf("row 2 norm = %v, want 0 (no shared terms)", n)
	}
}

func TestFitTransformEmptyVocabulary(t *testing.T) {
	v := New(DefaultOptions())
	_, err := v.FitTransform([]string{"alpha bravo", "charlie delta", "echo foxtrot"})
	if !errors.Is(err, ErrEmptyVocabulary) {
		t.Errorf("err = %v, want ErrEmptyVocabulary", err)
	}

	_, err = v.FitTransform([]string{"the and of", "the and of"})
	if !errors.Is(err, ErrEmptyVocabulary) {
		t.Errorf("stop words only: err = %v, want ErrEmptyVocabulary", err)
	}

	if _, err := v.FitTransform(nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("nil docs: err = %v, want ErrNoDocuments", err)
	}
}

func TestMaxFeaturesKeepsMostFrequent(t *testing.T) {
	v := New(Options{MaxFeatures: 2, MinDF: 1, MaxNGram: 1})
	_, err := v.FitTransform([]string{"alpha beta", "alpha beta", "alpha gamma", "alpha gamma"})
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(v.Terms(), want) {
		t.Errorf("Terms = %v, want %v", v.Terms(), want)
	}
}

func TestIDFWeighting(t *testing.T) {
	v := New(Options{MinDF: 1, MaxNGram: 1})
	x, err := v.FitTransform([]string{"common rare", "common"})
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	// Columns: common, rare. "rare" has the higher idf, so it dominates row 0.
	if x.At(0, 1) <= x.At(0, 0) {
		t.Errorf("rare weight %v should exceed common weight %v", x.At(0, 1), x.At(0, 0))
	}
	if got := x.At(1, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("single-term row should be 1, got %v", got)
	}
}

func TestFitTransformDeterministic(t *testing.T) {
	docs := []string{"market rally stocks", "stocks rally again", "market rally continues", "weather report"}
	a, err := New(DefaultOptions()).FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	b, err := New(DefaultOptions()).FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Error("same input should produce the same matrix")
	}
}
