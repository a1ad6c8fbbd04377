// Package vectorize turns article text into TF-IDF vectors.
//
// The vocabulary is learned from the batch being clustered: unigrams and
// bigrams of lower-cased tokens (two or more word characters, English stop
// words removed) that occur in at least MinDF documents. When MaxFeatures
// caps the vocabulary, the most frequent terms across the batch are kept,
// ties broken alphabetically. Rows are L2-normalized, so a dot product of two
// rows is their cosine similarity.
package vectorize

import (
	"errors"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/abelbrown/trendwatch/internal/textutil"
)

var (
	// ErrNoDocuments is returned when FitTransform is called with no input.
	ErrNoDocuments = errors.New("vectorize: no documents")
	// ErrEmptyVocabulary is returned when no term survives the filters.
	ErrEmptyVocabulary = errors.New("vectorize: empty vocabulary")
)

// Options controls vocabulary construction.
type Options struct {
	MaxFeatures int // 0 = unlimited
	MinDF       int // minimum number of documents a term must occur in
	MaxNGram    int // 1 = unigrams only, 2 = unigrams and bigrams
}

// DefaultOptions returns the settings used for trend clustering.
func DefaultOptions() Options {
	return Options{MaxFeatures: 1000, MinDF: 2, MaxNGram: 2}
}

// Vectorizer learns a vocabulary and inverse document frequencies from a
// batch of documents. Not safe for concurrent use.
type Vectorizer struct {
	opts  Options
	terms []string
	idf   []float64
}

// New creates a Vectorizer. Zero-valued options fall back to defaults.
func New(opts Options) *Vectorizer {
	if opts.MinDF < 1 {
		opts.MinDF = 1
	}
	if opts.MaxNGram < 1 {
		opts.MaxNGram = 1
	}
	return &Vectorizer{opts: opts}
}

// Terms returns the learned vocabulary in column order.
func (v *Vectorizer) Terms() []string {
	return v.terms
}

// FitTransform learns the vocabulary from docs and returns one row per
// document.
func (v *Vectorizer) FitTransform(docs []string) (*mat.Dense, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, doc := range docs {
		counts[i] = v.analyze(doc)
		for term, c := range counts[i] {
			df[term]++
			tf[term] += c
		}
	}

	var terms []string
	for term, n := range df {
		if n >= v.opts.MinDF {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		v.terms, v.idf = nil, nil
		return nil, ErrEmptyVocabulary
	}

	sort.Strings(terms)
	if v.opts.MaxFeatures > 0 && len(terms) > v.opts.MaxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return tf[terms[i]] > tf[terms[j]]
		})
		terms = terms[:v.opts.MaxFeatures]
		sort.Strings(terms)
	}

	n := float64(len(docs))
	index := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for j, term := range terms {
		index[term] = j
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	v.terms, v.idf = terms, idf

	x := mat.NewDense(len(docs), len(terms), nil)
	for i, c := range counts {
		for term, cnt := range c {
			if j, ok := index[term]; ok {
				x.Set(i, j, float64(cnt)*idf[j])
			}
		}
		normalizeRow(x, i)
	}
	return x, nil
}

// analyze counts the unigrams and n-grams of one document.
func (v *Vectorizer) analyze(doc string) map[string]int {
	var tokens []string
	for _, tok := range textutil.Tokens(doc) {
		if !textutil.IsEnglishStopWord(tok) {
			tokens = append(tokens, tok)
		}
	}

	counts := make(map[string]int)
	for n := 1; n <= v.opts.MaxNGram; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}
	return counts
}

func normalizeRow(x *mat.Dense, i int) {
	row := x.RawRowView(i)
	var sum float64
	for _, val := range row {
		sum += val * val
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for j := range row {
		row[j] /= norm
	}
}
