// Package textutil holds the tokenizers and small string helpers shared by
// clustering, trend naming and validation.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	wordRe  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Words returns the lower-cased word-character runs of s, in order.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// Tokens returns lower-cased words of at least two characters. This is the
// tokenization used for vectorizing.
func Tokens(s string) []string {
	words := Words(s)
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			out = append(out, w)
		}
	}
	return out
}

// FieldSet splits the lower-cased string on whitespace into a set.
func FieldSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Overlap counts members shared by a and b.
func Overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// TitleCase upper-cases the first letter of each word and lower-cases the
// rest.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Clip cuts s to max runes and appends "..." when anything was removed.
func Clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// CollapseSpace replaces whitespace runs with a single space and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ContainsAny returns the needles found in the lower-cased haystack, in
// needle order. Matching is case-insensitive substring search.
func ContainsAny(haystack string, needles []string) []string {
	h := strings.ToLower(haystack)
	var found []string
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(h, strings.ToLower(n)) {
			found = append(found, n)
		}
	}
	return found
}
