package model

import "strings"

// Category is the editorial section an article or trend belongs to.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryHealth        Category = "health"
	CategoryScience       Category = "science"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryGeneral       Category = "general"
)

// Categories lists every known category. General is last so that
// substring matching prefers a specific section.
var Categories = []Category{
	CategoryPolitics,
	CategoryTechnology,
	CategoryBusiness,
	CategoryHealth,
	CategoryScience,
	CategoryEntertainment,
	CategorySports,
	CategoryGeneral,
}

// ParseCategory maps a free-form label to a Category. Exact names match
// first, then any label containing a category name ("US Politics").
// Unknown labels map to CategoryGeneral.
func ParseCategory(label string) Category {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return CategoryGeneral
	}
	for _, c := range Categories {
		if l == string(c) {
			return c
		}
	}
	if c, ok := MatchCategory(l); ok {
		return c
	}
	return CategoryGeneral
}

// MatchCategory reports the first specific category whose name appears in
// label. General never matches.
func MatchCategory(label string) (Category, bool) {
	l := strings.ToLower(label)
	for _, c := range Categories {
		if c == CategoryGeneral {
			continue
		}
		if strings.Contains(l, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// UnmarshalText normalizes categories read from JSON or YAML.
func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}
