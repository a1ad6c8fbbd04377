package cluster

import (
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

// FallbackMode selects how token-overlap groups are formed.
type FallbackMode string

const (
	// FallbackGreedy walks the batch once; each unassigned article absorbs
	// every later unassigned article similar to it. Results depend on input
	// order: A~B and B~C with A≁C puts C in its own group.
	FallbackGreedy FallbackMode = "greedy"
	// FallbackComponents groups connected components of the similarity
	// graph, so any chain of similar articles ends up together regardless
	// of order.
	FallbackComponents FallbackMode = "components"
)

// Valid reports whether m is a known mode.
func (m FallbackMode) Valid() bool {
	return m == FallbackGreedy || m == FallbackComponents
}

// profile caches the sets compared by similar.
type profile struct {
	titleWords map[string]struct{}
	keywords   map[string]struct{}
}

func profiles(articles []*model.Article) []profile {
	out := make([]profile, len(articles))
	for i, a := range articles {
		kw := make(map[string]struct{}, len(a.Keywords))
		for _, k := range a.Keywords {
			kw[k] = struct{}{}
		}
		out[i] = profile{titleWords: textutil.FieldSet(a.Title), keywords: kw}
	}
	return out
}

// similar reports whether two articles share at least two title words or
// at least two keywords.
func similar(a, b profile) bool {
	return textutil.Overlap(a.titleWords, b.titleWords) >= 2 ||
		textutil.Overlap(a.keywords, b.keywords) >= 2
}

// TokenOverlap groups articles by shared title words or keywords and drops
// groups smaller than minSize. Groups are ordered by their first member;
// members keep input order.
func TokenOverlap(articles []*model.Article, minSize int, mode FallbackMode) [][]*model.Article {
	if mode == FallbackComponents {
		return components(articles, minSize)
	}
	return greedy(articles, minSize)
}

func greedy(articles []*model.Article, minSize int) [][]*model.Article {
	ps := profiles(articles)
	assigned := make([]bool, len(articles))

	var groups [][]*model.Article
	for i := range articles {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := []*model.Article{articles[i]}
		for j := i + 1; j < len(articles); j++ {
			if assigned[j] || !similar(ps[i], ps[j]) {
				continue
			}
			assigned[j] = true
			group = append(group, articles[j])
		}
		if len(group) >= minSize {
			groups = append(groups, group)
		}
	}
	return groups
}

func components(articles []*model.Article, minSize int) [][]*model.Article {
	ps := profiles(articles)
	uf := newUnionFind(len(articles))
	for i := range articles {
		for j := i + 1; j < len(articles); j++ {
			if similar(ps[i], ps[j]) {
				uf.union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := range articles {
		r := uf.find(i)
		if _, ok := members[r]; !ok {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	var groups [][]*model.Article
	for _, r := range roots {
		idx := members[r]
		if len(idx) < minSize {
			continue
		}
		group := make([]*model.Article, len(idx))
		for k, i := range idx {
			group[k] = articles[i]
		}
		groups = append(groups, group)
	}
	return groups
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
