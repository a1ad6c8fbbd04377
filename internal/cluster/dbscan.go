package cluster

import "gonum.org/v1/gonum/mat"

// Noise is the label DBSCAN gives to points outside every dense region.
const Noise = -1

// CosineDistances returns the pairwise cosine distance (1 - cos) of the rows
// of x, which must already be L2-normalized. Zero rows are at distance 1
// from everything but themselves.
func CosineDistances(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	var sim mat.Dense
	sim.Mul(x, x.T())

	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - sim.At(i, j)
			if d < 0 {
				d = 0
			} else if d > 2 {
				d = 2
			}
			dist.Set(i, j, d)
			dist.Set(j, i, d)
		}
	}
	return dist
}

// Neighborhoods returns, for every point, the indices within eps of it in
// ascending order. A point is always its own neighbor.
func Neighborhoods(dist mat.Matrix, eps float64) [][]int {
	n, _ := dist.Dims()
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || dist.At(i, j) <= eps {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}

// DBSCAN labels each point with a cluster number, or Noise. A point is core
// when its neighborhood (itself included) holds at least minSamples points.
// Clusters are numbered in order of their lowest core point, and a border
// point joins the first cluster that reaches it, so labels depend only on
// input order.
func DBSCAN(dist mat.Matrix, eps float64, minSamples int) []int {
	neighbors := Neighborhoods(dist, eps)
	n := len(neighbors)

	core := make([]bool, n)
	for i, nb := range neighbors {
		core[i] = len(nb) >= minSamples
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core[i] {
			continue
		}
		labels[i] = next
		stack := []int{i}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, q := range neighbors[p] {
				if labels[q] != Noise {
					continue
				}
				labels[q] = next
				if core[q] {
					stack = append(stack, q)
				}
			}
		}
		next++
	}
	return labels
}
