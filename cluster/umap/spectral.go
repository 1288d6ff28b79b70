package umap

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/meridian-news/meridian-ml/errors"
)

// maxSpectralPoints bounds the dense eigen decomposition used for the
// spectral initialisation. Larger graphs start from a random layout.
const maxSpectralPoints = 2048

// connectedComponents labels the vertices of the graph. Isolated vertices
// form their own component.
func connectedComponents(n int, edges []edge) (labels []int, count int) {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, e := range edges {
		a, b := find(e.head), find(e.tail)
		if a != b {
			if a < b {
				parent[b] = a
			} else {
				parent[a] = b
			}
		}
	}

	labels = make([]int, n)
	ids := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels, len(ids)
}

// spectralLayout embeds a connected graph using the eigenvectors of its
// symmetric normalised Laplacian, skipping the trivial first eigenvector.
func spectralLayout(n, dim int, edges []edge) ([][]float64, error) {
	if n < dim+2 {
		return nil, errors.Newf("spectral layout needs more than %d points, got %d", dim+1, n)
	}

	degree := make([]float64, n)
	for _, e := range edges {
		degree[e.head] += e.weight
	}
	for i, d := range degree {
		if d == 0 {
			return nil, errors.Newf("vertex %d is isolated", i)
		}
		degree[i] = 1 / math.Sqrt(d)
	}

	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		lap.SetSym(i, i, 1)
	}
	for _, e := range edges {
		if e.head < e.tail {
			lap.SetSym(e.head, e.tail, -e.weight*degree[e.head]*degree[e.tail])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(lap, true); !ok {
		return nil, errors.New("eigen decomposition of graph laplacian did not converge")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			out[i][d] = vectors.At(i, order[d+1])
		}
	}
	return out, nil
}

// initialLayout picks the starting coordinates for the optimisation:
// spectral when the graph is a single connected component small enough for
// a dense decomposition, uniform random in [-10, 10] otherwise.
func initialLayout(n, dim int, edges []edge, rng *rand.Rand) [][]float64 {
	_, count := connectedComponents(n, edges)
	if count == 1 && n <= maxSpectralPoints {
		if layout, err := spectralLayout(n, dim, edges); err == nil {
			expandSpectral(layout, rng)
			return layout
		}
	}

	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = make([]float64, dim)
		for d := range layout[i] {
			layout[i][d] = rng.Float64()*20 - 10
		}
	}
	return layout
}

// expandSpectral scales the eigenvector coordinates so the largest magnitude
// is 10 and adds a little gaussian noise to break ties between duplicates.
func expandSpectral(layout [][]float64, rng *rand.Rand) {
	maxAbs := 0.0
	for _, row := range layout {
		for _, v := range row {
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
	}
	expansion := 1.0
	if maxAbs > 0 {
		expansion = 10 / maxAbs
	}
	for _, row := range layout {
		for d := range row {
			row[d] = row[d]*expansion + rng.NormFloat64()*0.0001
		}
	}
}

// rescaleLayout maps every coordinate axis onto [0, 10].
func rescaleLayout(layout [][]float64) {
	if len(layout) == 0 {
		return
	}
	dim := len(layout[0])
	for d := 0; d < dim; d++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range layout {
			lo = math.Min(lo, row[d])
			hi = math.Max(hi, row[d])
		}
		span := hi - lo
		for _, row := range layout {
			if span > 0 {
				row[d] = 10 * (row[d] - lo) / span
			} else {
				row[d] = 0
			}
		}
	}
}
