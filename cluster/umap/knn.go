package umap

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/meridian-news/meridian-ml/errors"
)

// Metric selects the dissimilarity used between input vectors.
type Metric int

const (
	// Cosine distance: 1 - cos(a, b). Zero vectors are at distance 0 from
	// each other and 1 from everything else.
	Cosine Metric = iota
	// Euclidean (straight-line) distance.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// neighbors holds the k nearest neighbours of every point. Column 0 is always
// the point itself at distance 0.
type neighbors struct {
	indices   [][]int
	distances [][]float64
}

type candidate struct {
	index int
	dist  float64
}

// nearestNeighbors computes exact k-NN by brute force. Rows are computed in
// parallel; each goroutine writes only its own row so the result does not
// depend on scheduling.
func nearestNeighbors(data [][]float64, k int, metric Metric) (*neighbors, error) {
	n := len(data)
	if k > n {
		k = n
	}

	var norms []float64
	if metric == Cosine {
		norms = make([]float64, n)
		for i, v := range data {
			norms[i] = floats.Norm(v, 2)
		}
	}

	nn := &neighbors{
		indices:   make([][]int, n),
		distances: make([][]float64, n),
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			cands := make([]candidate, 0, n-1)
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				d := pointDistance(metric, data[i], data[j], norms, i, j)
				if math.IsNaN(d) || math.IsInf(d, 0) {
					return errors.Newf("distance between points %d and %d is not finite", i, j)
				}
				cands = append(cands, candidate{index: j, dist: d})
			}
			sort.Slice(cands, func(a, b int) bool {
				if cands[a].dist != cands[b].dist {
					return cands[a].dist < cands[b].dist
				}
				return cands[a].index < cands[b].index
			})

			idx := make([]int, k)
			dst := make([]float64, k)
			idx[0] = i
			for c := 1; c < k; c++ {
				idx[c] = cands[c-1].index
				dst[c] = cands[c-1].dist
			}
			nn.indices[i] = idx
			nn.distances[i] = dst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nn, nil
}

func pointDistance(metric Metric, a, b []float64, norms []float64, i, j int) float64 {
	switch metric {
	case Euclidean:
		return floats.Distance(a, b, 2)
	default:
		na, nb := norms[i], norms[j]
		if na == 0 && nb == 0 {
			return 0
		}
		if na == 0 || nb == 0 {
			return 1
		}
		d := 1 - floats.Dot(a, b)/(na*nb)
		if d < 0 {
			return 0
		}
		return d
	}
}
