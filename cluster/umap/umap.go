// Package umap implements Uniform Manifold Approximation and Projection for
// dimensionality reduction.
//
// The reducer builds an exact k-nearest-neighbour graph, converts it to a
// fuzzy simplicial set, initialises a layout from the graph Laplacian and
// refines it with stochastic gradient descent. Given the same input and
// seed, Reduce returns the same layout.
package umap

import (
	"math"
	"math/rand"

	"github.com/meridian-news/meridian-ml/errors"
)

// Options control the reduction. Zero values are replaced with defaults.
type Options struct {
	// NComponents is the output dimensionality.
	NComponents int
	// NNeighbors is the neighbourhood size, counting the point itself.
	NNeighbors int
	MinDist    float64
	Spread     float64
	// NEpochs of gradient descent; 0 picks 500 for small inputs, 200 above
	// 10000 points.
	NEpochs            int
	Seed               int64
	LearningRate       float64
	NegativeSampleRate float64
	RepulsionStrength  float64
	Metric             Metric
}

// DefaultOptions returns the settings used by the clustering engine.
func DefaultOptions() Options {
	return Options{
		NComponents:        5,
		NNeighbors:         15,
		MinDist:            0.1,
		Spread:             1.0,
		Seed:               42,
		LearningRate:       1.0,
		NegativeSampleRate: 5,
		RepulsionStrength:  1.0,
		Metric:             Cosine,
	}
}

func (o Options) withDefaults(n int) Options {
	def := DefaultOptions()
	if o.NComponents <= 0 {
		o.NComponents = def.NComponents
	}
	if o.NNeighbors <= 0 {
		o.NNeighbors = def.NNeighbors
	}
	if o.NNeighbors > n {
		o.NNeighbors = n
	}
	if o.NNeighbors < 2 {
		o.NNeighbors = 2
	}
	if o.Spread <= 0 {
		o.Spread = def.Spread
	}
	if o.MinDist < 0 {
		o.MinDist = def.MinDist
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	if o.NegativeSampleRate <= 0 {
		o.NegativeSampleRate = def.NegativeSampleRate
	}
	if o.RepulsionStrength <= 0 {
		o.RepulsionStrength = def.RepulsionStrength
	}
	if o.NEpochs <= 0 {
		if n <= 10000 {
			o.NEpochs = 500
		} else {
			o.NEpochs = 200
		}
	}
	return o
}

// Reduce projects data (N rows of equal width) to N rows of NComponents
// coordinates. At least two rows are required.
func Reduce(data [][]float64, opts Options) ([][]float64, error) {
	n := len(data)
	if n < 2 {
		return nil, errors.Newf("umap needs at least 2 points, got %d", n)
	}
	width := len(data[0])
	if width == 0 {
		return nil, errors.New("umap input has zero dimensions")
	}
	for i, row := range data {
		if len(row) != width {
			return nil, errors.Newf("row %d has %d dimensions, want %d", i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf("row %d contains a non-finite value", i)
			}
		}
	}

	opts = opts.withDefaults(n)

	a, b, err := FindABParams(opts.Spread, opts.MinDist)
	if err != nil {
		return nil, err
	}

	nn, err := nearestNeighbors(data, opts.NNeighbors, opts.Metric)
	if err != nil {
		return nil, errors.Wrap(err, "nearest neighbours")
	}

	edges := fuzzySimplicialSet(nn, opts.NNeighbors)
	edges = pruneEdges(edges, opts.NEpochs)

	rng := rand.New(rand.NewSource(opts.Seed))
	layout := initialLayout(n, opts.NComponents, edges, rng)
	rescaleLayout(layout)

	optimizeLayout(layout, edges, layoutParams{
		a:                  a,
		b:                  b,
		nEpochs:            opts.NEpochs,
		learningRate:       opts.LearningRate,
		negativeSampleRate: opts.NegativeSampleRate,
		repulsionStrength:  opts.RepulsionStrength,
	}, rng)

	for i, row := range layout {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf("layout diverged at point %d", i)
			}
		}
	}
	return layout, nil
}
