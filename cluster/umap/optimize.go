package umap

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/meridian-news/meridian-ml/errors"
)

const gradientClip = 4.0

// FindABParams fits the curve 1 / (1 + a*x^(2b)) to the offset exponential
// that models the desired spacing of embedded points for the given spread
// and minimum distance.
func FindABParams(spread, minDist float64) (a, b float64, err error) {
	if spread <= 0 {
		return 0, 0, errors.Newf("spread must be positive, got %g", spread)
	}
	if minDist < 0 || minDist > spread {
		return 0, 0, errors.Newf("min_dist must be in [0, spread], got %g", minDist)
	}

	const samples = 300
	xs := make([]float64, samples)
	floats.Span(xs, 0, 3*spread)
	ys := make([]float64, samples)
	for i, x := range xs {
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			pa, pb := p[0], p[1]
			if pa <= 0 || pb <= 0 {
				return 1e10
			}
			sum := 0.0
			for i, x := range xs {
				r := 1/(1+pa*math.Pow(x, 2*pb)) - ys[i]
				sum += r * r
			}
			return sum
		},
	}

	res, err := optimize.Minimize(problem, []float64{1, 1}, nil, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, errors.Wrap(err, "fit curve parameters")
	}
	return res.X[0], res.X[1], nil
}

// epochsPerSample spreads edge sampling over the epochs in proportion to
// weight: the heaviest edge is sampled every epoch. Edges that would never be
// sampled get -1.
func epochsPerSample(edges []edge, nEpochs int) []float64 {
	maxW := 0.0
	for _, e := range edges {
		maxW = math.Max(maxW, e.weight)
	}
	out := make([]float64, len(edges))
	for i, e := range edges {
		n := float64(nEpochs) * e.weight / maxW
		if n > 0 {
			out[i] = float64(nEpochs) / n
		} else {
			out[i] = -1
		}
	}
	return out
}

type layoutParams struct {
	a, b               float64
	nEpochs            int
	learningRate       float64
	negativeSampleRate float64
	repulsionStrength  float64
}

// optimizeLayout runs stochastic gradient descent on the cross entropy
// between the fuzzy graph and the low dimensional layout. Attraction is
// applied along sampled edges (moving both endpoints); repulsion against
// uniformly drawn negative samples moves only the head point. Work is
// sequential so a seeded rng reproduces the same layout.
func optimizeLayout(layout [][]float64, edges []edge, p layoutParams, rng *rand.Rand) {
	n := len(layout)
	if n == 0 || len(edges) == 0 {
		return
	}
	dim := len(layout[0])
	a, b := p.a, p.b

	eps := epochsPerSample(edges, p.nEpochs)
	epsNeg := make([]float64, len(eps))
	nextSample := make([]float64, len(eps))
	nextNeg := make([]float64, len(eps))
	for i, e := range eps {
		epsNeg[i] = e / p.negativeSampleRate
		nextSample[i] = e
		nextNeg[i] = epsNeg[i]
	}

	alpha := p.learningRate
	for epoch := 0; epoch < p.nEpochs; epoch++ {
		fe := float64(epoch)
		for i, e := range edges {
			if eps[i] <= 0 || nextSample[i] > fe {
				continue
			}

			current := layout[e.head]
			other := layout[e.tail]

			distSq := squaredDistance(current, other)
			coeff := 0.0
			if distSq > 0 {
				coeff = -2 * a * b * math.Pow(distSq, b-1)
				coeff /= a*math.Pow(distSq, b) + 1
			}
			for d := 0; d < dim; d++ {
				grad := clip(coeff * (current[d] - other[d]))
				current[d] += grad * alpha
				other[d] -= grad * alpha
			}
			nextSample[i] += eps[i]

			nNeg := int((fe - nextNeg[i]) / epsNeg[i])
			for s := 0; s < nNeg; s++ {
				k := rng.Intn(n)
				if k == e.head {
					continue
				}
				other := layout[k]
				distSq := squaredDistance(current, other)
				coeff := 0.0
				if distSq > 0 {
					coeff = 2 * p.repulsionStrength * b
					coeff /= (0.001 + distSq) * (a*math.Pow(distSq, b) + 1)
				}
				if coeff <= 0 {
					continue
				}
				for d := 0; d < dim; d++ {
					current[d] += clip(coeff*(current[d]-other[d])) * alpha
				}
			}
			if nNeg > 0 {
				nextNeg[i] += float64(nNeg) * epsNeg[i]
			}
		}
		alpha = p.learningRate * (1 - float64(epoch+1)/float64(p.nEpochs))
	}
}

func squaredDistance(x, y []float64) float64 {
	sum := 0.0
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

func clip(v float64) float64 {
	switch {
	case v > gradientClip:
		return gradientClip
	case v < -gradientClip:
		return -gradientClip
	default:
		return v
	}
}
