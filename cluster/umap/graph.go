package umap

import (
	"math"
	"sort"
)

const (
	smoothKTolerance = 1e-5
	minKDistScale    = 1e-3
	smoothKIter      = 64
)

// edge is one entry of the symmetric fuzzy graph. Both (i, j) and (j, i)
// are present for every connected pair.
type edge struct {
	head, tail int
	weight     float64
}

// smoothKNNDist finds, for every point, the distance to its nearest
// neighbour (rho) and the bandwidth (sigma) such that the sum of
// exp(-(d - rho) / sigma) over its neighbours equals log2(k).
func smoothKNNDist(distances [][]float64, k int) (sigmas, rhos []float64) {
	n := len(distances)
	target := math.Log2(float64(k))
	sigmas = make([]float64, n)
	rhos = make([]float64, n)

	var total float64
	var count int
	for _, row := range distances {
		for _, d := range row {
			total += d
			count++
		}
	}
	meanDistances := 0.0
	if count > 0 {
		meanDistances = total / float64(count)
	}

	for i, row := range distances {
		lo, hi, mid := 0.0, math.Inf(1), 1.0

		for _, d := range row {
			if d > 0 {
				if rhos[i] == 0 || d < rhos[i] {
					rhos[i] = d
				}
			}
		}

		for iter := 0; iter < smoothKIter; iter++ {
			psum := 0.0
			for j := 1; j < len(row); j++ {
				d := row[j] - rhos[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum += 1.0
				}
			}

			if math.Abs(psum-target) < smoothKTolerance {
				break
			}

			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}
		sigmas[i] = mid

		if rhos[i] > 0 {
			meanRow := 0.0
			for _, d := range row {
				meanRow += d
			}
			meanRow /= float64(len(row))
			if sigmas[i] < minKDistScale*meanRow {
				sigmas[i] = minKDistScale * meanRow
			}
		} else if sigmas[i] < minKDistScale*meanDistances {
			sigmas[i] = minKDistScale * meanDistances
		}
	}
	return sigmas, rhos
}

// fuzzySimplicialSet builds the symmetric weighted neighbourhood graph:
// directed memberships are combined with the probabilistic t-conorm
// w + w' - w*w'. Zero-weight edges are dropped and the result is sorted by
// (head, tail).
func fuzzySimplicialSet(nn *neighbors, k int) []edge {
	sigmas, rhos := smoothKNNDist(nn.distances, k)

	type key struct{ i, j int }
	directed := make(map[key]float64)
	for i, row := range nn.indices {
		for c, j := range row {
			if j == i {
				continue
			}
			d := nn.distances[i][c]
			var w float64
			if d-rhos[i] <= 0 || sigmas[i] == 0 {
				w = 1
			} else {
				w = math.Exp(-(d - rhos[i]) / sigmas[i])
			}
			directed[key{i, j}] = w
		}
	}

	combined := make(map[key]float64, 2*len(directed))
	for kk, w := range directed {
		wt := directed[key{kk.j, kk.i}]
		v := w + wt - w*wt
		combined[kk] = v
		combined[key{kk.j, kk.i}] = v
	}

	edges := make([]edge, 0, len(combined))
	for kk, w := range combined {
		if w > 0 {
			edges = append(edges, edge{head: kk.i, tail: kk.j, weight: w})
		}
	}
	sortEdges(edges)
	return edges
}

// pruneEdges removes edges too weak to be sampled even once in nEpochs.
func pruneEdges(edges []edge, nEpochs int) []edge {
	maxW := 0.0
	for _, e := range edges {
		if e.weight > maxW {
			maxW = e.weight
		}
	}
	threshold := maxW / float64(nEpochs)
	kept := make([]edge, 0, len(edges))
	for _, e := range edges {
		if e.weight >= threshold {
			kept = append(kept, e)
		}
	}
	return kept
}

func sortEdges(edges []edge) {
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].head != edges[b].head {
			return edges[a].head < edges[b].head
		}
		return edges[a].tail < edges[b].tail
	})
}
