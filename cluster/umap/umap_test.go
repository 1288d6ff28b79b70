package umap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs returns n points per group scattered tightly around orthogonal unit
// directions in dim dimensions.
func blobs(groups, n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var out [][]float64
	for g := 0; g < groups; g++ {
		for i := 0; i < n; i++ {
			v := make([]float64, dim)
			v[g%dim] = 1
			for d := range v {
				v[d] += (rng.Float64()*2 - 1) * 0.01
			}
			out = append(out, v)
		}
	}
	return out
}

func TestFindABParams(t *testing.T) {
	a, b, err := FindABParams(1.0, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.577, a, 0.05)
	assert.InDelta(t, 0.895, b, 0.05)
}

func TestFindABParamsRejectsBadSpread(t *testing.T) {
	_, _, err := FindABParams(0, 0.1)
	assert.Error(t, err)

	_, _, err = FindABParams(1, 2)
	assert.Error(t, err)
}

func TestNearestNeighborsIncludesSelfFirst(t *testing.T) {
	data := [][]float64{{0}, {1}, {3}, {6}}
	nn, err := nearestNeighbors(data, 3, Euclidean)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, nn.indices[0])
	assert.Equal(t, []float64{0, 1, 3}, nn.distances[0])
	assert.Equal(t, []int{2, 1, 0}, nn.indices[2])
	assert.Equal(t, []int{3, 2, 1}, nn.indices[3])
}

func TestNearestNeighborsClampsK(t *testing.T) {
	nn, err := nearestNeighbors([][]float64{{0}, {1}}, 15, Euclidean)
	require.NoError(t, err)
	assert.Len(t, nn.indices[0], 2)
}

func TestCosineDistance(t *testing.T) {
	data := [][]float64{{1, 0}, {2, 0}, {0, 1}, {0, 0}, {0, 0}}
	norms := []float64{1, 2, 1, 0, 0}

	assert.InDelta(t, 0, pointDistance(Cosine, data[0], data[1], norms, 0, 1), 1e-12)
	assert.InDelta(t, 1, pointDistance(Cosine, data[0], data[2], norms, 0, 2), 1e-12)
	assert.Equal(t, 1.0, pointDistance(Cosine, data[0], data[3], norms, 0, 3))
	assert.Equal(t, 0.0, pointDistance(Cosine, data[3], data[4], norms, 3, 4))
}

func TestSmoothKNNDistHitsTarget(t *testing.T) {
	distances := [][]float64{{0, 1, 2, 3}}
	sigmas, rhos := smoothKNNDist(distances, 4)

	assert.Equal(t, 1.0, rhos[0])
	psum := 0.0
	for _, d := range distances[0][1:] {
		psum += math.Exp(-math.Max(d-rhos[0], 0) / sigmas[0])
	}
	assert.InDelta(t, math.Log2(4), psum, 1e-3)
}

func TestFuzzySimplicialSetIsSymmetric(t *testing.T) {
	data := blobs(2, 6, 4, 1)
	nn, err := nearestNeighbors(data, 4, Cosine)
	require.NoError(t, err)

	edges := fuzzySimplicialSet(nn, 4)
	require.NotEmpty(t, edges)

	weights := make(map[[2]int]float64)
	for _, e := range edges {
		assert.NotEqual(t, e.head, e.tail)
		assert.Greater(t, e.weight, 0.0)
		assert.LessOrEqual(t, e.weight, 1.0)
		weights[[2]int{e.head, e.tail}] = e.weight
	}
	for k, w := range weights {
		assert.Equal(t, w, weights[[2]int{k[1], k[0]}])
	}
}

func TestPruneEdges(t *testing.T) {
	edges := []edge{{0, 1, 1.0}, {1, 0, 1.0}, {0, 2, 0.001}, {2, 0, 0.001}}
	kept := pruneEdges(edges, 200)
	assert.Len(t, kept, 2)
	assert.Len(t, edges, 4)
}

func TestConnectedComponents(t *testing.T) {
	edges := []edge{{0, 1, 1}, {1, 0, 1}, {2, 3, 1}, {3, 2, 1}}
	labels, count := connectedComponents(5, edges)

	assert.Equal(t, 3, count)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
	assert.NotEqual(t, labels[4], labels[0])
}

func TestRescaleLayout(t *testing.T) {
	layout := [][]float64{{-2, 5}, {0, 5}, {2, 5}}
	rescaleLayout(layout)

	assert.Equal(t, []float64{0, 0}, layout[0])
	assert.Equal(t, []float64{5, 0}, layout[1])
	assert.Equal(t, []float64{10, 0}, layout[2])
}

func TestReduceShape(t *testing.T) {
	data := blobs(2, 10, 16, 7)
	out, err := Reduce(data, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, out, len(data))
	for _, row := range out {
		require.Len(t, row, 5)
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
			assert.False(t, math.IsInf(v, 0))
		}
	}
}

func TestReduceIsDeterministic(t *testing.T) {
	data := blobs(3, 8, 12, 3)
	opts := DefaultOptions()
	opts.NEpochs = 100

	first, err := Reduce(data, opts)
	require.NoError(t, err)
	second, err := Reduce(data, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReduceSeparatesGroups(t *testing.T) {
	data := blobs(2, 12, 16, 11)
	out, err := Reduce(data, DefaultOptions())
	require.NoError(t, err)

	mean := func(from, to int) float64 {
		sum, count := 0.0, 0
		for i := from; i < to; i++ {
			for j := i + 1; j < to; j++ {
				sum += math.Sqrt(squaredDistance(out[i], out[j]))
				count++
			}
		}
		return sum / float64(count)
	}
	between := 0.0
	for i := 0; i < 12; i++ {
		for j := 12; j < 24; j++ {
			between += math.Sqrt(squaredDistance(out[i], out[j]))
		}
	}
	between /= 144

	assert.Less(t, mean(0, 12), between)
	assert.Less(t, mean(12, 24), between)
}

func TestReduceSmallInputs(t *testing.T) {
	out, err := Reduce([][]float64{{1, 0}, {0, 1}, {1, 1}}, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out, 3)

	out, err = Reduce([][]float64{{1, 2}, {1, 2}}, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestReduceErrors(t *testing.T) {
	tests := []struct {
		name string
		data [][]float64
	}{
		{"empty", nil},
		{"single point", [][]float64{{1, 2}}},
		{"ragged", [][]float64{{1, 2}, {1}}},
		{"zero width", [][]float64{{}, {}}},
		{"nan", [][]float64{{1, math.NaN()}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(tt.data, DefaultOptions())
			assert.Error(t, err)
		})
	}
}
