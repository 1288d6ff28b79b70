package hdbscan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(values ...float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{v}
	}
	return out
}

func TestCoreDistances(t *testing.T) {
	data := line(0, 1, 3, 6)

	// the point itself is not one of its neighbours
	assert.Equal(t, []float64{1, 1, 2, 3}, coreDistances(data, 1))
	assert.Equal(t, []float64{3, 2, 3, 5}, coreDistances(data, 2))
	assert.Equal(t, []float64{6, 5, 3, 6}, coreDistances(data, 3))
	assert.Equal(t, []float64{0, 0, 0, 0}, coreDistances(data, 0))
}

func TestPrimMST(t *testing.T) {
	edges := primMST(line(0, 1, 3), []float64{0, 0, 0})

	require.Len(t, edges, 2)
	assert.Equal(t, mstEdge{a: 0, b: 1, distance: 1}, edges[0])
	assert.Equal(t, mstEdge{a: 1, b: 2, distance: 2}, edges[1])
}

func TestPrimMSTUsesMutualReachability(t *testing.T) {
	edges := primMST(line(0, 1, 3), []float64{5, 0, 0})

	require.Len(t, edges, 2)
	assert.Equal(t, 2.0, edges[0].distance)
	assert.Equal(t, 5.0, edges[1].distance)
}

func TestSingleLinkage(t *testing.T) {
	rows := singleLinkage([]mstEdge{{0, 1, 1}, {1, 2, 2}}, 3)

	require.Len(t, rows, 2)
	assert.Equal(t, linkageRow{left: 0, right: 1, distance: 1, size: 2}, rows[0])
	assert.Equal(t, linkageRow{left: 3, right: 2, distance: 2, size: 3}, rows[1])
}

func TestCondenseFoldsSmallSplits(t *testing.T) {
	hierarchy := []linkageRow{{0, 1, 1, 2}, {3, 2, 2, 3}}
	tree := condense(hierarchy, 3, 2)

	assert.Equal(t, 3, tree.root)
	assert.Equal(t, 4, tree.next)
	assert.Equal(t, []condensedRow{
		{parent: 3, child: 2, lambda: 0.5, childSize: 1},
		{parent: 3, child: 0, lambda: 1, childSize: 1},
		{parent: 3, child: 1, lambda: 1, childSize: 1},
	}, tree.rows)
	assert.Empty(t, tree.selectClusters(EOM))
}

func TestTwoSeparatedGroups(t *testing.T) {
	data := line(0, 0.1, 0.2, 0.3, 0.4, 10, 10.1, 10.2, 10.3, 10.4)
	res, err := Cluster(data, Options{MinClusterSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, res.NClusters)
	for i := 1; i < 5; i++ {
		assert.Equal(t, res.Labels[0], res.Labels[i])
		assert.Equal(t, res.Labels[5], res.Labels[5+i])
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[5])
	assert.ElementsMatch(t, []int{0, 1}, []int{res.Labels[0], res.Labels[5]})

	sawFull := false
	for _, p := range res.Probabilities {
		assert.Greater(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if p == 1 {
			sawFull = true
		}
	}
	assert.True(t, sawFull)
}

func TestOutlierIsNoise(t *testing.T) {
	data := line(0, 0.1, 0.2, 0.3, 0.4, 10, 10.1, 10.2, 10.3, 10.4, 100)
	res, err := Cluster(data, Options{MinClusterSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, res.NClusters)
	assert.Equal(t, -1, res.Labels[10])
	assert.Equal(t, 0.0, res.Probabilities[10])
	for i := 0; i < 10; i++ {
		assert.GreaterOrEqual(t, res.Labels[i], 0)
	}
}

func TestLeafSelection(t *testing.T) {
	data := line(0, 0.1, 0.2, 0.3, 0.4, 10, 10.1, 10.2, 10.3, 10.4)
	res, err := Cluster(data, Options{MinClusterSize: 3, Selection: Leaf})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NClusters)
}

// nestedTree builds a condensed tree over 10 points. Cluster 11 (points 0-5)
// and cluster 12 (points 6-9) split off the root at lambda 1. Cluster 11
// splits at splitLambda into 13 (points 0-2) and 14 (points 3-5), whose
// points fall out at leafLambda. Cluster 12's points fall out at lambda 2.
func nestedTree(splitLambda, leafLambda float64) *condensedTree {
	rows := []condensedRow{
		{parent: 10, child: 11, lambda: 1, childSize: 6},
		{parent: 10, child: 12, lambda: 1, childSize: 4},
		{parent: 11, child: 13, lambda: splitLambda, childSize: 3},
		{parent: 11, child: 14, lambda: splitLambda, childSize: 3},
	}
	for p := 6; p < 10; p++ {
		rows = append(rows, condensedRow{parent: 12, child: p, lambda: 2, childSize: 1})
	}
	for p := 0; p < 6; p++ {
		parent := 13
		if p >= 3 {
			parent = 14
		}
		rows = append(rows, condensedRow{parent: parent, child: p, lambda: leafLambda, childSize: 1})
	}
	return &condensedTree{rows: rows, root: 10, next: 15}
}

func TestExcessOfMassPrefersStableParent(t *testing.T) {
	// stability(11) = 6 * (5 - 1) = 24 beats 3 * (6 - 5) twice
	tree := nestedTree(5, 6)

	stab := tree.stability()
	assert.InDelta(t, 24.0, stab[11-10], 1e-9)
	assert.InDelta(t, 3.0, stab[13-10], 1e-9)
	assert.InDelta(t, 3.0, stab[14-10], 1e-9)

	eom := tree.selectClusters(EOM)
	assert.Equal(t, []int{11, 12}, eom)
	labels, _ := tree.label(10, eom)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}, labels)

	leaf := tree.selectClusters(Leaf)
	assert.Equal(t, []int{12, 13, 14}, leaf)
	labels, _ = tree.label(10, leaf)
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 0, 0, 0, 0}, labels)
}

func TestExcessOfMassPrefersStableChildren(t *testing.T) {
	// stability(11) = 6 * 0.5 = 3 loses to 3 * (10 - 1.5) twice
	tree := nestedTree(1.5, 10)

	eom := tree.selectClusters(EOM)
	assert.Equal(t, []int{12, 13, 14}, eom)
	assert.Equal(t, tree.selectClusters(Leaf), eom)

	labels, _ := tree.label(10, eom)
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 0, 0, 0, 0}, labels)
}

func TestIdenticalPointsAreNoise(t *testing.T) {
	data := line(1, 1, 1, 1, 1, 1)
	res, err := Cluster(data, Options{MinClusterSize: 3})
	require.NoError(t, err)

	assert.Equal(t, 0, res.NClusters)
	assert.Equal(t, []int{-1, -1, -1, -1, -1, -1}, res.Labels)
}

func TestFewerPointsThanMinClusterSize(t *testing.T) {
	res, err := Cluster(line(0, 1, 2), Options{MinClusterSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NClusters)
	assert.Equal(t, []int{-1, -1, -1}, res.Labels)

	res, err = Cluster(line(4), Options{MinClusterSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, res.Labels)
}

func TestClusterErrors(t *testing.T) {
	tests := []struct {
		name string
		data [][]float64
		mcs  int
	}{
		{"empty", nil, 5},
		{"min cluster size too small", line(0, 1, 2), 1},
		{"ragged", [][]float64{{0, 1}, {1}}, 2},
		{"infinite", [][]float64{{0}, {math.Inf(1)}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Cluster(tt.data, Options{MinClusterSize: tt.mcs})
			assert.Error(t, err)
		})
	}
}

func TestSelectionString(t *testing.T) {
	assert.Equal(t, "eom", EOM.String())
	assert.Equal(t, "leaf", Leaf.String())
}
