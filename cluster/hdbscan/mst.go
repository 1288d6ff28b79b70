package hdbscan

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// mstEdge connects two points at a mutual reachability distance.
type mstEdge struct {
	a, b     int
	distance float64
}

// linkageRow is one merge of the single linkage tree. left and right are
// node ids: ids below n are points, id n+i is the cluster formed by row i.
type linkageRow struct {
	left, right int
	distance    float64
	size        int
}

// coreDistances returns, for every point, the distance to its minSamples-th
// nearest other point. The point itself is not counted, so minSamples 1 is
// the nearest neighbour and 0 disables core distances.
func coreDistances(data [][]float64, minSamples int) []float64 {
	n := len(data)
	core := make([]float64, n)
	if minSamples < 1 {
		return core
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			dists := make([]float64, 0, n-1)
			for j := 0; j < n; j++ {
				if j != i {
					dists = append(dists, floats.Distance(data[i], data[j], 2))
				}
			}
			sort.Float64s(dists)
			core[i] = dists[minSamples-1]
			return nil
		})
	}
	_ = g.Wait()
	return core
}

// primMST builds the minimum spanning tree of the mutual reachability graph
// max(core[i], core[j], d(i, j)) without materialising the distance matrix.
// The returned edges are sorted by distance.
func primMST(data [][]float64, core []float64) []mstEdge {
	n := len(data)
	inTree := make([]bool, n)
	best := make([]float64, n)
	source := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	for step := 1; step < n; step++ {
		inTree[current] = true
		next := -1
		nextDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := floats.Distance(data[current], data[j], 2)
			d = math.Max(d, math.Max(core[current], core[j]))
			if d < best[j] {
				best[j] = d
				source[j] = current
			}
			if next == -1 || best[j] < nextDist {
				next = j
				nextDist = best[j]
			}
		}
		edges = append(edges, mstEdge{a: source[next], b: next, distance: nextDist})
		current = next
	}

	sort.SliceStable(edges, func(i, j int) bool { return edges[i].distance < edges[j].distance })
	return edges
}

// singleLinkage turns sorted MST edges into the merge hierarchy.
func singleLinkage(edges []mstEdge, n int) []linkageRow {
	parent := make([]int, 2*n-1)
	size := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = -1
		if i < n {
			size[i] = 1
		}
	}
	find := func(x int) int {
		root := x
		for parent[root] != -1 {
			root = parent[root]
		}
		for parent[x] != -1 && parent[x] != root {
			parent[x], x = root, parent[x]
		}
		return root
	}

	rows := make([]linkageRow, len(edges))
	next := n
	for i, e := range edges {
		a, b := find(e.a), find(e.b)
		rows[i] = linkageRow{left: a, right: b, distance: e.distance, size: size[a] + size[b]}
		parent[a] = next
		parent[b] = next
		size[next] = size[a] + size[b]
		next++
	}
	return rows
}
