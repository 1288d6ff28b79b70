package hdbscan

import (
	"math"
	"sort"
)

// condensedRow records either a point falling out of a cluster (childSize 1)
// or a child cluster splitting off, at density lambda = 1/distance.
type condensedRow struct {
	parent, child int
	lambda        float64
	childSize     int
}

// condensedTree is the single linkage tree with spurious splits folded into
// their parents. Cluster ids run from root (== number of points) up to, but
// not including, next.
type condensedTree struct {
	rows []condensedRow
	root int
	next int
}

// bfsFromHierarchy lists node ids below start, level by level.
func bfsFromHierarchy(rows []linkageRow, start, n int) []int {
	var result []int
	toProcess := []int{start}
	for len(toProcess) > 0 {
		result = append(result, toProcess...)
		var next []int
		for _, x := range toProcess {
			if x >= n {
				r := rows[x-n]
				next = append(next, r.left, r.right)
			}
		}
		toProcess = next
	}
	return result
}

func lambdaOf(distance float64) float64 {
	if distance > 0 {
		return 1 / distance
	}
	return math.Inf(1)
}

// condense walks the hierarchy from the top. A split where both sides have
// at least minClusterSize points creates two new clusters; otherwise the
// smaller side's points fall out of the current cluster and the larger side
// keeps its identity.
func condense(rows []linkageRow, n, minClusterSize int) *condensedTree {
	root := 2 * (n - 1)
	relabel := make([]int, root+1)
	relabel[root] = n
	next := n + 1
	ignore := make([]bool, root+1)

	countOf := func(node int) int {
		if node >= n {
			return rows[node-n].size
		}
		return 1
	}

	var out []condensedRow
	dropOut := func(parent, from int, lambda float64) {
		for _, sub := range bfsFromHierarchy(rows, from, n) {
			if sub < n {
				out = append(out, condensedRow{parent: parent, child: sub, lambda: lambda, childSize: 1})
			}
			ignore[sub] = true
		}
	}

	for _, node := range bfsFromHierarchy(rows, root, n) {
		if ignore[node] || node < n {
			continue
		}
		r := rows[node-n]
		lambda := lambdaOf(r.distance)
		leftCount, rightCount := countOf(r.left), countOf(r.right)

		switch {
		case leftCount >= minClusterSize && rightCount >= minClusterSize:
			relabel[r.left] = next
			next++
			out = append(out, condensedRow{parent: relabel[node], child: relabel[r.left], lambda: lambda, childSize: leftCount})
			relabel[r.right] = next
			next++
			out = append(out, condensedRow{parent: relabel[node], child: relabel[r.right], lambda: lambda, childSize: rightCount})
		case leftCount < minClusterSize && rightCount < minClusterSize:
			dropOut(relabel[node], r.left, lambda)
			dropOut(relabel[node], r.right, lambda)
		case leftCount < minClusterSize:
			relabel[r.right] = relabel[node]
			dropOut(relabel[node], r.left, lambda)
		default:
			relabel[r.left] = relabel[node]
			dropOut(relabel[node], r.right, lambda)
		}
	}
	return &condensedTree{rows: out, root: n, next: next}
}

// stability sums (lambda - birth(parent)) * size over every row, indexed by
// cluster id - root.
func (t *condensedTree) stability() []float64 {
	count := t.next - t.root
	birth := make([]float64, count)
	for _, r := range t.rows {
		if r.child >= t.root {
			birth[r.child-t.root] = r.lambda
		}
	}
	birth[0] = 0

	stab := make([]float64, count)
	for _, r := range t.rows {
		v := (r.lambda - birth[r.parent-t.root]) * float64(r.childSize)
		if math.IsNaN(v) {
			continue
		}
		stab[r.parent-t.root] += v
	}
	return stab
}

// childClusters maps every cluster to the clusters that split off from it.
func (t *condensedTree) childClusters() [][]int {
	children := make([][]int, t.next-t.root)
	for _, r := range t.rows {
		if r.childSize > 1 {
			children[r.parent-t.root] = append(children[r.parent-t.root], r.child)
		}
	}
	return children
}

// selectClusters returns the chosen cluster ids in ascending order. The root
// is never selected.
func (t *condensedTree) selectClusters(method Selection) []int {
	count := t.next - t.root
	children := t.childClusters()
	isCluster := make([]bool, count)
	for i := 1; i < count; i++ {
		isCluster[i] = true
	}

	switch method {
	case Leaf:
		for i := 1; i < count; i++ {
			isCluster[i] = len(children[i]) == 0
		}
	default:
		stab := t.stability()
		for node := t.next - 1; node > t.root; node-- {
			idx := node - t.root
			subtree := 0.0
			for _, c := range children[idx] {
				subtree += stab[c-t.root]
			}
			if subtree > stab[idx] {
				isCluster[idx] = false
				stab[idx] = subtree
				continue
			}
			queue := append([]int(nil), children[idx]...)
			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				isCluster[c-t.root] = false
				queue = append(queue, children[c-t.root]...)
			}
		}
	}

	var selected []int
	for i, ok := range isCluster {
		if ok {
			selected = append(selected, t.root+i)
		}
	}
	sort.Ints(selected)
	return selected
}

// label assigns each point the index of the selected cluster that owns it
// (its nearest selected ancestor) or -1, and a membership strength in [0, 1].
func (t *condensedTree) label(n int, selected []int) ([]int, []float64) {
	index := make(map[int]int, len(selected))
	for i, c := range selected {
		index[c] = i
	}

	owner := make([]int, t.next-t.root)
	owner[0] = t.root
	death := make([]float64, t.next-t.root)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	pointLambda := make([]float64, n)

	for _, r := range t.rows {
		p := r.parent - t.root
		death[p] = math.Max(death[p], r.lambda)
		if r.child >= t.root {
			if _, ok := index[r.child]; ok {
				owner[r.child-t.root] = r.child
			} else {
				owner[r.child-t.root] = owner[p]
			}
			continue
		}
		pointLambda[r.child] = r.lambda
		if o := owner[p]; o != t.root {
			labels[r.child] = index[o]
		}
	}

	probs := make([]float64, n)
	for i, l := range labels {
		if l < 0 {
			continue
		}
		d := death[selected[l]-t.root]
		lambda := pointLambda[i]
		if d == 0 || math.IsInf(lambda, 0) {
			probs[i] = 1
			continue
		}
		probs[i] = math.Min(lambda, d) / d
	}
	return labels, probs
}
