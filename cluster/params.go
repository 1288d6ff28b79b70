package cluster

const (
	// DefaultComponents is the dimensionality of the reduced space.
	DefaultComponents = 5
	// DefaultMinClusterSize applies when a caller does not choose one.
	DefaultMinClusterSize = 5
	// DefaultMaxNeighbors caps the reducer's neighbourhood size.
	DefaultMaxNeighbors = 15
	// DefaultSeed makes reductions reproducible.
	DefaultSeed = 42

	// minClusterSizeFloor is the smallest cluster HDBSCAN can form.
	minClusterSizeFloor = 2
)

// NeighborhoodSize is min(maxNeighbors, n-1), never below 2.
func NeighborhoodSize(n, maxNeighbors int) int {
	k := n - 1
	if maxNeighbors < k {
		k = maxNeighbors
	}
	if k < 2 {
		k = 2
	}
	return k
}

// effectiveMinClusterSize raises degenerate sizes to the HDBSCAN floor.
func effectiveMinClusterSize(m int) int {
	if m < minClusterSizeFloor {
		return minClusterSizeFloor
	}
	return m
}
