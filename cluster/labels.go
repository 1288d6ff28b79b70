package cluster

import "sort"

// Noise is the label assigned to vectors that belong to no cluster.
const Noise = -1

// CountClusters returns the number of distinct non-noise labels.
func CountClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		if l != Noise {
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}

// NoiseLabels returns n labels, all Noise.
func NoiseLabels(n int) []int {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	return labels
}

// Size is the number of members of one cluster.
type Size struct {
	Label   int `json:"label"`
	Members int `json:"members"`
}

// ClusterSizes tallies members per label, largest cluster first. Noise, if
// present, is reported last.
func ClusterSizes(labels []int) []Size {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	sizes := make([]Size, 0, len(counts))
	for l, c := range counts {
		sizes = append(sizes, Size{Label: l, Members: c})
	}
	sort.Slice(sizes, func(i, j int) bool {
		a, b := sizes[i], sizes[j]
		if (a.Label == Noise) != (b.Label == Noise) {
			return b.Label == Noise
		}
		if a.Members != b.Members {
			return a.Members > b.Members
		}
		return a.Label < b.Label
	})
	return sizes
}
