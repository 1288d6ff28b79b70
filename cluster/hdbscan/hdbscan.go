// Package hdbscan implements Hierarchical Density-Based Spatial Clustering of
// Applications with Noise over euclidean distance.
//
// Points are linked through a minimum spanning tree of the mutual
// reachability graph, the resulting hierarchy is condensed using the minimum
// cluster size, and flat clusters are selected either by excess of mass or
// by taking the leaves. Points that belong to no selected cluster are noise
// and labelled -1.
package hdbscan

import (
	"math"

	"github.com/meridian-news/meridian-ml/errors"
)

// Selection chooses how flat clusters are extracted from the condensed tree.
type Selection int

const (
	// EOM picks the clusters with the greatest total stability.
	EOM Selection = iota
	// Leaf picks the leaves of the condensed tree.
	Leaf
)

func (s Selection) String() string {
	if s == Leaf {
		return "leaf"
	}
	return "eom"
}

// Options configure a clustering run.
type Options struct {
	MinClusterSize int
	// MinSamples sets the core distance neighbourhood: the distance to the
	// MinSamples-th nearest other point. 0 means MinClusterSize.
	MinSamples int
	Selection  Selection
}

// Result holds one label per input point. Labels are 0..NClusters-1, or -1
// for noise.
type Result struct {
	Labels        []int
	Probabilities []float64
	NClusters     int
}

// Cluster runs HDBSCAN on data. Every row must have the same width.
func Cluster(data [][]float64, opts Options) (*Result, error) {
	n := len(data)
	if n == 0 {
		return nil, errors.New("hdbscan input is empty")
	}
	if opts.MinClusterSize < 2 {
		return nil, errors.Newf("min_cluster_size must be at least 2, got %d", opts.MinClusterSize)
	}
	width := len(data[0])
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

	if n == 1 {
		return &Result{Labels: []int{-1}, Probabilities: []float64{0}}, nil
	}

	minSamples := opts.MinSamples
	if minSamples <= 0 {
		minSamples = opts.MinClusterSize
	}
	if minSamples > n-1 {
		minSamples = n - 1
	}

	core := coreDistances(data, minSamples)
	edges := primMST(data, core)
	hierarchy := singleLinkage(edges, n)
	tree := condense(hierarchy, n, opts.MinClusterSize)
	selected := tree.selectClusters(opts.Selection)
	labels, probs := tree.label(n, selected)

	return &Result{
		Labels:        labels,
		Probabilities: probs,
		NClusters:     len(selected),
	}, nil
}
