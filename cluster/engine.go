// Package cluster groups embedding vectors into density-based clusters.
//
// The pipeline is: input guard, UMAP reduction to a few dimensions over
// cosine distance, then HDBSCAN with excess-of-mass selection over
// euclidean distance in the reduced space. Batches too small to contain a
// single cluster come back as all noise without running either stage.
//
// Every call is independent. The engine holds only configuration and a
// logger, so one Engine can serve concurrent requests.
package cluster

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/cluster/hdbscan"
	"github.com/meridian-news/meridian-ml/cluster/umap"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// Options tune the pipeline. The zero value of a field selects its default,
// except MinDist where 0 is a valid setting.
type Options struct {
	NComponents  int
	MaxNeighbors int
	// Seed for the reducer. 0 means DefaultSeed, so seed 0 itself cannot be
	// chosen.
	Seed    int64
	MinDist float64
	Spread  float64
	// NEpochs of UMAP optimisation; 0 lets the reducer pick by batch size.
	NEpochs   int
	Selection hdbscan.Selection
}

// DefaultOptions returns the production pipeline settings.
func DefaultOptions() Options {
	return Options{
		NComponents:  DefaultComponents,
		MaxNeighbors: DefaultMaxNeighbors,
		Seed:         DefaultSeed,
		MinDist:      0.1,
		Spread:       1.0,
		Selection:    hdbscan.EOM,
	}
}

// Result is the outcome of one clustering call. Labels are index-aligned
// with the input vectors.
type Result struct {
	Labels    []int `json:"labels"`
	NClusters int   `json:"n_clusters"`
}

type reduceFunc func([][]float64, umap.Options) ([][]float64, error)
type fitFunc func([][]float64, hdbscan.Options) (*hdbscan.Result, error)

// Engine runs the clustering pipeline.
type Engine struct {
	opts   Options
	logger *zap.SugaredLogger

	reduce reduceFunc
	fit    fitFunc
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(opts Options, log *zap.SugaredLogger) *Engine {
	def := DefaultOptions()
	if opts.NComponents <= 0 {
		opts.NComponents = def.NComponents
	}
	if opts.MaxNeighbors < 2 {
		opts.MaxNeighbors = def.MaxNeighbors
	}
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}
	if opts.Spread <= 0 {
		opts.Spread = def.Spread
	}
	if opts.MinDist < 0 || opts.MinDist > opts.Spread {
		opts.MinDist = def.MinDist
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		opts:   opts,
		logger: log,
		reduce: umap.Reduce,
		fit:    hdbscan.Cluster,
	}
}

// Options returns the engine's effective settings.
func (e *Engine) Options() Options {
	return e.opts
}

// ComputeClusters labels each vector with a cluster id or Noise.
//
// Fewer vectors than the minimum cluster size yield all-noise labels without
// error. Malformed batches fail with an error wrapping ErrInvalidInput;
// failures inside the pipeline are returned as *PipelineError.
func (e *Engine) ComputeClusters(vectors [][]float64, minClusterSize int) (*Result, error) {
	n := len(vectors)
	m := effectiveMinClusterSize(minClusterSize)

	if n < m {
		e.logger.Warnw("Not enough vectors for clustering, labelling all as noise",
			logger.FieldVectors, n,
			logger.FieldMinClusterSize, minClusterSize)
		return &Result{Labels: NoiseLabels(n), NClusters: 0}, nil
	}

	d, err := validate(vectors)
	if err != nil {
		return nil, err
	}

	k := NeighborhoodSize(n, e.opts.MaxNeighbors)
	fail := func(stage Stage, cause error) error {
		perr := &PipelineError{
			Stage:          stage,
			NVectors:       n,
			Dimensions:     d,
			MinClusterSize: m,
			NNeighbors:     k,
			Err:            cause,
		}
		e.logger.Errorw("Clustering failed",
			logger.FieldStage, string(stage),
			logger.FieldVectors, n,
			logger.FieldDimensions, d,
			logger.FieldMinClusterSize, m,
			logger.FieldNeighbors, k,
			logger.FieldError, cause)
		return perr
	}

	start := time.Now()
	reduced, err := e.reduce(vectors, umap.Options{
		NComponents: e.opts.NComponents,
		NNeighbors:  k,
		MinDist:     e.opts.MinDist,
		Spread:      e.opts.Spread,
		NEpochs:     e.opts.NEpochs,
		Seed:        e.opts.Seed,
		Metric:      umap.Cosine,
	})
	if err != nil {
		return nil, fail(StageReduce, err)
	}
	e.logger.Debugw("Reduced vectors",
		logger.FieldVectors, n,
		logger.FieldNeighbors, k,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	fitStart := time.Now()
	fitted, err := e.fit(reduced, hdbscan.Options{
		MinClusterSize: m,
		Selection:      e.opts.Selection,
	})
	if err != nil {
		return nil, fail(StageCluster, err)
	}
	if len(fitted.Labels) != n {
		return nil, fail(StageCluster, errors.AssertionFailedf("clusterer returned %d labels for %d vectors", len(fitted.Labels), n))
	}

	nClusters := CountClusters(fitted.Labels)
	e.logger.Infow("Clustering complete",
		logger.FieldVectors, n,
		logger.FieldClusters, nClusters,
		logger.FieldNoise, n-countAssigned(fitted.Labels),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
		"fit_ms", time.Since(fitStart).Milliseconds())

	return &Result{Labels: fitted.Labels, NClusters: nClusters}, nil
}

// validate checks that every vector has the same non-zero width and only
// finite components, returning that width.
func validate(vectors [][]float64) (int, error) {
	d := len(vectors[0])
	if d == 0 {
		return 0, errors.Wrap(ErrInvalidInput, "vectors have zero dimensions")
	}
	for i, v := range vectors {
		if len(v) != d {
			return 0, errors.Wrapf(ErrInvalidInput, "vector %d has %d dimensions, want %d", i, len(v), d)
		}
		for j, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return 0, errors.Wrapf(ErrInvalidInput, "vector %d component %d is not finite", i, j)
			}
		}
	}
	return d, nil
}

func countAssigned(labels []int) int {
	assigned := 0
	for _, l := range labels {
		if l != Noise {
			assigned++
		}
	}
	return assigned
}
