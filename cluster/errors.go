package cluster

import (
	"fmt"

	"github.com/meridian-news/meridian-ml/errors"
)

// ErrInvalidInput marks vector batches the pipeline cannot accept: ragged
// rows, zero-width vectors or non-finite values. It wraps
// errors.ErrInvalidRequest so callers can map it to a client error.
var ErrInvalidInput = errors.Wrap(errors.ErrInvalidRequest, "invalid clustering input")

// Stage names the pipeline step that failed.
type Stage string

const (
	StageReduce  Stage = "reduce"
	StageCluster Stage = "cluster"
)

// PipelineError reports a failure inside the reducer or the clusterer along
// with the shape of the request that triggered it.
type PipelineError struct {
	Stage          Stage
	NVectors       int
	Dimensions     int
	MinClusterSize int
	NNeighbors     int
	Err            error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s failed (n=%d, d=%d, min_cluster_size=%d, n_neighbors=%d): %v",
		e.Stage, e.NVectors, e.Dimensions, e.MinClusterSize, e.NNeighbors, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
