package server

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/meridian-news/meridian-ml/cluster"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
	"github.com/meridian-news/meridian-ml/version"
)

const (
	embeddingFailurePrefix  = "Internal server error during embedding computation"
	clusteringFailurePrefix = "Internal server error during clustering"
)

// HandleRoot answers GET /
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
		"version": version.Version,
	})
}

// HandlePing answers GET /ping
func (s *Server) HandlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"pong": true})
}

// HandleHealth reports process and host state. Host stats are best effort;
// a platform gopsutil cannot read simply omits them.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.State()
	resp := HealthResponse{
		Status:        "ok",
		State:         state.String(),
		Version:       version.Version,
		Commit:        version.CommitHash,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Clustering: ClusteringStats{
			InFlight: s.inFlight.Load(),
			Capacity: s.slotCapacity,
		},
		Embeddings: EmbeddingStats{Model: s.embedder.ModelName()},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.Memory = &MemoryStats{
			TotalBytes:     vm.Total,
			AvailableBytes: vm.Available,
			UsedPercent:    vm.UsedPercent,
		}
	} else {
		s.logger.Debugw("Host memory stats unavailable", logger.FieldError, err)
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		resp.CPUs = n
	}

	status := http.StatusOK
	if state == ServerStateDraining || state == ServerStateStopped {
		resp.Status = "draining"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HandleEmbeddings answers POST /embeddings
func (s *Server) HandleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, r, s.logger, err, embeddingFailurePrefix)
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts must contain at least one entry")
		return
	}

	start := time.Now()
	res, err := s.embedder.Embed(r.Context(), req.Texts)
	if err != nil {
		if r.Context().Err() != nil && !errors.Is(err, errors.ErrTimeout) {
			err = errors.Wrapf(errors.ErrTimeout, "embedding request: %v", err)
		}
		writeFailure(w, r, s.logger, err, embeddingFailurePrefix)
		return
	}

	logger.ChildLogger(s.logger, logger.FieldsFromContext(r.Context())...).Debugw("Embeddings computed",
		logger.FieldCount, len(req.Texts),
		logger.FieldModel, res.ModelName,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	writeJSON(w, http.StatusOK, EmbeddingResponse{
		Embeddings: res.Embeddings,
		ModelName:  res.ModelName,
		Dimensions: res.Dimensions,
	})
}

// HandleCluster answers POST /cluster. Jobs hold one clustering slot for as
// long as the engine runs, even when the caller has already given up.
func (s *Server) HandleCluster(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, r, s.logger, err, clusteringFailurePrefix)
		return
	}
	if req.Embeddings == nil {
		writeError(w, http.StatusBadRequest, "embeddings is required")
		return
	}

	mcs := s.current().minClusterSize
	if req.MinClusterSize != nil {
		if *req.MinClusterSize < 1 {
			writeError(w, http.StatusBadRequest, "min_cluster_size must be >= 1")
			return
		}
		mcs = *req.MinClusterSize
	}

	ctx := r.Context()
	if err := s.clusterSlots.Acquire(ctx, 1); err != nil {
		writeFailure(w, r, s.logger,
			errors.Wrapf(errors.ErrServiceUnavailable, "no clustering slot available (%d in flight)", s.inFlight.Load()),
			clusteringFailurePrefix)
		return
	}

	type outcome struct {
		res *cluster.Result
		err error
	}
	done := make(chan outcome, 1)
	s.inFlight.Add(1)
	go func() {
		defer func() {
			s.inFlight.Add(-1)
			s.clusterSlots.Release(1)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: errors.Newf("clustering panicked: %v", rec)}
			}
		}()
		res, err := s.engine.ComputeClusters(req.Embeddings, mcs)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			writeFailure(w, r, s.logger, out.err, clusteringFailurePrefix)
			return
		}
		writeJSON(w, http.StatusOK, ClusterResponse{
			Labels:    out.res.Labels,
			NClusters: out.res.NClusters,
		})
	case <-ctx.Done():
		writeFailure(w, r, s.logger,
			errors.Wrapf(errors.ErrTimeout, "clustering %d vectors", len(req.Embeddings)),
			clusteringFailurePrefix)
	}
}
