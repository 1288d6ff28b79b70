package server

import "time"

const (
	// ShutdownTimeout bounds how long Stop waits for in-flight requests.
	// A clustering call on a large batch can run for tens of seconds.
	ShutdownTimeout = 60 * time.Second

	// ServiceName is reported by the root endpoint
	ServiceName = "Meridian ML Service"
)

// ServerState represents the server lifecycle state
type ServerState int32

const (
	ServerStateStarting ServerState = iota
	ServerStateRunning
	ServerStateDraining
	ServerStateStopped
)

func (s ServerState) String() string {
	switch s {
	case ServerStateStarting:
		return "starting"
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EmbeddingRequest is the body of POST /embeddings
type EmbeddingRequest struct {
	Texts []string `json:"texts"`
}

// EmbeddingResponse is the answer to POST /embeddings
type EmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	ModelName  string      `json:"model_name"`
	Dimensions int         `json:"dimensions"`
}

// ClusterRequest is the body of POST /cluster. MinClusterSize is optional.
type ClusterRequest struct {
	Embeddings     [][]float64 `json:"embeddings"`
	MinClusterSize *int        `json:"min_cluster_size,omitempty"`
}

// ClusterResponse is the answer to POST /cluster
type ClusterResponse struct {
	Labels    []int `json:"labels"`
	NClusters int   `json:"n_clusters"`
}

// HealthResponse is the answer to GET /health
type HealthResponse struct {
	Status        string          `json:"status"`
	State         string          `json:"state"`
	Version       string          `json:"version"`
	Commit        string          `json:"commit"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	CPUs          int             `json:"cpus,omitempty"`
	Memory        *MemoryStats    `json:"memory,omitempty"`
	Clustering    ClusteringStats `json:"clustering"`
	Embeddings    EmbeddingStats  `json:"embeddings"`
}

// MemoryStats is host memory as reported by the OS
type MemoryStats struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// ClusteringStats reports clustering slot usage
type ClusteringStats struct {
	InFlight int64 `json:"in_flight"`
	Capacity int64 `json:"capacity"`
}

// EmbeddingStats describes the configured embedding model
type EmbeddingStats struct {
	Model string `json:"model"`
}
