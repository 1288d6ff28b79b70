// Package mcpserver exposes clustering and embedding as Model Context
// Protocol tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/cluster"
	"github.com/meridian-news/meridian-ml/embeddings"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
	"github.com/meridian-news/meridian-ml/version"
)

// Tool names
const (
	ToolClusterEmbeddings = "cluster_embeddings"
	ToolEmbedTexts        = "embed_texts"
)

// Embedder computes embeddings for a batch of texts
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*embeddings.Result, error)
}

// Clusterer partitions vectors into density clusters
type Clusterer interface {
	ComputeClusters(vectors [][]float64, minClusterSize int) (*cluster.Result, error)
}

// Server wraps an MCP server with the ML tools registered
type Server struct {
	engine         Clusterer
	embedder       Embedder
	minClusterSize int
	logger         *zap.SugaredLogger
	mcp            *server.MCPServer
}

// New registers the tools. defaultMinClusterSize applies when a
// cluster_embeddings call omits min_cluster_size.
func New(engine Clusterer, embedder Embedder, defaultMinClusterSize int, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if defaultMinClusterSize < 1 {
		defaultMinClusterSize = cluster.DefaultMinClusterSize
	}
	s := &Server{
		engine:         engine,
		embedder:       embedder,
		minClusterSize: defaultMinClusterSize,
		logger:         log.Named("mcp"),
		mcp: server.NewMCPServer(
			"meridian-ml",
			version.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	clusterTool := mcp.NewTool(ToolClusterEmbeddings,
		mcp.WithDescription("Cluster embedding vectors with UMAP + HDBSCAN. Returns one label per vector (-1 is noise) and the cluster count."),
		mcp.WithArray("embeddings",
			mcp.Required(),
			mcp.Description("Vectors to cluster, all of the same length"),
			mcp.Items(map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			}),
		),
		mcp.WithNumber("min_cluster_size",
			mcp.Description(fmt.Sprintf("Smallest group reported as a cluster (default: %d)", s.minClusterSize)),
			mcp.Min(1),
		),
	)
	s.mcp.AddTool(clusterTool, s.handleCluster)

	embedTool := mcp.NewTool(ToolEmbedTexts,
		mcp.WithDescription("Compute embedding vectors for a list of texts"),
		mcp.WithArray("texts",
			mcp.Required(),
			mcp.Description("Non-empty texts to embed"),
			mcp.WithStringItems(),
		),
	)
	s.mcp.AddTool(embedTool, s.handleEmbed)
}

type clusterArgs struct {
	Embeddings     [][]float64 `json:"embeddings"`
	MinClusterSize *int        `json:"min_cluster_size"`
}

type embedArgs struct {
	Texts []string `json:"texts"`
}

// bindArgs decodes the raw tool arguments into v
func bindArgs(request mcp.CallToolRequest, v interface{}) error {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return errors.Wrap(err, "failed to encode arguments")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.NewInvalidRequestError("invalid arguments: %v", err)
	}
	return nil
}

func (s *Server) handleCluster(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args clusterArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Embeddings == nil {
		return mcp.NewToolResultError("embeddings is required"), nil
	}
	mcs := s.minClusterSize
	if args.MinClusterSize != nil {
		if *args.MinClusterSize < 1 {
			return mcp.NewToolResultError("min_cluster_size must be >= 1"), nil
		}
		mcs = *args.MinClusterSize
	}

	res, err := s.engine.ComputeClusters(args.Embeddings, mcs)
	if err != nil {
		if errors.IsInvalidRequestError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Errorw("Clustering tool failed",
			logger.FieldVectors, len(args.Embeddings),
			logger.FieldMinClusterSize, mcs,
			logger.FieldError, err)
		return mcp.NewToolResultError("Internal server error during clustering: " + err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"labels":     res.Labels,
		"n_clusters": res.NClusters,
	})
}

func (s *Server) handleEmbed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args embedArgs
	if err := bindArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(args.Texts) == 0 {
		return mcp.NewToolResultError("texts must contain at least one entry"), nil
	}

	res, err := s.embedder.Embed(ctx, args.Texts)
	if err != nil {
		if errors.IsInvalidRequestError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger.Errorw("Embedding tool failed", logger.FieldCount, len(args.Texts), logger.FieldError, err)
		return mcp.NewToolResultError("Internal server error during embedding computation: " + err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"embeddings": res.Embeddings,
		"model_name": res.ModelName,
		"dimensions": res.Dimensions,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}

// MCP returns the underlying server, mainly for tests
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP on in/out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Infow("MCP server listening on stdio")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Desugar()))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "mcp stdio server failed")
	}
	return nil
}
