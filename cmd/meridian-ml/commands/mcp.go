package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/logger"
	"github.com/meridian-news/meridian-ml/mcpserver"
)

// McpCmd serves the ML tools over the Model Context Protocol
var McpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve cluster_embeddings and embed_texts as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  cluster_embeddings  embeddings array, optional min_cluster_size
  embed_texts         texts array

Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	log := logger.Logger

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	emb, err := startEmbeddings(cfg.Embeddings, log)
	if err != nil {
		return err
	}
	defer emb.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(engineFromConfig(cfg.Clustering, log), emb, cfg.Clustering.MinClusterSize, log)
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
