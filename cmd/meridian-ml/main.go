package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/cmd/meridian-ml/commands"
	"github.com/meridian-news/meridian-ml/logger"
)

var rootCmd = &cobra.Command{
	Use:   "meridian-ml",
	Short: "meridian-ml - embedding and clustering service for the news pipeline",
	Long: `meridian-ml - embedding and clustering service for the news pipeline.

Computes text embeddings and groups embedding vectors into topical clusters
(UMAP dimensionality reduction followed by HDBSCAN).

Available commands:
  serve    - Start the HTTP API
  cluster  - Cluster a file of vectors locally
  embed    - Compute embeddings for texts
  mcp      - Serve the tools over the Model Context Protocol
  am       - Manage configuration ("I am")
  version  - Show build information

Examples:
  meridian-ml serve -v                  # Start the API with info logging
  meridian-ml cluster --input batch.json
  meridian-ml am show                   # Show current configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.InitLogging(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ClusterCmd)
	rootCmd.AddCommand(commands.EmbedCmd)
	rootCmd.AddCommand(commands.McpCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
