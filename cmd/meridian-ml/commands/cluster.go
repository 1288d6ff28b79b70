package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/cluster"
	"github.com/meridian-news/meridian-ml/display"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/internal/util"
	"github.com/meridian-news/meridian-ml/logger"
)

// ClusterCmd clusters a file of embeddings locally
var ClusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster embedding vectors from a file",
	Long: `Run the UMAP + HDBSCAN pipeline on a batch of vectors without starting
the server.

The input file holds an "embeddings" array of equal-length vectors and an
optional "min_cluster_size". JSON, YAML and TOML are accepted; "-" reads
JSON from stdin.

Examples:
  meridian-ml cluster --input batch.json
  meridian-ml cluster --input batch.yaml --min-cluster-size 3 --json`,
	RunE: runCluster,
}

var (
	clusterInputPath string
	clusterMinSize   int
	clusterJSON      bool
)

func init() {
	ClusterCmd.Flags().StringVarP(&clusterInputPath, "input", "i", "", "Input file (.json, .yaml, .yml, .toml, or - for stdin)")
	ClusterCmd.Flags().IntVar(&clusterMinSize, "min-cluster-size", 0, "Minimum cluster size (overrides the file and config)")
	ClusterCmd.Flags().BoolVarP(&clusterJSON, "json", "j", false, "Print the result as JSON")
	ClusterCmd.MarkFlagRequired("input")
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var in clusterInput
	if err := readInputFile(clusterInputPath, cmd.InOrStdin(), &in); err != nil {
		return err
	}
	if in.Embeddings == nil {
		return errors.New("input has no embeddings")
	}

	if cmd.Flags().Changed("min-cluster-size") {
		in.MinClusterSize = util.Ptr(clusterMinSize)
	}
	mcs := cfg.Clustering.MinClusterSize
	if in.MinClusterSize != nil {
		mcs = *in.MinClusterSize
	}
	if mcs < 1 {
		return errors.Newf("min_cluster_size must be >= 1, got %d", mcs)
	}

	start := time.Now()
	res, err := engineFromConfig(cfg.Clustering, logger.Logger).ComputeClusters(in.Embeddings, mcs)
	if err != nil {
		return errors.Wrap(err, "clustering failed")
	}
	elapsed := time.Since(start)

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), res)
	}
	return printClusterTable(cmd.OutOrStdout(), res, mcs, elapsed)
}

func printClusterTable(w io.Writer, res *cluster.Result, mcs int, elapsed time.Duration) error {
	n := len(res.Labels)
	fmt.Fprintf(w, "%d vectors, min_cluster_size %d: %d cluster(s) in %s\n",
		n, mcs, res.NClusters, elapsed.Round(time.Millisecond))
	if n == 0 {
		return nil
	}

	data := [][]string{{"Cluster", "Members", "Share"}}
	for _, size := range cluster.ClusterSizes(res.Labels) {
		name := strconv.Itoa(size.Label)
		if size.Label == cluster.Noise {
			name = "noise"
		}
		data = append(data, []string{
			name,
			strconv.Itoa(size.Members),
			fmt.Sprintf("%.1f%%", 100*float64(size.Members)/float64(n)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
