package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/cluster"
	"github.com/meridian-news/meridian-ml/embeddings"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// InitLogging sets the process logger from -v flags and the log section of
// the config. Without -v the serve command honours log.level; other
// commands stay quiet. The mcp command logs to stderr because stdout
// carries the protocol.
func InitLogging(cmd *cobra.Command) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	jsonOutput := false
	level := logger.VerbosityToLevel(verbosity)
	if cfg, err := am.Load(); err == nil {
		jsonOutput = cfg.Log.JSON
		if verbosity == 0 && cmd.Name() == "serve" {
			level = logger.ParseLevel(cfg.Log.Level)
		}
	}

	build := logger.New
	if cmd.Name() == "mcp" {
		build = logger.NewStderr
	}
	l, err := build(jsonOutput, level)
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	logger.Logger = l.Named("meridian_ml")
	logger.JSONOutput = jsonOutput
	return nil
}

// loadConfig loads and validates the merged configuration
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// engineFromConfig builds the clustering engine from the clustering section
func engineFromConfig(cfg am.ClusteringConfig, log *zap.SugaredLogger) *cluster.Engine {
	return cluster.NewEngine(cluster.Options{
		NComponents:  cfg.NComponents,
		MaxNeighbors: cfg.MaxNeighbors,
		Seed:         cfg.RandomSeed,
		MinDist:      cfg.MinDist,
		Spread:       cfg.Spread,
		NEpochs:      cfg.NEpochs,
	}, log.Named("cluster"))
}

// startEmbeddings creates and initializes the embedding service. The caller
// closes it.
func startEmbeddings(cfg am.EmbeddingsConfig, log *zap.SugaredLogger) (*embeddings.Service, error) {
	svc, err := embeddings.NewService(cfg, log.Named("embeddings"))
	if err != nil {
		return nil, err
	}
	if err := svc.Initialize(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize embeddings")
	}
	return svc, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
