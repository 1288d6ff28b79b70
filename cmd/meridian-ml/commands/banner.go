package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/meridian-news/meridian-ml/am"
	"github.com/meridian-news/meridian-ml/logger"
	"github.com/meridian-news/meridian-ml/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(cfg *am.Config, verbosity int) {
	if logger.JSONOutput {
		return
	}
	info := version.Get()

	auth := pterm.Green("bearer token")
	if cfg.Server.AuthToken == "" {
		auth = pterm.Yellow("disabled")
	}
	rate := "unlimited"
	if cfg.Server.RateLimitPerSecond > 0 {
		rate = fmt.Sprintf("%.1f/s (burst %d)", cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
	}
	cache := "off"
	if cfg.Embeddings.CachePath != "" {
		cache = cfg.Embeddings.CachePath
	}

	body := fmt.Sprintf(
		"Version:    %s (commit %s)\n"+
			"Listening:  http://localhost:%d\n"+
			"Auth:       %s\n"+
			"Rate limit: %s\n"+
			"Clustering: %d slot(s), min_cluster_size %d, seed %d\n"+
			"Embeddings: %s / %s (cache: %s)\n"+
			"Verbosity:  %s",
		info.Version, info.Short(),
		cfg.Server.Port,
		auth,
		rate,
		cfg.Server.MaxConcurrentClusterings, cfg.Clustering.MinClusterSize, cfg.Clustering.RandomSeed,
		cfg.Embeddings.Provider, cfg.Embeddings.Model, cache,
		logger.LevelName(verbosity),
	)
	pterm.DefaultBox.WithTitle(pterm.Bold.Sprint("meridian-ml")).Println(body)
}
