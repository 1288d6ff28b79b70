package am

import (
	"net/url"

	"github.com/meridian-news/meridian-ml/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 is invalid, negative is invalid
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Server.RateLimitPerSecond < 0 {
		return errors.Newf("server.rate_limit_per_second must be >= 0, got %f", c.Server.RateLimitPerSecond)
	}
	if c.Server.RateLimitPerSecond > 0 && c.Server.RateLimitBurst < 1 {
		return errors.Newf("server.rate_limit_burst must be >= 1 when rate limiting, got %d", c.Server.RateLimitBurst)
	}
	if c.Server.MaxConcurrentClusterings < 1 {
		return errors.Newf("server.max_concurrent_clusterings must be >= 1, got %d", c.Server.MaxConcurrentClusterings)
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return errors.Newf("server.request_timeout_seconds must be >= 0, got %d", c.Server.RequestTimeoutSeconds)
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.Newf("server.max_body_bytes must be >= 0, got %d", c.Server.MaxBodyBytes)
	}

	// Embedding provider
	switch c.Embeddings.Provider {
	case ProviderHash:
		if c.Embeddings.Dimensions < 1 {
			return errors.Newf("embeddings.dimensions must be >= 1 for the hash provider, got %d", c.Embeddings.Dimensions)
		}
	case ProviderOllama, ProviderOpenAI:
		if c.Embeddings.BaseURL == "" {
			return errors.WithHintf(
				errors.Newf("embeddings.base_url cannot be empty for provider %q", c.Embeddings.Provider),
				"set embeddings.base_url or MERIDIAN_ML_EMBEDDINGS_BASE_URL")
		}
		if u, err := url.Parse(c.Embeddings.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("embeddings.base_url %q is not an absolute URL", c.Embeddings.BaseURL)
		}
		if c.Embeddings.Model == "" {
			return errors.Newf("embeddings.model cannot be empty for provider %q", c.Embeddings.Provider)
		}
	default:
		return errors.Newf("embeddings.provider must be one of hash, ollama, openai, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.TimeoutSeconds < 0 {
		return errors.Newf("embeddings.timeout_seconds must be >= 0, got %d", c.Embeddings.TimeoutSeconds)
	}
	if c.Embeddings.BatchSize < 1 {
		return errors.Newf("embeddings.batch_size must be >= 1, got %d", c.Embeddings.BatchSize)
	}

	// Clustering pipeline
	if c.Clustering.MinClusterSize < 1 {
		return errors.Newf("clustering.min_cluster_size must be >= 1, got %d", c.Clustering.MinClusterSize)
	}
	if c.Clustering.NComponents < 1 {
		return errors.Newf("clustering.n_components must be >= 1, got %d", c.Clustering.NComponents)
	}
	if c.Clustering.MaxNeighbors < 2 {
		return errors.Newf("clustering.max_neighbors must be >= 2, got %d", c.Clustering.MaxNeighbors)
	}
	if c.Clustering.Spread <= 0 {
		return errors.Newf("clustering.spread must be > 0, got %f", c.Clustering.Spread)
	}
	if c.Clustering.MinDist < 0 || c.Clustering.MinDist > c.Clustering.Spread {
		return errors.Newf("clustering.min_dist must be in [0, spread], got %f", c.Clustering.MinDist)
	}
	if c.Clustering.NEpochs < 0 {
		return errors.Newf("clustering.n_epochs must be >= 0, got %d", c.Clustering.NEpochs)
	}

	return nil
}
