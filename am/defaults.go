package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.rate_limit_per_second", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.max_concurrent_clusterings", 2) // UMAP + HDBSCAN are CPU bound
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.max_body_bytes", 64<<20) // 64 MiB of JSON floats

	// Embedding defaults
	v.SetDefault("embeddings.provider", ProviderHash)
	v.SetDefault("embeddings.model", "feature-hash-384")
	v.SetDefault("embeddings.base_url", "")
	v.SetDefault("embeddings.api_key", "")
	v.SetDefault("embeddings.dimensions", 384)
	v.SetDefault("embeddings.timeout_seconds", 60)
	v.SetDefault("embeddings.batch_size", 64)
	v.SetDefault("embeddings.cache_path", "")

	// Clustering defaults
	v.SetDefault("clustering.min_cluster_size", 5)
	v.SetDefault("clustering.n_components", 5)
	v.SetDefault("clustering.max_neighbors", 15)
	v.SetDefault("clustering.random_seed", 42)
	v.SetDefault("clustering.min_dist", 0.1)
	v.SetDefault("clustering.spread", 1.0)
	v.SetDefault("clustering.n_epochs", 0)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// envAliases are the variables, in priority order, that set a key besides
// the derived MERIDIAN_ML_<SECTION>_<KEY> name. MERIDIAN_ML_API_TOKEN is the
// secret shared with the news pipeline workers; PORT is injected by container
// platforms.
var envAliases = map[string][]string{
	"server.auth_token":  {"MERIDIAN_ML_API_TOKEN", "MERIDIAN_ML_SERVER_AUTH_TOKEN"},
	"embeddings.api_key": {"MERIDIAN_ML_EMBEDDINGS_API_KEY", "OPENAI_API_KEY"},
	"server.port":        {"MERIDIAN_ML_SERVER_PORT", "PORT"},
}

// BindSensitiveEnvVars binds the keys in envAliases to their variables
func BindSensitiveEnvVars(v *viper.Viper) {
	for key, names := range envAliases {
		v.BindEnv(append([]string{key}, names...)...)
	}
}

// RequestTimeout returns the per-request deadline
func (c *Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// EmbeddingTimeout returns the outbound provider timeout
func (c *Config) EmbeddingTimeout() time.Duration {
	if c.Embeddings.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Embeddings.TimeoutSeconds) * time.Second
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
		}
	}
	return c.Server.AllowedOrigins
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Port: %d}, Embeddings: {Provider: %s, Model: %s}, Clustering: {MinClusterSize: %d}}",
		c.Server.Port, c.Embeddings.Provider, c.Embeddings.Model, c.Clustering.MinClusterSize)
}
