package am

// Config represents the meridian-ml service configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" json:"server" yaml:"server" toml:"server"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings" json:"embeddings" yaml:"embeddings" toml:"embeddings"`
	Clustering ClusteringConfig `mapstructure:"clustering" json:"clustering" yaml:"clustering" toml:"clustering"`
	Log        LogConfig        `mapstructure:"log" json:"log" yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int      `mapstructure:"port" json:"port" yaml:"port" toml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	// AuthToken is the bearer token required on /embeddings and /cluster.
	// Empty disables authentication.
	AuthToken          string  `mapstructure:"auth_token" json:"auth_token" yaml:"auth_token" toml:"auth_token"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" json:"rate_limit_per_second" yaml:"rate_limit_per_second" toml:"rate_limit_per_second"` // 0 = unlimited
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst" yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	// MaxConcurrentClusterings bounds simultaneous /cluster computations.
	MaxConcurrentClusterings int   `mapstructure:"max_concurrent_clusterings" json:"max_concurrent_clusterings" yaml:"max_concurrent_clusterings" toml:"max_concurrent_clusterings"`
	RequestTimeoutSeconds    int   `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	MaxBodyBytes             int64 `mapstructure:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// EmbeddingsConfig selects and tunes the embedding provider
type EmbeddingsConfig struct {
	Provider       string `mapstructure:"provider" json:"provider" yaml:"provider" toml:"provider"` // hash, ollama, openai
	Model          string `mapstructure:"model" json:"model" yaml:"model" toml:"model"`
	BaseURL        string `mapstructure:"base_url" json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey         string `mapstructure:"api_key" json:"api_key" yaml:"api_key" toml:"api_key"`
	Dimensions     int    `mapstructure:"dimensions" json:"dimensions" yaml:"dimensions" toml:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	BatchSize      int    `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	// CachePath enables the SQLite embedding cache when set.
	CachePath string `mapstructure:"cache_path" json:"cache_path" yaml:"cache_path" toml:"cache_path"`
}

// ClusteringConfig tunes the UMAP + HDBSCAN pipeline
type ClusteringConfig struct {
	MinClusterSize int     `mapstructure:"min_cluster_size" json:"min_cluster_size" yaml:"min_cluster_size" toml:"min_cluster_size"`
	NComponents    int     `mapstructure:"n_components" json:"n_components" yaml:"n_components" toml:"n_components"`
	MaxNeighbors   int     `mapstructure:"max_neighbors" json:"max_neighbors" yaml:"max_neighbors" toml:"max_neighbors"`
	RandomSeed     int64   `mapstructure:"random_seed" json:"random_seed" yaml:"random_seed" toml:"random_seed"` // 0 = default seed 42
	MinDist        float64 `mapstructure:"min_dist" json:"min_dist" yaml:"min_dist" toml:"min_dist"`
	Spread         float64 `mapstructure:"spread" json:"spread" yaml:"spread" toml:"spread"`
	NEpochs        int     `mapstructure:"n_epochs" json:"n_epochs" yaml:"n_epochs" toml:"n_epochs"` // 0 = chosen by batch size
}

// LogConfig configures process logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json" json:"json" yaml:"json" toml:"json"`
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level"`
}

// Embedding providers
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Server port constants
const (
	DefaultServerPort = 8080
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	if c.Server.AuthToken != "" {
		c.Server.AuthToken = Masked
	}
	if c.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = Masked
	}
	origins := make([]string, len(c.Server.AllowedOrigins))
	copy(origins, c.Server.AllowedOrigins)
	c.Server.AllowedOrigins = origins
	return c
}
